package otp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		assert.Len(t, code, CodeDigits)
		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9', "code %q contains non-digit", code)
		}
		seen[code] = true
	}
	// 50 draws over a million-value space collide with negligible probability.
	assert.Greater(t, len(seen), 45)
}

func TestGenerateHandle(t *testing.T) {
	a, err := GenerateHandle()
	require.NoError(t, err)
	b, err := GenerateHandle()
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal("493021", "493021"))
	assert.False(t, Equal("493021", "493022"))
	assert.False(t, Equal("", "493021"))
	assert.False(t, Equal("49302", "493021"))
}
