package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Empty(t, cfg.SMTPAddr)
	assert.Equal(t, "no-reply@taxgate.gov.gh", cfg.SMTPFrom)
	assert.Equal(t, 5*time.Minute, cfg.OTPTTL)
	assert.Equal(t, 8*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 15*time.Minute, cfg.SweepInterval)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("TAXGATE_ADDR", ":9999")
	t.Setenv("TAXGATE_SMTP_ADDR", "relay.gra.gov.gh:587")
	t.Setenv("TAXGATE_SMTP_FROM", "portal@gra.gov.gh")
	t.Setenv("TAXGATE_SMTP_USERNAME", "portal")
	t.Setenv("TAXGATE_SMTP_PASSWORD", "relay-pass")
	t.Setenv("TAXGATE_OTP_TTL", "2m")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, "relay.gra.gov.gh:587", cfg.SMTPAddr)
	assert.Equal(t, "portal@gra.gov.gh", cfg.SMTPFrom)
	assert.Equal(t, "portal", cfg.SMTPUsername)
	assert.Equal(t, "relay-pass", cfg.SMTPPassword)
	assert.Equal(t, 2*time.Minute, cfg.OTPTTL)
}

func TestFromEnvBadDuration(t *testing.T) {
	t.Setenv("TAXGATE_OTP_TTL", "not-a-duration")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config from env")
}
