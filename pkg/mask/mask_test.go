package mask

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmail(t *testing.T) {
	assert.Equal(t, "kw**********@gra.gov.gh", Email("kwame.mensah@gra.gov.gh"))
	assert.Equal(t, "a@b.com", Email("a@b.com"))
	assert.Equal(t, "ab**@b.com", Email("abcd@b.com"))
}

func TestPhone(t *testing.T) {
	assert.Equal(t, "**********677", Phone("+233244556677"))
	assert.Equal(t, "***", Phone("123"))
	assert.Equal(t, "", Phone(""))
}

func TestContact(t *testing.T) {
	assert.Equal(t, "kw***@x.org", Contact("kwasi@x.org"))
	assert.Equal(t, "*******890", Contact("0244567890"))
}
