// Package otp generates and compares one-time passwords and the opaque
// handles that correlate a pending challenge to a principal.
package otp

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
)

// CodeDigits is the fixed width of every OTP this system issues.
const CodeDigits = 6

// GenerateCode returns a zero-padded numeric code uniformly random over the
// 6-digit space.
func GenerateCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < CodeDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate otp code: %w", err)
	}
	return fmt.Sprintf("%0*d", CodeDigits, n), nil
}

// GenerateHandle returns a 128-bit hex session handle. The handle is the only
// value echoed to the client before verification, so the raw principal
// identifier never leaves the server.
func GenerateHandle() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session handle: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Equal compares a submitted code against the stored one in constant time.
func Equal(submitted, stored string) bool {
	return subtle.ConstantTimeCompare([]byte(submitted), []byte(stored)) == 1
}
