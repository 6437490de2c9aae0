// Package token mints and validates the signed access tokens issued to staff
// principals after OTP verification. The token's jti doubles as the durable
// credential id stored on the principal row, so revocation and the per-call
// role re-check both key off it.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"taxgate/internal/identity/models"
	"taxgate/pkg/apperrors"
)

// Claims are the JWT claims carried by staff access tokens.
type Claims struct {
	PrincipalID string `json:"principal_id"`
	Role        string `json:"role"`
	jwt.RegisteredClaims
}

// Service handles JWT creation and validation.
type Service struct {
	signingKey []byte
	issuer     string
}

func NewService(signingKey, issuer string) *Service {
	return &Service{signingKey: []byte(signingKey), issuer: issuer}
}

// Issue signs a token for the principal. Returns the compact token and its
// jti; the caller persists the jti on the principal row.
func (s *Service) Issue(p *models.Principal, now time.Time, ttl time.Duration) (tokenString, jti string, err error) {
	jti = uuid.NewString()
	claims := Claims{
		PrincipalID: p.ID,
		Role:        string(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        jti,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", "", err
	}
	return signed, jti, nil
}

// Validate parses and verifies a compact token. Expiry and signature failures
// both surface as InvalidSession; the caller still re-reads the principal to
// confirm the jti is current.
func (s *Service) Validate(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.Wrap(apperrors.CodeInvalidSession, "token has expired", err)
		}
		return nil, apperrors.Wrap(apperrors.CodeInvalidSession, "invalid token", err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, apperrors.New(apperrors.CodeInvalidSession, "invalid token claims")
	}
	return claims, nil
}
