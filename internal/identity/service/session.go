package service

import (
	"context"
	"errors"

	"taxgate/internal/identity/models"
	"taxgate/pkg/apperrors"
	"taxgate/pkg/sentinel"
)

// Authenticate validates a bearer token for use: signature and expiry,
// denylist, then a fresh read of the principal. Role and active flag come
// from the row, never from the token. An administrative change between
// issuance and use must be observed.
func (s *Service) Authenticate(ctx context.Context, tokenString string) (*models.Principal, error) {
	claims, err := s.tokens.Validate(tokenString)
	if err != nil {
		return nil, err
	}

	revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "revocation check failed", err)
	}
	if revoked {
		return nil, apperrors.New(apperrors.CodeInvalidSession, "token has been revoked")
	}

	p, err := s.store.FindByID(ctx, claims.PrincipalID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, apperrors.New(apperrors.CodeInvalidSession, "unknown principal")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, "principal lookup failed", err)
	}

	if !p.Active {
		return nil, apperrors.New(apperrors.CodeDeactivated, "account is deactivated")
	}
	if !p.Role.IsStaff() {
		return nil, apperrors.New(apperrors.CodeInvalidSession, "invalid token")
	}
	// The row is authoritative: a token whose jti no longer matches has been
	// superseded by a later login or cleared by logout/sweep.
	if p.TokenID == nil || *p.TokenID != claims.ID {
		return nil, apperrors.New(apperrors.CodeInvalidSession, "token is no longer current")
	}
	if p.TokenExpiresAt == nil || !s.now().Before(*p.TokenExpiresAt) {
		return nil, apperrors.New(apperrors.CodeInvalidSession, "token has expired")
	}

	return p, nil
}

// Logout revokes the durable credential: the row's token fields are cleared
// and the jti joins the denylist for its remaining lifetime. Calling it with
// an already-cleared token succeeds.
func (s *Service) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.tokens.Validate(tokenString)
	if err != nil {
		return err
	}

	p, err := s.store.FindByID(ctx, claims.PrincipalID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return apperrors.New(apperrors.CodeInvalidSession, "unknown principal")
		}
		return apperrors.Wrap(apperrors.CodeInternal, "principal lookup failed", err)
	}
	if !p.Role.IsStaff() {
		// Registrants never hold durable tokens in this model.
		return nil
	}

	now := s.now()
	if err := s.store.ClearToken(ctx, p.ID, now); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return apperrors.Wrap(apperrors.CodeInternal, "could not revoke token", err)
	}

	if exp := claims.ExpiresAt; exp != nil {
		if err := s.denylist.Revoke(ctx, claims.ID, exp.Time.Sub(now)); err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, "could not revoke token", err)
		}
	}

	s.metrics.IncLogout()
	s.log.Info("logout", "principal", p.ID)
	return nil
}

// RequireRole is the authorization guard governed operations call at entry.
// It re-reads the principal so role or active-flag changes made after token
// issuance take effect immediately.
func (s *Service) RequireRole(ctx context.Context, principalID string, roles ...models.Role) (*models.Principal, error) {
	p, err := s.store.FindByID(ctx, principalID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "principal not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, "principal lookup failed", err)
	}
	if !p.Active {
		return nil, apperrors.New(apperrors.CodeDeactivated, "account is deactivated")
	}
	for _, r := range roles {
		if p.Role == r {
			return p, nil
		}
	}
	return nil, apperrors.New(apperrors.CodeUnauthorized, "role not permitted for this operation")
}

// SweepExpired clears lapsed OTP and token fields. Run periodically for
// credential hygiene; correctness never depends on it.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	swept, err := s.store.SweepExpired(ctx, s.now())
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeInternal, "sweep failed", err)
	}
	if swept > 0 {
		s.log.Info("swept expired credentials", "count", swept)
	}
	return swept, nil
}
