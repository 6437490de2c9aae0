// Package store persists principals. Two implementations exist: an in-memory
// store for tests and single-node development, and the postgres store used in
// production. Both are pure I/O; flow rules and error translation live in the
// identity service.
package store

import (
	"context"
	"time"

	"taxgate/internal/identity/models"
)

// CompleteParams describes the atomic promotion performed by a successful OTP
// verification: clear the challenge fields, stamp last login, and optionally
// install a durable token id. SessionID and OTPCode are compare-and-swap
// guards: the update applies only while they still match the row, which is
// what makes OTP codes single-use under concurrent verification attempts.
type CompleteParams struct {
	PrincipalID string
	SessionID   string
	OTPCode     string
	Now         time.Time

	// TokenID/TokenExpiresAt are nil for flows that do not issue durable
	// tokens (registrant, password-set).
	TokenID        *string
	TokenExpiresAt *time.Time
}

// PrincipalStore is the narrow interface the workflow engine consumes from
// the credential store. Lookups never filter on the active flag; the service
// needs to distinguish deactivated principals from missing ones.
type PrincipalStore interface {
	Create(ctx context.Context, p *models.Principal) error
	FindByID(ctx context.Context, id string) (*models.Principal, error)

	// FindBySelector resolves a flow's login identifier to exactly one
	// principal. Zero or ambiguous matches return sentinel.ErrNotFound.
	FindBySelector(ctx context.Context, sel models.Selector, value string) (*models.Principal, error)

	FindBySessionID(ctx context.Context, handle string) (*models.Principal, error)

	// SetOTP overwrites any prior challenge: there is no OTP queue.
	SetOTP(ctx context.Context, id, code string, expiresAt time.Time, sessionID string, now time.Time) error

	// CompleteVerification applies the promotion described by params and
	// reports whether the conditional update matched the row.
	CompleteVerification(ctx context.Context, params CompleteParams) (bool, error)

	SetPassword(ctx context.Context, id, hash string, now time.Time) error

	// ClearToken revokes the durable credential and any lingering session
	// handle. Idempotent.
	ClearToken(ctx context.Context, id string, now time.Time) error

	// SweepExpired clears OTP and token fields whose expiry is in the past.
	// Hygiene only; expiry is always also checked at use.
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}
