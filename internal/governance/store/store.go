// Package store persists rate parameters. The pending→active transition is a
// compare-and-swap keyed on the expected status so two concurrent decisions
// can never both apply; the stores are pure I/O and the service interprets
// the outcome.
package store

import (
	"context"
	"time"

	"taxgate/internal/governance/models"
)

// RateParameterStore is the interface the governance workflow consumes.
type RateParameterStore interface {
	Create(ctx context.Context, p *models.RateParameter) error
	Get(ctx context.Context, id int64) (*models.RateParameter, error)
	List(ctx context.Context) ([]*models.RateParameter, error)

	// SetPending records a proposal. Legal from any state: a proposal made
	// while another is pending silently replaces it.
	SetPending(ctx context.Context, id int64, rate float64, by string, at time.Time) error

	// ApplyApproval promotes pending_rate to rate, conditional on the row
	// still being pending with a non-nil pending value. Reports whether the
	// update matched.
	ApplyApproval(ctx context.Context, id int64, by string, at time.Time) (bool, error)

	// ApplyRejection discards pending_rate, conditional the same way. The
	// active rate is untouched.
	ApplyRejection(ctx context.Context, id int64, by string, at time.Time) (bool, error)
}
