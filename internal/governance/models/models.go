package models

import "time"

// Status is the state of a rate parameter's maker-checker machine.
type Status string

const (
	// StatusActive: the current rate is in force and no proposal is open.
	StatusActive Status = "active"
	// StatusPending: a proposed rate awaits a checker's decision.
	StatusPending Status = "pending"
)

// RateParameter is one named levy/tax component under maker-checker
// governance.
//
// Invariants:
//   - PendingRate is non-nil iff Status is pending.
//   - At most one outstanding proposal: a second Propose while pending
//     overwrites the first (last writer wins, no queue).
//   - Rate changes only on approval, and each pending value is applied at
//     most once.
type RateParameter struct {
	ID     int64
	Name   string
	Rate   float64
	Status Status

	PendingRate *float64

	SubmittedBy *string
	SubmittedAt *time.Time
	ApprovedBy  *string
	ApprovedAt  *time.Time
	RejectedBy  *string
	RejectedAt  *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
