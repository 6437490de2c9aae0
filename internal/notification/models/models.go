package models

import (
	"time"

	identity "taxgate/internal/identity/models"
)

// Type classifies a workflow event.
type Type string

const (
	TypeRateProposed Type = "rate_proposed"
	TypeRateApproved Type = "rate_approved"
	TypeRateRejected Type = "rate_rejected"
)

// Notification is one durable inbox entry, addressed to a role rather than a
// principal: every checker sees proposal notifications, every maker sees
// decisions. Retained indefinitely.
type Notification struct {
	ID      string
	Type    Type
	Title   string
	Message string

	TargetRole identity.Role

	// ReferenceID/ReferenceType point at the entity the event is about,
	// e.g. a rate parameter id.
	ReferenceID   string
	ReferenceType string

	Read   bool
	ReadAt *time.Time

	CreatedBy string
	CreatedAt time.Time
}
