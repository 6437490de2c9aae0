// Package store persists workflow notifications.
package store

import (
	"context"
	"time"

	identity "taxgate/internal/identity/models"
	"taxgate/internal/notification/models"
)

// NotificationStore is the interface the inbox service consumes.
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error

	// ListByRole returns notifications for a role, newest first, capped at
	// limit.
	ListByRole(ctx context.Context, role identity.Role, limit int) ([]*models.Notification, error)

	UnreadCount(ctx context.Context, role identity.Role) (int64, error)

	// MarkRead flips a single notification to read. Marking an already-read
	// row again is a no-op; only an unknown id is an error.
	MarkRead(ctx context.Context, id string, at time.Time) error

	// MarkAllRead flips every unread notification for the role. Returns the
	// number of rows transitioned; zero is not an error.
	MarkAllRead(ctx context.Context, role identity.Role, at time.Time) (int64, error)
}
