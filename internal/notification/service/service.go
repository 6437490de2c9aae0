// Package service is the notification inbox: the durable, per-role mailbox
// of workflow events that connects makers to checkers.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	identity "taxgate/internal/identity/models"
	"taxgate/internal/notification/models"
	"taxgate/internal/notification/store"
	"taxgate/internal/platform/metrics"
	"taxgate/pkg/apperrors"
	"taxgate/pkg/sentinel"
)

// DefaultPageSize bounds ListForRole. The inbox is a recency view, not an
// archive query surface.
const DefaultPageSize = 20

// CreateParams describes a new workflow event.
type CreateParams struct {
	Type          models.Type
	Title         string
	Message       string
	TargetRole    identity.Role
	ReferenceID   string
	ReferenceType string
	CreatedBy     string
}

type Service struct {
	store   store.NotificationStore
	metrics *metrics.Metrics
	log     *slog.Logger
	now     func() time.Time
}

type Option func(*Service)

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(st store.NotificationStore, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("notification store is required")
	}
	svc := &Service{
		store: st,
		log:   slog.Default(),
		now:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc, nil
}

// Create records a workflow event for a role's inbox.
func (s *Service) Create(ctx context.Context, params CreateParams) (*models.Notification, error) {
	if !params.TargetRole.Valid() {
		return nil, apperrors.New(apperrors.CodeBadRequest, "invalid target role")
	}

	now := s.now()
	n := &models.Notification{
		ID:            newID(now),
		Type:          params.Type,
		Title:         params.Title,
		Message:       params.Message,
		TargetRole:    params.TargetRole,
		ReferenceID:   params.ReferenceID,
		ReferenceType: params.ReferenceType,
		CreatedBy:     params.CreatedBy,
		CreatedAt:     now,
	}
	if err := s.store.Create(ctx, n); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "could not create notification", err)
	}

	s.metrics.IncNotificationCreated(string(params.TargetRole))
	return n, nil
}

// ListForRole returns the newest notifications for a role, bounded to the
// default page size.
func (s *Service) ListForRole(ctx context.Context, role identity.Role) ([]*models.Notification, error) {
	out, err := s.store.ListByRole(ctx, role, DefaultPageSize)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "could not list notifications", err)
	}
	return out, nil
}

func (s *Service) UnreadCount(ctx context.Context, role identity.Role) (int64, error) {
	count, err := s.store.UnreadCount(ctx, role)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeInternal, "could not count notifications", err)
	}
	return count, nil
}

// MarkRead is idempotent: re-marking an already-read notification succeeds.
func (s *Service) MarkRead(ctx context.Context, id string) error {
	if err := s.store.MarkRead(ctx, id, s.now()); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return apperrors.New(apperrors.CodeNotFound, "notification not found")
		}
		return apperrors.Wrap(apperrors.CodeInternal, "could not mark notification read", err)
	}
	return nil
}

// MarkAllRead flips every unread notification for the role; no matches is a
// no-op success.
func (s *Service) MarkAllRead(ctx context.Context, role identity.Role) error {
	flipped, err := s.store.MarkAllRead(ctx, role, s.now())
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, "could not mark notifications read", err)
	}
	if flipped > 0 {
		s.log.Info("notifications marked read", "role", role, "count", flipped)
	}
	return nil
}

// newID builds a ULID from the event time; ids sort lexically in creation
// order, which the memory store's ordering relies on. The monotonic entropy
// source keeps ids strictly increasing even within one millisecond.
func newID(now time.Time) string {
	return ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()
}
