// Package service implements the maker-checker workflow over rate
// parameters: a maker proposes a new rate, the parameter goes pending, and a
// checker either approves (the pending value is applied exactly once) or
// rejects (the pending value is discarded). Every proposal and decision
// fans out a notification to the opposing role.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"taxgate/internal/governance/models"
	"taxgate/internal/governance/store"
	identity "taxgate/internal/identity/models"
	notifmodels "taxgate/internal/notification/models"
	notifservice "taxgate/internal/notification/service"
	"taxgate/internal/platform/metrics"
	"taxgate/pkg/apperrors"
	"taxgate/pkg/sentinel"
)

// Rates are percentages.
const (
	minRate = 0
	maxRate = 100
)

// Guard re-validates the acting principal's current role and active flag.
// Role changes made after token issuance must take effect on the very next
// call, so this is a fresh read, never a cached claim.
type Guard interface {
	RequireRole(ctx context.Context, principalID string, roles ...identity.Role) (*identity.Principal, error)
}

// Inbox is the slice of the notification service the workflow needs.
type Inbox interface {
	Create(ctx context.Context, params notifservice.CreateParams) (*notifmodels.Notification, error)
}

type Service struct {
	store store.RateParameterStore
	guard Guard
	inbox Inbox

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

func New(st store.RateParameterStore, guard Guard, inbox Inbox, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("rate parameter store is required")
	}
	if guard == nil {
		return nil, fmt.Errorf("authorization guard is required")
	}
	if inbox == nil {
		return nil, fmt.Errorf("notification inbox is required")
	}

	svc := &Service{
		store: st,
		guard: guard,
		inbox: inbox,
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

// List returns all rate parameters.
func (s *Service) List(ctx context.Context) ([]*models.RateParameter, error) {
	out, err := s.store.List(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "could not list rate parameters", err)
	}
	return out, nil
}

// Propose opens (or replaces) a pending rate change. Legal from any state: a
// proposal made while another is pending overwrites it, and the checkers are
// notified again.
func (s *Service) Propose(ctx context.Context, actorID string, paramID int64, newRate float64) (*models.RateParameter, error) {
	actor, err := s.guard.RequireRole(ctx, actorID, identity.RoleGRAMaker, identity.RoleAdmin)
	if err != nil {
		return nil, err
	}

	if newRate < minRate || newRate > maxRate {
		return nil, apperrors.New(apperrors.CodeBadRequest,
			fmt.Sprintf("rate must be between %d and %d", minRate, maxRate))
	}

	now := s.now()
	if err := s.store.SetPending(ctx, paramID, newRate, actorStamp(actor), now); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "rate parameter not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, "could not submit proposal", err)
	}

	param, err := s.store.Get(ctx, paramID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "could not load rate parameter", err)
	}

	s.notify(ctx, notifservice.CreateParams{
		Type:       notifmodels.TypeRateProposed,
		Title:      "Rate change awaiting approval",
		Message:    fmt.Sprintf("%s proposed changing %s from %.2f%% to %.2f%%.", actorStamp(actor), param.Name, param.Rate, newRate),
		TargetRole: identity.RoleGRAChecker,
		CreatedBy:  actorStamp(actor),
	}, paramID)

	s.metrics.IncRateProposal()
	s.log.Info("rate change proposed",
		"parameter", paramID, "new_rate", newRate, "submitted_by", actorStamp(actor))
	return param, nil
}

// Approve applies a pending proposal. Of two concurrent decisions on the
// same proposal exactly one succeeds; the loser sees InvalidState with the
// parameter's current status.
func (s *Service) Approve(ctx context.Context, actorID string, paramID int64) (*models.RateParameter, error) {
	actor, err := s.guard.RequireRole(ctx, actorID, identity.RoleGRAChecker, identity.RoleAdmin)
	if err != nil {
		return nil, err
	}

	if _, err := s.getForDecision(ctx, paramID, actor); err != nil {
		return nil, err
	}

	now := s.now()
	applied, err := s.store.ApplyApproval(ctx, paramID, actorStamp(actor), now)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "could not approve proposal", err)
	}
	if !applied {
		return nil, s.decisionConflict(ctx, paramID)
	}

	updated, err := s.store.Get(ctx, paramID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "could not load rate parameter", err)
	}

	s.notify(ctx, notifservice.CreateParams{
		Type:       notifmodels.TypeRateApproved,
		Title:      "Rate change approved",
		Message:    fmt.Sprintf("%s approved the proposed rate for %s; it is now %.2f%%.", actorStamp(actor), updated.Name, updated.Rate),
		TargetRole: identity.RoleGRAMaker,
		CreatedBy:  actorStamp(actor),
	}, paramID)

	s.metrics.IncRateApproval()
	s.log.Info("rate change approved",
		"parameter", paramID, "rate", updated.Rate, "approved_by", actorStamp(actor))
	return updated, nil
}

// Reject discards a pending proposal; the active rate is untouched.
func (s *Service) Reject(ctx context.Context, actorID string, paramID int64) (*models.RateParameter, error) {
	actor, err := s.guard.RequireRole(ctx, actorID, identity.RoleGRAChecker, identity.RoleAdmin)
	if err != nil {
		return nil, err
	}

	param, err := s.getForDecision(ctx, paramID, actor)
	if err != nil {
		return nil, err
	}

	rejectedRate := param.PendingRate

	now := s.now()
	applied, err := s.store.ApplyRejection(ctx, paramID, actorStamp(actor), now)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "could not reject proposal", err)
	}
	if !applied {
		return nil, s.decisionConflict(ctx, paramID)
	}

	updated, err := s.store.Get(ctx, paramID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "could not load rate parameter", err)
	}

	s.notify(ctx, notifservice.CreateParams{
		Type:       notifmodels.TypeRateRejected,
		Title:      "Rate change rejected",
		Message:    fmt.Sprintf("%s rejected the proposed %.2f%% rate for %s; it remains %.2f%%.", actorStamp(actor), *rejectedRate, updated.Name, updated.Rate),
		TargetRole: identity.RoleGRAMaker,
		CreatedBy:  actorStamp(actor),
	}, paramID)

	s.metrics.IncRateRejection()
	s.log.Info("rate change rejected",
		"parameter", paramID, "rejected_by", actorStamp(actor))
	return updated, nil
}

// getForDecision loads the parameter and validates it is decidable by this
// actor: pending, carrying a pending value, and not the actor's own
// proposal.
func (s *Service) getForDecision(ctx context.Context, paramID int64, actor *identity.Principal) (*models.RateParameter, error) {
	param, err := s.store.Get(ctx, paramID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "rate parameter not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, "could not load rate parameter", err)
	}

	if param.Status != models.StatusPending {
		return nil, apperrors.New(apperrors.CodeInvalidState,
			fmt.Sprintf("no pending proposal; parameter status is %q", param.Status))
	}
	if param.PendingRate == nil {
		return nil, apperrors.New(apperrors.CodeMissingPendingValue,
			"parameter is pending but has no pending rate")
	}
	if param.SubmittedBy != nil && *param.SubmittedBy == actorStamp(actor) {
		return nil, apperrors.New(apperrors.CodeUnauthorized, "submitter cannot decide their own proposal")
	}
	return param, nil
}

// decisionConflict classifies a compare-and-swap miss: the proposal was
// decided (or withdrawn) between the read and the conditional update.
func (s *Service) decisionConflict(ctx context.Context, paramID int64) error {
	param, err := s.store.Get(ctx, paramID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return apperrors.New(apperrors.CodeNotFound, "rate parameter not found")
		}
		return apperrors.Wrap(apperrors.CodeInternal, "could not load rate parameter", err)
	}
	if param.Status == models.StatusPending && param.PendingRate == nil {
		return apperrors.New(apperrors.CodeMissingPendingValue,
			"parameter is pending but has no pending rate")
	}
	return apperrors.New(apperrors.CodeInvalidState,
		fmt.Sprintf("proposal already resolved; parameter status is %q", param.Status))
}

// notify writes the workflow event to the opposing role's inbox. The rate
// transition is already durable at this point, so an inbox failure is
// logged, not propagated.
func (s *Service) notify(ctx context.Context, params notifservice.CreateParams, paramID int64) {
	params.ReferenceID = strconv.FormatInt(paramID, 10)
	params.ReferenceType = "rate_parameter"
	if _, err := s.inbox.Create(ctx, params); err != nil {
		s.log.Warn("workflow notification failed",
			"parameter", paramID, "type", params.Type, "error", err)
	}
}

// actorStamp is the identifier recorded in submitted_by/approved_by/
// rejected_by. Usernames read better in audit views; principals without one
// fall back to their id.
func actorStamp(p *identity.Principal) string {
	if p.Username != "" {
		return p.Username
	}
	return p.ID
}
