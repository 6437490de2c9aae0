// Package service implements the identity verification workflow: OTP
// issuance and verification for the five login flows, the session/token
// lifecycle that follows, and the per-call role guard governed operations
// use.
package service

import (
	"fmt"
	"log/slog"
	"time"

	"taxgate/internal/identity/store"
	"taxgate/internal/identity/store/revocation"
	"taxgate/internal/identity/token"
	"taxgate/internal/notifier"
	"taxgate/internal/platform/metrics"
)

const (
	defaultOTPTTL   = 5 * time.Minute
	defaultTokenTTL = 8 * time.Hour
)

// Service orchestrates the verification state machine. It owns no state of
// its own: every decision re-reads the credential store so concurrent
// requests and administrative changes are always observed.
type Service struct {
	store      store.PrincipalStore
	denylist   revocation.Denylist
	tokens     *token.Service
	dispatcher *notifier.Dispatcher

	metrics  *metrics.Metrics
	log      *slog.Logger
	otpTTL   time.Duration
	tokenTTL time.Duration
	now      func() time.Time
}

type Option func(*Service)

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock fixes the service's notion of now. Tests only.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithOTPTTL(ttl time.Duration) Option {
	return func(s *Service) { s.otpTTL = ttl }
}

func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) { s.tokenTTL = ttl }
}

func New(
	principals store.PrincipalStore,
	denylist revocation.Denylist,
	tokens *token.Service,
	dispatcher *notifier.Dispatcher,
	opts ...Option,
) (*Service, error) {
	if principals == nil {
		return nil, fmt.Errorf("principal store is required")
	}
	if denylist == nil {
		return nil, fmt.Errorf("token denylist is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token service is required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("notifier dispatcher is required")
	}

	svc := &Service{
		store:      principals,
		denylist:   denylist,
		tokens:     tokens,
		dispatcher: dispatcher,
		log:        slog.Default(),
		otpTTL:     defaultOTPTTL,
		tokenTTL:   defaultTokenTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc, nil
}
