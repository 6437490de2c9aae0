package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"taxgate/internal/identity/models"
	"taxgate/pkg/sentinel"
)

// InMemoryStore keeps principals in a mutex-guarded map. The mutex gives the
// same linearizability the postgres store gets from conditional updates.
type InMemoryStore struct {
	mu         sync.RWMutex
	principals map[string]*models.Principal
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{principals: make(map[string]*models.Principal)}
}

func (s *InMemoryStore) Create(_ context.Context, p *models.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.principals[p.ID]; exists {
		return fmt.Errorf("create principal %s: %w", p.ID, sentinel.ErrConflict)
	}
	cp := *p
	s.principals[p.ID] = &cp
	return nil
}

// Save upserts a principal. Seeding and administrative fixtures only; the
// PrincipalStore interface deliberately has no blanket update.
func (s *InMemoryStore) Save(_ context.Context, p *models.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.principals[p.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (*models.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.principals[id]
	if !ok {
		return nil, fmt.Errorf("principal %s: %w", id, sentinel.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (s *InMemoryStore) FindBySelector(_ context.Context, sel models.Selector, value string) (*models.Principal, error) {
	if value == "" {
		return nil, fmt.Errorf("empty selector value: %w", sentinel.ErrNotFound)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *models.Principal
	for _, p := range s.principals {
		if !matches(p, sel, value) {
			continue
		}
		if found != nil {
			// Ambiguous matches are indistinguishable from missing ones to
			// the caller.
			return nil, fmt.Errorf("ambiguous %s lookup: %w", sel, sentinel.ErrNotFound)
		}
		found = p
	}
	if found == nil {
		return nil, fmt.Errorf("%s lookup: %w", sel, sentinel.ErrNotFound)
	}
	cp := *found
	return &cp, nil
}

func matches(p *models.Principal, sel models.Selector, value string) bool {
	switch sel {
	case models.SelectorContact:
		return p.Email == value || p.Phone == value
	case models.SelectorUsername:
		return p.Username == value
	case models.SelectorNationalID:
		return p.NationalID == value
	}
	return false
}

func (s *InMemoryStore) FindBySessionID(_ context.Context, handle string) (*models.Principal, error) {
	if handle == "" {
		return nil, fmt.Errorf("empty session handle: %w", sentinel.ErrNotFound)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.principals {
		if p.SessionID != nil && *p.SessionID == handle {
			cp := *p
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("session lookup: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) SetOTP(_ context.Context, id, code string, expiresAt time.Time, sessionID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.principals[id]
	if !ok {
		return fmt.Errorf("set otp for %s: %w", id, sentinel.ErrNotFound)
	}
	p.OTPCode = &code
	p.OTPExpiresAt = &expiresAt
	p.SessionID = &sessionID
	p.UpdatedAt = now
	return nil
}

func (s *InMemoryStore) CompleteVerification(_ context.Context, params CompleteParams) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.principals[params.PrincipalID]
	if !ok {
		return false, nil
	}
	if p.OTPCode == nil || *p.OTPCode != params.OTPCode {
		return false, nil
	}
	if p.SessionID == nil || *p.SessionID != params.SessionID {
		return false, nil
	}

	now := params.Now
	p.OTPCode = nil
	p.OTPExpiresAt = nil
	p.SessionID = nil
	p.LastLoginAt = &now
	p.TokenID = params.TokenID
	p.TokenExpiresAt = params.TokenExpiresAt
	p.UpdatedAt = now
	return true, nil
}

func (s *InMemoryStore) SetPassword(_ context.Context, id, hash string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.principals[id]
	if !ok {
		return fmt.Errorf("set password for %s: %w", id, sentinel.ErrNotFound)
	}
	p.PasswordHash = &hash
	p.UpdatedAt = now
	return nil
}

func (s *InMemoryStore) ClearToken(_ context.Context, id string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.principals[id]
	if !ok {
		return fmt.Errorf("clear token for %s: %w", id, sentinel.ErrNotFound)
	}
	p.TokenID = nil
	p.TokenExpiresAt = nil
	p.SessionID = nil
	p.UpdatedAt = now
	return nil
}

func (s *InMemoryStore) SweepExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var swept int64
	for _, p := range s.principals {
		changed := false
		if p.OTPExpiresAt != nil && p.OTPExpiresAt.Before(now) {
			p.OTPCode = nil
			p.OTPExpiresAt = nil
			p.SessionID = nil
			changed = true
		}
		if p.TokenExpiresAt != nil && p.TokenExpiresAt.Before(now) {
			p.TokenID = nil
			p.TokenExpiresAt = nil
			changed = true
		}
		if changed {
			p.UpdatedAt = now
			swept++
		}
	}
	return swept, nil
}
