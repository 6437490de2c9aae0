package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"taxgate/internal/governance/models"
	"taxgate/pkg/sentinel"
)

// InMemoryStore keeps rate parameters in a mutex-guarded map. The mutex makes
// the approval/rejection compare-and-swap linearizable, matching the
// conditional UPDATE the postgres store relies on.
type InMemoryStore struct {
	mu     sync.RWMutex
	params map[int64]*models.RateParameter
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{params: make(map[int64]*models.RateParameter)}
}

func (s *InMemoryStore) Create(_ context.Context, p *models.RateParameter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.params[p.ID]; exists {
		return fmt.Errorf("create rate parameter %d: %w", p.ID, sentinel.ErrConflict)
	}
	cp := *p
	s.params[p.ID] = &cp
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id int64) (*models.RateParameter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.params[id]
	if !ok {
		return nil, fmt.Errorf("rate parameter %d: %w", id, sentinel.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*models.RateParameter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.RateParameter, 0, len(s.params))
	for _, p := range s.params {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemoryStore) SetPending(_ context.Context, id int64, rate float64, by string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.params[id]
	if !ok {
		return fmt.Errorf("rate parameter %d: %w", id, sentinel.ErrNotFound)
	}
	p.PendingRate = &rate
	p.Status = models.StatusPending
	p.SubmittedBy = &by
	p.SubmittedAt = &at
	p.UpdatedAt = at
	return nil
}

func (s *InMemoryStore) ApplyApproval(_ context.Context, id int64, by string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.params[id]
	if !ok || p.Status != models.StatusPending || p.PendingRate == nil {
		return false, nil
	}
	p.Rate = *p.PendingRate
	p.PendingRate = nil
	p.Status = models.StatusActive
	p.ApprovedBy = &by
	p.ApprovedAt = &at
	p.UpdatedAt = at
	return true, nil
}

func (s *InMemoryStore) ApplyRejection(_ context.Context, id int64, by string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.params[id]
	if !ok || p.Status != models.StatusPending || p.PendingRate == nil {
		return false, nil
	}
	p.PendingRate = nil
	p.Status = models.StatusActive
	p.RejectedBy = &by
	p.RejectedAt = &at
	p.UpdatedAt = at
	return true, nil
}
