package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	identity "taxgate/internal/identity/models"
	"taxgate/internal/notification/models"
	"taxgate/pkg/sentinel"
)

// InMemoryStore keeps notifications in a mutex-guarded map.
type InMemoryStore struct {
	mu            sync.RWMutex
	notifications map[string]*models.Notification
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{notifications: make(map[string]*models.Notification)}
}

func (s *InMemoryStore) Create(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.notifications[n.ID]; exists {
		return fmt.Errorf("create notification %s: %w", n.ID, sentinel.ErrConflict)
	}
	cp := *n
	s.notifications[n.ID] = &cp
	return nil
}

func (s *InMemoryStore) ListByRole(_ context.Context, role identity.Role, limit int) ([]*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Notification
	for _, n := range s.notifications {
		if n.TargetRole == role {
			cp := *n
			out = append(out, &cp)
		}
	}
	// ULIDs sort lexically by creation time; newest first means descending.
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) UnreadCount(_ context.Context, role identity.Role) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for _, n := range s.notifications {
		if n.TargetRole == role && !n.Read {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryStore) MarkRead(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok {
		return fmt.Errorf("notification %s: %w", id, sentinel.ErrNotFound)
	}
	if n.Read {
		return nil
	}
	n.Read = true
	n.ReadAt = &at
	return nil
}

func (s *InMemoryStore) MarkAllRead(_ context.Context, role identity.Role, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var flipped int64
	for _, n := range s.notifications {
		if n.TargetRole == role && !n.Read {
			n.Read = true
			n.ReadAt = &at
			flipped++
		}
	}
	return flipped, nil
}
