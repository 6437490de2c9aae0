// Package revocation tracks revoked access-token ids until their natural
// expiry. Logout writes here; the authentication middleware checks here
// before trusting an otherwise valid token.
package revocation

import (
	"context"
	"sync"
	"time"
)

// Denylist is the interface the identity service consumes.
type Denylist interface {
	// Revoke marks jti revoked for ttl. A non-positive ttl is a no-op: the
	// token is already expired and will never validate again.
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	// IsRevoked reports whether jti is currently revoked.
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// InMemoryDenylist is the single-instance fallback when Redis is not
// configured. Entries expire lazily on read.
type InMemoryDenylist struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewInMemory() *InMemoryDenylist {
	return &InMemoryDenylist{entries: make(map[string]time.Time), now: time.Now}
}

func (d *InMemoryDenylist) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[jti] = d.now().Add(ttl)
	return nil
}

func (d *InMemoryDenylist) IsRevoked(_ context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	d.mu.RLock()
	until, ok := d.entries[jti]
	d.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if d.now().After(until) {
		d.mu.Lock()
		delete(d.entries, jti)
		d.mu.Unlock()
		return false, nil
	}
	return true, nil
}
