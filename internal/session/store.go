package session

import (
	"context"
	"sync"
	"time"

	"github.com/Lixing-Zhang/storefront/internal/cart"
)

// Store persists carts between requests, keyed by session id.
type Store interface {
	// Load returns the session's cart, or a new empty cart if none is stored.
	Load(ctx context.Context, sessionID string) (*cart.Cart, error)
	// Save persists c and marks it clean.
	Save(ctx context.Context, c *cart.Cart) error
	// Delete drops the session's cart. Deleting a missing cart is not an error.
	Delete(ctx context.Context, sessionID string) error
}

type memoryEntry struct {
	lines     map[int64]int
	updatedAt time.Time
	expires   time.Time
}

// MemoryStore keeps carts in process memory. Entries expire after ttl.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates a store whose entries live for ttl after the
// last save.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Load(ctx context.Context, sessionID string) (*cart.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := cart.New(sessionID)
	e, ok := s.entries[sessionID]
	if !ok {
		return c, nil
	}
	if s.now().After(e.expires) {
		delete(s.entries, sessionID)
		return c, nil
	}
	for id, qty := range e.lines {
		c.Lines[id] = qty
	}
	c.UpdatedAt = e.updatedAt
	return c, nil
}

func (s *MemoryStore) Save(ctx context.Context, c *cart.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := make(map[int64]int, len(c.Lines))
	for id, qty := range c.Lines {
		lines[id] = qty
	}
	s.entries[c.SessionID] = memoryEntry{
		lines:     lines,
		updatedAt: c.UpdatedAt,
		expires:   s.now().Add(s.ttl),
	}
	c.MarkClean()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sessionID)
	return nil
}
