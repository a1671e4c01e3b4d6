// Package session remembers the sponsor a visitor was attributed to so later
// visits without a referral signal keep the same sponsor.
package session

import (
	"context"
	"sync"
	"time"
)

// DefaultTTL is how long a sponsor id stays attached to a session.
const DefaultTTL = 24 * time.Hour

const keyPrefix = "coach:sponsor:"

// Store maps session keys to sponsor ids.
type Store interface {
	// Get returns the sponsor id for key, or "" when none is stored or it expired.
	Get(ctx context.Context, key string) (string, error)
	// Set stores the sponsor id for key for ttl.
	Set(ctx context.Context, key, sponsorID string, ttl time.Duration) error
}

type memoryEntry struct {
	sponsorID string
	expiresAt time.Time
}

// MemoryStore is a process local Store.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return "", nil
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return "", nil
	}
	return e.sponsorID, nil
}

func (s *MemoryStore) Set(_ context.Context, key, sponsorID string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{sponsorID: sponsorID, expiresAt: now.Add(ttl)}
	// Sweep expired entries every 1024 inserts.
	if len(s.entries)%1024 == 0 {
		for k, e := range s.entries {
			if !now.Before(e.expiresAt) {
				delete(s.entries, k)
			}
		}
	}
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
