package statestore

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrInvalidState is returned when a state token is unknown, already
	// consumed, or past its TTL. Terminal: callers must not retry.
	ErrInvalidState = errors.New("invalid or expired state")

	// ErrProviderMismatch is returned when a state token exists but belongs
	// to a different provider's flow.
	ErrProviderMismatch = errors.New("state provider mismatch")
)

// Entry is one pending authorization awaiting its provider callback.
type Entry struct {
	Redirect  string
	Provider  string
	CreatedAt time.Time
}

// Store tracks pending authorizations keyed by one-time state token.
// Implementations must make TakeIfValid atomic: a state is consumed at most
// once, and a provider mismatch must leave the entry untouched. A
// multi-instance deployment substitutes a shared backing store with the
// same semantics behind this interface.
type Store interface {
	Put(state string, e Entry)
	TakeIfValid(state, provider string) (Entry, error)
	Sweep() int
}

// MemoryStore is the process-local Store used in single-instance
// deployments.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
	ttl     time.Duration
	now     func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a store whose entries expire after ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]Entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Put inserts a pending authorization under state. CreatedAt defaults to
// the current time when unset.
func (s *MemoryStore) Put(state string, e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	s.entries[state] = e
}

// TakeIfValid retrieves and removes the entry for state. Expiry is checked
// here, so an aged entry is rejected even if the sweeper has not run yet.
func (s *MemoryStore) TakeIfValid(state, provider string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[state]
	if !ok {
		return Entry{}, ErrInvalidState
	}
	if s.now().Sub(e.CreatedAt) > s.ttl {
		delete(s.entries, state)
		return Entry{}, ErrInvalidState
	}
	if e.Provider != provider {
		// The entry belongs to another provider's flow; leave it in place.
		return Entry{}, ErrProviderMismatch
	}

	delete(s.entries, state)
	return e, nil
}

// Sweep evicts expired entries and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	evicted := 0
	for state, e := range s.entries {
		if now.Sub(e.CreatedAt) > s.ttl {
			delete(s.entries, state)
			evicted++
		}
	}
	return evicted
}

// Len reports the number of pending authorizations.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
