package memory

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// StateStore holds pending login state values until they are consumed or expire
type StateStore struct {
	mu    sync.Mutex
	cache *lru.LRU[string, struct{}]
}

// NewStateStore creates a state store holding up to capacity values for ttl each
func NewStateStore(capacity int, ttl time.Duration) *StateStore {
	if capacity < 1 {
		capacity = 1
	}
	return &StateStore{
		cache: lru.NewLRU[string, struct{}](capacity, nil, ttl),
	}
}

// Put records a freshly issued state value
func (s *StateStore) Put(ctx context.Context, state string) error {
	s.cache.Add(state, struct{}{})
	return nil
}

// Consume removes state and reports whether it was pending.
// The lookup and removal happen under one lock so concurrent callbacks see it once.
func (s *StateStore) Consume(ctx context.Context, state string) (bool, error) {
	if state == "" {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cache.Get(state); !ok {
		return false, nil
	}
	s.cache.Remove(state)
	return true, nil
}
