package memory

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/platinummonkey/accountgate/pkg/auth"
)

// SessionStore keeps sessions in an expiring LRU.
// The least recently used sessions are dropped once capacity is reached.
type SessionStore struct {
	cache *lru.LRU[string, auth.Session]
	now   func() time.Time
}

// NewSessionStore creates a session store holding up to capacity sessions for ttl each
func NewSessionStore(capacity int, ttl time.Duration) *SessionStore {
	if capacity < 1 {
		capacity = 1
	}
	return &SessionStore{
		cache: lru.NewLRU[string, auth.Session](capacity, nil, ttl),
		now:   time.Now,
	}
}

// Save stores a copy of session under its id
func (s *SessionStore) Save(ctx context.Context, session *auth.Session) error {
	if session.ID == "" {
		return auth.E(auth.KindValidation, "memory.SaveSession", "session id is required", nil)
	}
	s.cache.Add(session.ID, *session)
	return nil
}

// Get returns the session, or KindNotFound when it is unknown or expired
func (s *SessionStore) Get(ctx context.Context, id string) (*auth.Session, error) {
	session, ok := s.cache.Get(id)
	if !ok {
		return nil, auth.E(auth.KindNotFound, "memory.GetSession", "session not found", nil)
	}
	if session.Expired(s.now()) {
		s.cache.Remove(id)
		return nil, auth.E(auth.KindNotFound, "memory.GetSession", "session not found", nil)
	}
	return &session, nil
}

// Delete removes the session. Deleting an unknown id is not an error.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	s.cache.Remove(id)
	return nil
}

// Len returns the number of stored sessions, expired ones included until they are evicted
func (s *SessionStore) Len() int {
	return s.cache.Len()
}
