package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/platinummonkey/accountgate/pkg/auth"
)

// SessionStore keeps sessions as JSON values that expire with the session
type SessionStore struct {
	client *Client
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionStore creates a session store. ttl applies to sessions without an explicit expiry.
func NewSessionStore(client *Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl, now: time.Now}
}

// Save writes the session with a TTL matching its expiry
func (s *SessionStore) Save(ctx context.Context, session *auth.Session) error {
	if session.ID == "" {
		return auth.E(auth.KindValidation, "redis.SaveSession", "session id is required", nil)
	}

	ttl := s.ttl
	if !session.ExpiresAt.IsZero() {
		ttl = session.ExpiresAt.Sub(s.now())
		if ttl <= 0 {
			return nil
		}
	}

	data, err := json.Marshal(session)
	if err != nil {
		return auth.E(auth.KindStore, "redis.SaveSession", "", fmt.Errorf("failed to marshal session: %w", err))
	}

	if err := s.client.client.Set(ctx, s.client.key("session", session.ID), data, ttl).Err(); err != nil {
		return auth.E(auth.KindStore, "redis.SaveSession", "", err)
	}
	return nil
}

// Get returns the session or KindNotFound
func (s *SessionStore) Get(ctx context.Context, id string) (*auth.Session, error) {
	key := s.client.key("session", id)

	data, err := s.client.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, auth.E(auth.KindNotFound, "redis.GetSession", "session not found", nil)
	}
	if err != nil {
		return nil, auth.E(auth.KindStore, "redis.GetSession", "", err)
	}

	var session auth.Session
	if err := json.Unmarshal(data, &session); err != nil {
		// Corrupt entries are dropped so the browser falls back to a fresh login
		s.client.client.Del(ctx, key)
		return nil, auth.E(auth.KindNotFound, "redis.GetSession", "session not found", err)
	}
	if session.Expired(s.now()) {
		return nil, auth.E(auth.KindNotFound, "redis.GetSession", "session not found", nil)
	}
	return &session, nil
}

// Delete removes the session
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if err := s.client.client.Del(ctx, s.client.key("session", id)).Err(); err != nil {
		return auth.E(auth.KindStore, "redis.DeleteSession", "", err)
	}
	return nil
}
