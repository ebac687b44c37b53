package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/platinummonkey/accountgate/pkg/auth"
)

// StateStore holds pending login state values. Consume uses GETDEL so a value
// can be observed by at most one callback.
type StateStore struct {
	client *Client
	ttl    time.Duration
}

// NewStateStore creates a state store whose values expire after ttl
func NewStateStore(client *Client, ttl time.Duration) *StateStore {
	return &StateStore{client: client, ttl: ttl}
}

// Put records state. A collision with a pending value is reported as an error.
func (s *StateStore) Put(ctx context.Context, state string) error {
	ok, err := s.client.client.SetNX(ctx, s.client.key("state", state), "1", s.ttl).Result()
	if err != nil {
		return auth.E(auth.KindStore, "redis.PutState", "", err)
	}
	if !ok {
		return auth.E(auth.KindStore, "redis.PutState", "state already pending", nil)
	}
	return nil
}

// Consume atomically removes state and reports whether it was pending
func (s *StateStore) Consume(ctx context.Context, state string) (bool, error) {
	if state == "" {
		return false, nil
	}

	err := s.client.client.GetDel(ctx, s.client.key("state", state)).Err()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, auth.E(auth.KindStore, "redis.ConsumeState", "", err)
	}
	return true, nil
}
