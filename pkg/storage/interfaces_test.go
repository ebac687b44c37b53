package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestDefaultConfig tests the DefaultConfig function
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "memory", cfg.AccountBackend)
	assert.Equal(t, "memory", cfg.SessionBackend)
	assert.Equal(t, 15, cfg.PostgresMaxConns)
	assert.Equal(t, 5, cfg.PostgresMinConns)
	assert.Equal(t, 30*time.Second, cfg.PostgresTimeout)
	assert.Equal(t, 0, cfg.RedisDB)
	assert.Equal(t, 3, cfg.RedisMaxRetries)
	assert.Equal(t, 10, cfg.RedisPoolSize)
	assert.Equal(t, "accountgate:", cfg.RedisKeyPrefix)
	assert.Equal(t, 8*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 10*time.Minute, cfg.StateTTL)
	assert.Greater(t, cfg.MemoryCapacity, 0)
}
