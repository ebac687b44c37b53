package storage

import (
	"context"
	"time"

	"github.com/platinummonkey/accountgate/pkg/auth"
)

// AccountStore persists accounts keyed by a store-assigned id with a unique email.
//
// Implementations must keep email unique under concurrent writers: the uniqueness check
// and the write happen in one transaction (postgres) or under one lock (memory).
// Lookups that find nothing return an *auth.Error of kind KindNotFound.
type AccountStore interface {
	// GetByID reads an account straight from the primary store
	GetByID(ctx context.Context, id int64) (*auth.Account, error)

	// GetByEmail reads an account by its identity key
	GetByEmail(ctx context.Context, email string) (*auth.Account, error)

	// FindOrCreate returns the account owning acct.Email, creating it from acct when absent.
	// The returned record is the persisted one; created reports whether an insert happened.
	FindOrCreate(ctx context.Context, acct *auth.Account) (stored *auth.Account, created bool, err error)

	// Create inserts a new account, failing with KindConflict when the email is taken
	Create(ctx context.Context, acct *auth.Account) (*auth.Account, error)

	// Update loads the account, applies mutate, and writes it back atomically.
	// A mutate error aborts the update and is returned unchanged.
	Update(ctx context.Context, id int64, mutate func(*auth.Account) error) (*auth.Account, error)

	// List returns every account in store order
	List(ctx context.Context) ([]*auth.Account, error)

	// CountByStatus returns the number of accounts per status
	CountByStatus(ctx context.Context) (map[auth.Status]int64, error)
}

// SessionStore keeps server-side sessions by opaque id
type SessionStore interface {
	Save(ctx context.Context, session *auth.Session) error
	// Get returns KindNotFound when the id is unknown or expired
	Get(ctx context.Context, id string) (*auth.Session, error)
	Delete(ctx context.Context, id string) error
}

// StateStore holds anti-forgery state values between redirect and callback
type StateStore interface {
	Put(ctx context.Context, state string) error
	// Consume removes state and reports whether it was present. A second call for the
	// same value always returns false.
	Consume(ctx context.Context, state string) (bool, error)
}

// Config for storage backends
type Config struct {
	// AccountBackend is "postgres" or "memory"
	AccountBackend string `yaml:"account_backend" env:"ACCOUNT_BACKEND"`
	// SessionBackend is "redis" or "memory"; it also holds login state values
	SessionBackend string `yaml:"session_backend" env:"SESSION_BACKEND"`

	// PostgreSQL config
	PostgresURL         string        `yaml:"postgres_url" env:"POSTGRES_URL"`
	PostgresReplicaURLs []string      `yaml:"postgres_replica_urls" env:"POSTGRES_REPLICA_URLS" envSeparator:","`
	PostgresMaxConns    int           `yaml:"postgres_max_conns" env:"POSTGRES_MAX_CONNS"`
	PostgresMinConns    int           `yaml:"postgres_min_conns" env:"POSTGRES_MIN_CONNS"`
	PostgresTimeout     time.Duration `yaml:"postgres_timeout" env:"POSTGRES_TIMEOUT"`
	PostgresMaxLifetime time.Duration `yaml:"postgres_max_lifetime" env:"POSTGRES_MAX_LIFETIME"`
	PostgresMaxIdleTime time.Duration `yaml:"postgres_max_idle_time" env:"POSTGRES_MAX_IDLE_TIME"`

	// Redis config
	RedisURL        string `yaml:"redis_url" env:"REDIS_URL"`
	RedisPassword   string `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB         int    `yaml:"redis_db" env:"REDIS_DB"`
	RedisMaxRetries int    `yaml:"redis_max_retries" env:"REDIS_MAX_RETRIES"`
	RedisPoolSize   int    `yaml:"redis_pool_size" env:"REDIS_POOL_SIZE"`
	RedisKeyPrefix  string `yaml:"redis_key_prefix" env:"REDIS_KEY_PREFIX"`

	// Lifetimes
	SessionTTL time.Duration `yaml:"session_ttl" env:"SESSION_TTL"`
	StateTTL   time.Duration `yaml:"state_ttl" env:"STATE_TTL"`

	// Memory backend capacity (sessions and states each)
	MemoryCapacity int `yaml:"memory_capacity" env:"MEMORY_CAPACITY"`
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		AccountBackend:      "memory",
		SessionBackend:      "memory",
		PostgresMaxConns:    15,
		PostgresMinConns:    5,
		PostgresTimeout:     30 * time.Second,
		PostgresMaxLifetime: 30 * time.Minute,
		PostgresMaxIdleTime: 5 * time.Minute,
		RedisDB:             0,
		RedisMaxRetries:     3,
		RedisPoolSize:       10,
		RedisKeyPrefix:      "accountgate:",
		SessionTTL:          8 * time.Hour,
		StateTTL:            10 * time.Minute,
		MemoryCapacity:      10000,
	}
}
