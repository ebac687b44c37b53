// Package session binds server-side sessions to browsers.
//
// The browser only holds a signed (and optionally encrypted) gorilla/sessions cookie
// carrying the opaque session id, the pending login state and flash messages. The
// session snapshot itself lives in a storage.SessionStore.
package session

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/sessions"

	"github.com/platinummonkey/accountgate/pkg/auth"
	"github.com/platinummonkey/accountgate/pkg/storage"
)

const (
	keySessionID = "sid"
	keyState     = "state"
)

// Config for the browser cookie
type Config struct {
	CookieName string        `yaml:"cookie_name" env:"COOKIE_NAME"`
	HashKey    string        `yaml:"hash_key" env:"HASH_KEY"`
	BlockKey   string        `yaml:"block_key" env:"BLOCK_KEY"`
	Secure     bool          `yaml:"secure" env:"SECURE"`
	MaxAge     time.Duration `yaml:"max_age" env:"MAX_AGE"`
}

// Manager reads and writes the session cookie
type Manager struct {
	store    sessions.Store
	sessions storage.SessionStore
	name     string
}

// NewManager creates a manager backed by a cookie store built from config
func NewManager(config Config, store storage.SessionStore) *Manager {
	keys := [][]byte{[]byte(config.HashKey)}
	if config.BlockKey != "" {
		keys = append(keys, []byte(config.BlockKey))
	}

	cookies := sessions.NewCookieStore(keys...)
	cookies.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(config.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: http.SameSiteLaxMode,
	}

	name := config.CookieName
	if name == "" {
		name = "accountgate"
	}
	return &Manager{store: cookies, sessions: store, name: name}
}

func (m *Manager) cookie(r *http.Request) *sessions.Session {
	// A cookie that fails to decode yields a fresh session, which is what we want
	// for tampered or rotated-key cookies.
	sess, _ := m.store.Get(r, m.name)
	return sess
}

// Load returns the session bound to the request, or nil when there is none or it
// has expired. Only store failures are returned as errors.
func (m *Manager) Load(r *http.Request) (*auth.Session, error) {
	id, _ := m.cookie(r).Values[keySessionID].(string)
	if id == "" {
		return nil, nil
	}

	sess, err := m.sessions.Get(r.Context(), id)
	if err != nil {
		if auth.KindOf(err) == auth.KindNotFound {
			return nil, nil
		}
		return nil, err
	}
	return sess, nil
}

// Bind points the browser at an issued session
func (m *Manager) Bind(w http.ResponseWriter, r *http.Request, sess *auth.Session) error {
	c := m.cookie(r)
	c.Values[keySessionID] = sess.ID
	return c.Save(r, w)
}

// Clear deletes the stored session and drops the session id from the cookie.
// Pending flashes survive so a logout or suspension notice can still be shown.
func (m *Manager) Clear(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	c := m.cookie(r)
	if id, _ := c.Values[keySessionID].(string); id != "" {
		if err := m.sessions.Delete(ctx, id); err != nil {
			return err
		}
	}
	delete(c.Values, keySessionID)
	delete(c.Values, keyState)
	return c.Save(r, w)
}

// SetState remembers the login state issued to this browser
func (m *Manager) SetState(w http.ResponseWriter, r *http.Request, state string) error {
	c := m.cookie(r)
	c.Values[keyState] = state
	return c.Save(r, w)
}

// PopState returns and forgets the remembered login state
func (m *Manager) PopState(w http.ResponseWriter, r *http.Request) (string, error) {
	c := m.cookie(r)
	state, _ := c.Values[keyState].(string)
	delete(c.Values, keyState)
	return state, c.Save(r, w)
}

// AddFlash queues a message for the next page render
func (m *Manager) AddFlash(w http.ResponseWriter, r *http.Request, msg string) error {
	c := m.cookie(r)
	c.AddFlash(msg)
	return c.Save(r, w)
}

// Flashes returns and clears the queued messages
func (m *Manager) Flashes(w http.ResponseWriter, r *http.Request) ([]string, error) {
	c := m.cookie(r)
	raw := c.Flashes()
	if len(raw) == 0 {
		return nil, nil
	}

	msgs := make([]string, 0, len(raw))
	for _, f := range raw {
		if s, ok := f.(string); ok {
			msgs = append(msgs, s)
		}
	}
	return msgs, c.Save(r, w)
}
