package middleware

import (
	"net/http"

	"github.com/platinummonkey/accountgate/pkg/contextkeys"
	"github.com/platinummonkey/accountgate/pkg/observability"
	"github.com/platinummonkey/accountgate/pkg/session"
)

// SessionLoader binds the browser's session, if any, to the request context.
// It never rejects a request; the access gate decides what a missing session means.
type SessionLoader struct {
	manager *session.Manager
}

// NewSessionLoader creates a session loader
func NewSessionLoader(manager *session.Manager) *SessionLoader {
	return &SessionLoader{manager: manager}
}

// Handler wraps an HTTP handler with session loading
func (m *SessionLoader) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := m.manager.Load(r)
		if err != nil {
			observability.FromContext(r.Context()).WithError(err).Error("failed to load session")
		}
		if sess != nil {
			r = r.WithContext(contextkeys.WithSession(r.Context(), sess))
		}
		next.ServeHTTP(w, r)
	})
}
