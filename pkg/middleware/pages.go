package middleware

import (
	"net/http"

	"github.com/platinummonkey/accountgate/pkg/access"
	"github.com/platinummonkey/accountgate/pkg/auth"
	"github.com/platinummonkey/accountgate/pkg/contextkeys"
	"github.com/platinummonkey/accountgate/pkg/observability"
	"github.com/platinummonkey/accountgate/pkg/session"
)

// PageGuard protects rendered pages. Unlike the JSON endpoints it answers with
// redirects: no session goes home, a wrong role goes to the standard landing page
// and a suspended account is logged out with a flash message.
type PageGuard struct {
	gate    *access.Gate
	manager *session.Manager
}

// NewPageGuard creates a page guard
func NewPageGuard(gate *access.Gate, manager *session.Manager) *PageGuard {
	return &PageGuard{gate: gate, manager: manager}
}

// RequireSession redirects to / unless a session is bound
func (g *PageGuard) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := g.gate.RequireSession(contextkeys.GetSession(r.Context())); err != nil {
			http.Redirect(w, r, string(auth.DestinationHome), http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin redirects non-admins to the standard landing page and logs out
// admins whose account is no longer active
func (g *PageGuard) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := contextkeys.GetSession(r.Context())

		_, err := g.gate.Admin(r.Context(), sess)
		switch auth.KindOf(err) {
		case "":
			next.ServeHTTP(w, r)
		case auth.KindUnauthenticated:
			http.Redirect(w, r, string(auth.DestinationHome), http.StatusFound)
		case auth.KindForbidden:
			http.Redirect(w, r, string(auth.DestinationStandard), http.StatusFound)
		case auth.KindSuspended, auth.KindNotFound:
			g.logout(w, r, auth.MessageOf(err, auth.MsgSuspended))
		default:
			observability.FromContext(r.Context()).WithError(err).Error("admin page check failed")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	})
}

func (g *PageGuard) logout(w http.ResponseWriter, r *http.Request, msg string) {
	logger := observability.FromContext(r.Context())
	if err := g.manager.Clear(r.Context(), w, r); err != nil {
		logger.WithError(err).Error("failed to clear session")
	}
	if err := g.manager.AddFlash(w, r, msg); err != nil {
		logger.WithError(err).Error("failed to add flash")
	}
	http.Redirect(w, r, string(auth.DestinationLogin), http.StatusFound)
}
