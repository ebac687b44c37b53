// Package access implements the gate every protected operation passes through.
//
// Role is read from the session snapshot. Status is never trusted from the snapshot:
// RequireActive reads the account from the store on every call, so a suspension made
// by an administrator takes effect on the suspended user's next request.
package access

import (
	"context"

	"github.com/platinummonkey/accountgate/pkg/auth"
	"github.com/platinummonkey/accountgate/pkg/observability"
	"github.com/platinummonkey/accountgate/pkg/storage"
)

// Check names, used as metric labels
const (
	CheckSession = "session"
	CheckRole    = "role"
	CheckActive  = "active"
)

// Gate composes the session, role and live status checks
type Gate struct {
	accounts storage.AccountStore
	sessions storage.SessionStore
	metrics  *observability.Metrics
	logger   *observability.Logger
}

// NewGate creates a gate. sessions is used to drop the sessions of suspended
// accounts; metrics may be nil.
func NewGate(accounts storage.AccountStore, sessions storage.SessionStore, metrics *observability.Metrics, logger *observability.Logger) *Gate {
	return &Gate{accounts: accounts, sessions: sessions, metrics: metrics, logger: logger}
}

// RequireSession fails with KindUnauthenticated when no session is bound
func (g *Gate) RequireSession(sess *auth.Session) error {
	if sess == nil {
		g.metrics.RecordGateDecision(CheckSession, false)
		return auth.E(auth.KindUnauthenticated, "access.RequireSession", auth.MsgNotLoggedIn, nil)
	}
	g.metrics.RecordGateDecision(CheckSession, true)
	return nil
}

// RequireRole fails with KindForbidden unless the snapshot role equals role exactly
func (g *Gate) RequireRole(sess *auth.Session, role auth.Role) error {
	if err := g.RequireSession(sess); err != nil {
		return err
	}
	if sess.Role != role {
		g.metrics.RecordGateDecision(CheckRole, false)
		return auth.E(auth.KindForbidden, "access.RequireRole", auth.MsgUnauthorized, nil)
	}
	g.metrics.RecordGateDecision(CheckRole, true)
	return nil
}

// RequireActive re-reads the session's account and fails with KindSuspended when it
// is no longer active, or KindNotFound when it no longer exists. In both cases the
// stored session is deleted. The fresh account is returned on success.
func (g *Gate) RequireActive(ctx context.Context, sess *auth.Session) (*auth.Account, error) {
	const op = "access.RequireActive"

	if err := g.RequireSession(sess); err != nil {
		return nil, err
	}

	acct, err := g.accounts.GetByID(ctx, sess.AccountID)
	if err != nil {
		if auth.KindOf(err) == auth.KindNotFound {
			g.metrics.RecordGateDecision(CheckActive, false)
			g.revoke(ctx, sess, "account no longer exists")
			return nil, auth.E(auth.KindNotFound, op, auth.MsgUserNotFound, err)
		}
		return nil, auth.E(auth.KindStore, op, "", err)
	}

	if !acct.IsActive() {
		g.metrics.RecordGateDecision(CheckActive, false)
		g.revoke(ctx, sess, "account is not active")
		return nil, auth.E(auth.KindSuspended, op, auth.MsgSuspended, nil)
	}

	g.metrics.RecordGateDecision(CheckActive, true)
	return acct, nil
}

// Admin requires a session with the admin role whose account is still active
func (g *Gate) Admin(ctx context.Context, sess *auth.Session) (*auth.Account, error) {
	if err := g.RequireRole(sess, auth.RoleAdmin); err != nil {
		return nil, err
	}
	return g.RequireActive(ctx, sess)
}

// Owner requires a session whose account is still active
func (g *Gate) Owner(ctx context.Context, sess *auth.Session) (*auth.Account, error) {
	return g.RequireActive(ctx, sess)
}

func (g *Gate) revoke(ctx context.Context, sess *auth.Session, reason string) {
	logger := g.logger.WithFields(map[string]interface{}{
		"account_id": sess.AccountID,
		"email":      sess.Email,
		"reason":     reason,
	})
	if g.sessions == nil || sess.ID == "" {
		logger.Warn("access denied")
		return
	}
	if err := g.sessions.Delete(ctx, sess.ID); err != nil {
		logger.WithError(err).Error("failed to revoke session")
		return
	}
	logger.Warn("access denied, session revoked")
}
