package login

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/platinummonkey/accountgate/pkg/auth"
	"github.com/platinummonkey/accountgate/pkg/storage"
)

// Issuer turns an active account into a stored session
type Issuer struct {
	sessions storage.SessionStore
	ttl      time.Duration
	now      func() time.Time
}

// NewIssuer creates an issuer writing to sessions
func NewIssuer(sessions storage.SessionStore, ttl time.Duration) *Issuer {
	return &Issuer{sessions: sessions, ttl: ttl, now: time.Now}
}

// Issue checks status before anything is created, then stores a snapshot of the
// account and returns it with the landing route for its role.
func (i *Issuer) Issue(ctx context.Context, acct *auth.Account) (*auth.Session, auth.Destination, error) {
	const op = "login.Issue"

	if !acct.IsActive() {
		return nil, auth.DestinationLogin, auth.E(auth.KindSuspended, op, auth.MsgSuspended, nil)
	}

	now := i.now().UTC()
	sess := &auth.Session{
		ID:        uuid.NewString(),
		AccountID: acct.ID,
		Name:      acct.Name,
		Email:     acct.Email,
		Role:      auth.NormalizeRole(string(acct.Role)),
		Status:    auth.NormalizeStatus(string(acct.Status)),
		IssuedAt:  now,
	}
	if i.ttl > 0 {
		sess.ExpiresAt = now.Add(i.ttl)
	}

	if err := i.sessions.Save(ctx, sess); err != nil {
		return nil, auth.DestinationLogin, auth.E(auth.KindStore, op, "", err)
	}
	return sess, auth.DestinationFor(sess.Role), nil
}
