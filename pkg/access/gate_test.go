package access

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/accountgate/pkg/auth"
	"github.com/platinummonkey/accountgate/pkg/observability"
	"github.com/platinummonkey/accountgate/pkg/storage/memory"
)

type fixture struct {
	accounts *memory.AccountStore
	sessions *memory.SessionStore
	metrics  *observability.Metrics
	gate     *Gate
}

func newFixture() *fixture {
	f := &fixture{
		accounts: memory.NewAccountStore(),
		sessions: memory.NewSessionStore(10, time.Hour),
		metrics:  observability.NewMetrics(prometheus.NewRegistry()),
	}
	f.gate = NewGate(f.accounts, f.sessions, f.metrics, observability.NopLogger())
	return f
}

// login stores acct and a session snapshot of it
func (f *fixture) login(t *testing.T, acct *auth.Account) *auth.Session {
	t.Helper()
	stored, err := f.accounts.Create(context.Background(), acct)
	require.NoError(t, err)

	sess := &auth.Session{
		ID:        "sess-" + stored.Email,
		AccountID: stored.ID,
		Name:      stored.Name,
		Email:     stored.Email,
		Role:      stored.Role,
		Status:    stored.Status,
	}
	require.NoError(t, f.sessions.Save(context.Background(), sess))
	return sess
}

func TestGate_RequireSession(t *testing.T) {
	f := newFixture()

	err := f.gate.RequireSession(nil)
	assert.True(t, errors.Is(err, auth.ErrUnauthenticated))
	assert.Equal(t, auth.MsgNotLoggedIn, auth.MessageOf(err, ""))

	assert.NoError(t, f.gate.RequireSession(&auth.Session{}))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.GateDecisionsTotal.WithLabelValues(CheckSession, "deny")))
}

func TestGate_RequireRole(t *testing.T) {
	f := newFixture()

	tests := []struct {
		name string
		sess *auth.Session
		kind auth.Kind
	}{
		{"no session", nil, auth.KindUnauthenticated},
		{"basic user", &auth.Session{Role: auth.RoleBasicUser}, auth.KindForbidden},
		{"unnormalized snapshot is exact-matched", &auth.Session{Role: " Admin "}, auth.KindForbidden},
		{"admin", &auth.Session{Role: auth.RoleAdmin}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.gate.RequireRole(tt.sess, auth.RoleAdmin)
			assert.Equal(t, tt.kind, auth.KindOf(err))
		})
	}
}

func TestGate_NormalizedRolePassesAfterCreation(t *testing.T) {
	f := newFixture()
	sess := f.login(t, &auth.Account{Name: "A", Email: "a@x.com", Role: auth.NormalizeRole(" Admin "), Status: auth.StatusActive})

	_, err := f.gate.Admin(context.Background(), sess)
	assert.NoError(t, err)
}

// A suspension must bite on the very next gate evaluation even though the
// session snapshot still says active.
func TestGate_SuspensionTakesEffectImmediately(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sess := f.login(t, &auth.Account{Name: "Admin", Email: "admin@x.com", Role: auth.RoleAdmin, Status: auth.StatusActive})

	acct, err := f.gate.Admin(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, sess.AccountID, acct.ID)

	_, err = f.accounts.Update(ctx, sess.AccountID, func(a *auth.Account) error {
		a.Status = auth.StatusDeactivated
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, auth.StatusActive, sess.Status, "snapshot is stale by construction")

	_, err = f.gate.Admin(ctx, sess)
	require.Error(t, err)
	assert.True(t, errors.Is(err, auth.ErrSuspended))
	assert.Equal(t, auth.MsgSuspended, auth.MessageOf(err, ""))

	_, err = f.sessions.Get(ctx, sess.ID)
	assert.True(t, errors.Is(err, auth.ErrNotFound), "suspended session must be revoked")

	_, err = f.gate.Owner(ctx, sess)
	assert.True(t, errors.Is(err, auth.ErrSuspended))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.GateDecisionsTotal.WithLabelValues(CheckActive, "deny")))
}

func TestGate_RoleCheckedBeforeStoreRead(t *testing.T) {
	f := newFixture()
	sess := &auth.Session{ID: "x", AccountID: 404, Role: auth.RoleBasicUser}

	_, err := f.gate.Admin(context.Background(), sess)
	assert.Equal(t, auth.KindForbidden, auth.KindOf(err))
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.GateDecisionsTotal.WithLabelValues(CheckActive, "deny")))
}

func TestGate_MissingAccount(t *testing.T) {
	f := newFixture()
	sess := &auth.Session{ID: "orphan", AccountID: 404, Role: auth.RoleBasicUser}
	require.NoError(t, f.sessions.Save(context.Background(), sess))

	_, err := f.gate.Owner(context.Background(), sess)
	assert.True(t, errors.Is(err, auth.ErrNotFound))
	assert.Equal(t, auth.MsgUserNotFound, auth.MessageOf(err, ""))
	assert.Equal(t, 0, f.sessions.Len())
}

type failingStore struct {
	*memory.AccountStore
}

func (failingStore) GetByID(ctx context.Context, id int64) (*auth.Account, error) {
	return nil, errors.New("connection reset")
}

func TestGate_StoreFailure(t *testing.T) {
	gate := NewGate(failingStore{memory.NewAccountStore()}, nil, nil, observability.NopLogger())

	_, err := gate.Owner(context.Background(), &auth.Session{AccountID: 1})
	assert.Equal(t, auth.KindStore, auth.KindOf(err))
}
