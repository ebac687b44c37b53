package login

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/accountgate/pkg/audit"
	"github.com/platinummonkey/accountgate/pkg/auth"
	"github.com/platinummonkey/accountgate/pkg/observability"
	"github.com/platinummonkey/accountgate/pkg/sso"
	"github.com/platinummonkey/accountgate/pkg/sso/ssotest"
	"github.com/platinummonkey/accountgate/pkg/storage/memory"
)

type fixture struct {
	provider *ssotest.Server
	accounts *memory.AccountStore
	sessions *memory.SessionStore
	states   *memory.StateStore
	metrics  *observability.Metrics
	auditor  *audit.MemoryLogger
	logs     *bytes.Buffer
	flow     *Flow
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	provider := ssotest.NewServer()
	t.Cleanup(provider.Close)

	client, err := sso.NewAzureClient(provider.Config())
	require.NoError(t, err)

	f := &fixture{
		provider: provider,
		accounts: memory.NewAccountStore(),
		sessions: memory.NewSessionStore(100, time.Hour),
		states:   memory.NewStateStore(100, time.Minute),
		metrics:  observability.NewMetrics(prometheus.NewRegistry()),
		auditor:  audit.NewMemoryLogger(),
		logs:     &bytes.Buffer{},
	}
	f.flow = NewFlow(client, f.states, NewReconciler(f.accounts), NewIssuer(f.sessions, time.Hour),
		f.metrics, f.auditor, observability.NewLogger(observability.DebugLevel, f.logs))
	return f
}

// begin starts a login and registers code for profile at the fake provider
func (f *fixture) begin(t *testing.T, code string, profile sso.Profile) string {
	t.Helper()
	authURL, state, err := f.flow.Begin(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, authURL)
	f.provider.AddCode(code, profile)
	return state
}

func TestFlow_Begin(t *testing.T) {
	f := newFixture(t)

	authURL, state, err := f.flow.Begin(context.Background())
	require.NoError(t, err)

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, state, q.Get("state"))
	assert.Equal(t, ssotest.ClientID, q.Get("client_id"))
	assert.Equal(t, ssotest.RedirectURL, q.Get("redirect_uri"))
	assert.Equal(t, "User.Read", q.Get("scope"))

	_, other, err := f.flow.Begin(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, state, other)
}

func TestFlow_NewAccountGetsStandardLanding(t *testing.T) {
	f := newFixture(t)
	state := f.begin(t, "code-1", sso.Profile{ID: "1", DisplayName: "New User", Mail: "new@x.com"})

	res, err := f.flow.Complete(context.Background(), Callback{Code: "code-1", State: state, ExpectedState: state})
	require.NoError(t, err)

	assert.True(t, res.Created)
	assert.Equal(t, auth.DestinationStandard, res.Destination)
	assert.Equal(t, auth.RoleBasicUser, res.Account.Role)
	assert.Equal(t, auth.StatusActive, res.Account.Status)
	assert.Equal(t, "New User", res.Account.Name)

	stored, err := f.sessions.Get(context.Background(), res.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Account.ID, stored.AccountID)
	assert.Equal(t, "new@x.com", stored.Email)
	assert.Equal(t, auth.RoleBasicUser, stored.Role)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.LoginsTotal.WithLabelValues(OutcomeSuccess)))
	events := f.auditor.Events()
	require.Len(t, events, 1)
	assert.Equal(t, audit.EventTypeAuthLogin, events[0].Type)
}

func TestFlow_ExistingAdminGetsAdminLanding(t *testing.T) {
	f := newFixture(t)
	_, err := f.accounts.Create(context.Background(), &auth.Account{
		Name: "Admin", Email: "admin@x.com", Role: auth.RoleAdmin, Status: auth.StatusActive,
	})
	require.NoError(t, err)

	state := f.begin(t, "code-a", sso.Profile{ID: "a", DisplayName: "Renamed At Provider", Mail: "admin@x.com"})
	res, err := f.flow.Complete(context.Background(), Callback{Code: "code-a", State: state, ExpectedState: state})
	require.NoError(t, err)

	assert.False(t, res.Created)
	assert.Equal(t, auth.DestinationAdmin, res.Destination)
	assert.Equal(t, auth.RoleAdmin, res.Session.Role)
	assert.Equal(t, "Admin", res.Account.Name, "login must not rewrite stored fields")
}

func TestFlow_SuspendedAccountGetsNoSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.accounts.Create(context.Background(), &auth.Account{
		Name: "Gone", Email: "gone@x.com", Role: auth.RoleAdmin, Status: auth.StatusDeactivated,
	})
	require.NoError(t, err)

	state := f.begin(t, "code-s", sso.Profile{ID: "s", Mail: "gone@x.com"})
	res, err := f.flow.Complete(context.Background(), Callback{Code: "code-s", State: state, ExpectedState: state})

	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, auth.ErrSuspended))
	assert.Equal(t, auth.MsgSuspended, auth.MessageOf(err, ""))
	assert.Equal(t, 0, f.sessions.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.LoginsTotal.WithLabelValues(OutcomeSuspended)))
	assert.Contains(t, f.logs.String(), "gone@x.com")
}

func TestFlow_StateIsSingleUse(t *testing.T) {
	f := newFixture(t)
	state := f.begin(t, "code-r", sso.Profile{ID: "r", Mail: "replay@x.com"})

	_, err := f.flow.Complete(context.Background(), Callback{Code: "code-r", State: state, ExpectedState: state})
	require.NoError(t, err)

	f.provider.AddCode("code-r2", sso.Profile{ID: "r", Mail: "replay@x.com"})
	_, err = f.flow.Complete(context.Background(), Callback{Code: "code-r2", State: state, ExpectedState: state})
	require.Error(t, err)
	assert.Equal(t, auth.KindIdentity, auth.KindOf(err))
	assert.Equal(t, 1, f.provider.TokenRequests(), "replayed state must not reach the provider")
}

func TestFlow_StateFailures(t *testing.T) {
	tests := []struct {
		name string
		cb   func(state string) Callback
	}{
		{"missing state", func(string) Callback { return Callback{Code: "c"} }},
		{"unknown state", func(string) Callback { return Callback{Code: "c", State: "forged", ExpectedState: "forged"} }},
		{"cookie mismatch", func(s string) Callback { return Callback{Code: "c", State: s, ExpectedState: "other"} }},
		{"no cookie state", func(s string) Callback { return Callback{Code: "c", State: s} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			state := f.begin(t, "c", sso.Profile{ID: "x", Mail: "x@x.com"})

			_, err := f.flow.Complete(context.Background(), tt.cb(state))
			require.Error(t, err)
			assert.Equal(t, auth.KindIdentity, auth.KindOf(err))
			assert.Equal(t, 0, f.provider.TokenRequests())
		})
	}
}

func TestFlow_ProviderFailures(t *testing.T) {
	t.Run("provider reported error", func(t *testing.T) {
		f := newFixture(t)
		state := f.begin(t, "c", sso.Profile{ID: "x", Mail: "x@x.com"})

		_, err := f.flow.Complete(context.Background(), Callback{State: state, ExpectedState: state, ProviderError: "access_denied"})
		assert.Equal(t, auth.KindProvider, auth.KindOf(err))
	})

	t.Run("invalid code", func(t *testing.T) {
		f := newFixture(t)
		state := f.begin(t, "c", sso.Profile{ID: "x", Mail: "x@x.com"})

		_, err := f.flow.Complete(context.Background(), Callback{Code: "wrong", State: state, ExpectedState: state})
		assert.Equal(t, auth.KindProvider, auth.KindOf(err))
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.LoginsTotal.WithLabelValues(OutcomeProviderError)))
	})

	t.Run("profile non-2xx", func(t *testing.T) {
		f := newFixture(t)
		f.provider.SetProfileStatus(http.StatusInternalServerError)
		state := f.begin(t, "c", sso.Profile{ID: "x", Mail: "x@x.com"})

		_, err := f.flow.Complete(context.Background(), Callback{Code: "c", State: state, ExpectedState: state})
		assert.Equal(t, auth.KindProvider, auth.KindOf(err))
		accounts, _ := f.accounts.List(context.Background())
		assert.Empty(t, accounts)
	})

	t.Run("timeout", func(t *testing.T) {
		f := newFixture(t)
		f.provider.SetTokenDelay(5 * time.Second)
		state := f.begin(t, "c", sso.Profile{ID: "x", Mail: "x@x.com"})

		start := time.Now()
		_, err := f.flow.Complete(context.Background(), Callback{Code: "c", State: state, ExpectedState: state})
		assert.Equal(t, auth.KindProvider, auth.KindOf(err))
		assert.Less(t, time.Since(start), 4*time.Second)
	})
}

func TestFlow_MissingIdentityClaim(t *testing.T) {
	f := newFixture(t)
	state := f.begin(t, "c", sso.Profile{ID: "x", DisplayName: "No Mail"})

	_, err := f.flow.Complete(context.Background(), Callback{Code: "c", State: state, ExpectedState: state})
	require.Error(t, err)
	assert.Equal(t, auth.KindIdentity, auth.KindOf(err))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.LoginsTotal.WithLabelValues(OutcomeIdentityError)))
}

func TestReconciler(t *testing.T) {
	ctx := context.Background()

	t.Run("principal name fallback and placeholder name", func(t *testing.T) {
		r := NewReconciler(memory.NewAccountStore())
		acct, created, err := r.Reconcile(ctx, &sso.Profile{UserPrincipalName: " upn@x.com "})
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "upn@x.com", acct.Email)
		assert.Equal(t, auth.PlaceholderName, acct.Name)
	})

	t.Run("nil profile", func(t *testing.T) {
		_, _, err := NewReconciler(memory.NewAccountStore()).Reconcile(ctx, nil)
		assert.Equal(t, auth.KindIdentity, auth.KindOf(err))
	})

	t.Run("existing record is returned untouched", func(t *testing.T) {
		store := memory.NewAccountStore()
		existing, err := store.Create(ctx, &auth.Account{Name: "Old", Email: "a@x.com", Role: auth.RoleAdmin, Status: auth.StatusDeactivated})
		require.NoError(t, err)

		acct, created, err := NewReconciler(store).Reconcile(ctx, &sso.Profile{Mail: "a@x.com", DisplayName: "New"})
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, existing, acct)
	})

	t.Run("concurrent first logins create one account", func(t *testing.T) {
		store := memory.NewAccountStore()
		r := NewReconciler(store)

		var wg sync.WaitGroup
		ids := make(chan int64, 20)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				acct, _, err := r.Reconcile(ctx, &sso.Profile{Mail: "race@x.com"})
				if assert.NoError(t, err) {
					ids <- acct.ID
				}
			}()
		}
		wg.Wait()
		close(ids)

		var first int64
		for id := range ids {
			if first == 0 {
				first = id
			}
			assert.Equal(t, first, id)
		}
		all, _ := store.List(ctx)
		assert.Len(t, all, 1)
	})
}

func TestIssuer(t *testing.T) {
	ctx := context.Background()

	t.Run("never issues for inactive accounts", func(t *testing.T) {
		sessions := memory.NewSessionStore(10, time.Hour)
		issuer := NewIssuer(sessions, time.Hour)

		for _, role := range []auth.Role{auth.RoleAdmin, auth.RoleBasicUser, "", " Admin "} {
			for _, status := range []auth.Status{auth.StatusDeactivated, "suspended", " Deactivated "} {
				sess, dest, err := issuer.Issue(ctx, &auth.Account{ID: 1, Email: "a@x.com", Role: role, Status: status})
				assert.Nil(t, sess)
				assert.Equal(t, auth.DestinationLogin, dest)
				assert.True(t, errors.Is(err, auth.ErrSuspended), "role=%q status=%q", role, status)
			}
		}
		assert.Equal(t, 0, sessions.Len())
	})

	t.Run("role is normalized for routing", func(t *testing.T) {
		issuer := NewIssuer(memory.NewSessionStore(10, time.Hour), 2*time.Hour)
		fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		issuer.now = func() time.Time { return fixed }

		sess, dest, err := issuer.Issue(ctx, &auth.Account{ID: 9, Name: "A", Email: "a@x.com", Role: " Admin ", Status: "ACTIVE"})
		require.NoError(t, err)
		assert.Equal(t, auth.DestinationAdmin, dest)
		assert.Equal(t, auth.RoleAdmin, sess.Role)
		assert.Equal(t, auth.StatusActive, sess.Status)
		assert.Equal(t, fixed, sess.IssuedAt)
		assert.Equal(t, fixed.Add(2*time.Hour), sess.ExpiresAt)
		assert.NotEmpty(t, sess.ID)
	})
}
