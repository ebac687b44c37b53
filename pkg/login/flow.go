package login

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/platinummonkey/accountgate/pkg/audit"
	"github.com/platinummonkey/accountgate/pkg/auth"
	"github.com/platinummonkey/accountgate/pkg/contextkeys"
	"github.com/platinummonkey/accountgate/pkg/observability"
	"github.com/platinummonkey/accountgate/pkg/sso"
	"github.com/platinummonkey/accountgate/pkg/storage"
)

// Provider is the identity provider client used by the flow
type Provider interface {
	Scopes() []string
	BuildAuthorizationURL(scopes []string, state string) string
	ExchangeCodeForToken(ctx context.Context, code string, scopes []string) (*oauth2.Token, error)
	FetchProfile(ctx context.Context, token *oauth2.Token) (*sso.Profile, error)
}

// Login outcomes, used as metric labels
const (
	OutcomeSuccess       = "success"
	OutcomeSuspended     = "suspended"
	OutcomeIdentityError = "identity_error"
	OutcomeProviderError = "provider_error"
	OutcomeStoreError    = "store_error"
)

// Callback carries what the provider redirect and the browser cookie hold
type Callback struct {
	Code  string
	State string
	// ExpectedState is the state remembered in the browser's cookie at redirect time
	ExpectedState string
	// ProviderError is the provider's error parameter, if it reported one
	ProviderError string
}

// Result of a completed login
type Result struct {
	Account     *auth.Account
	Session     *auth.Session
	Destination auth.Destination
	Created     bool
}

// Flow drives the authorization-code login: redirect, callback, reconcile, issue
type Flow struct {
	provider   Provider
	states     storage.StateStore
	reconciler *Reconciler
	issuer     *Issuer
	metrics    *observability.Metrics
	auditor    audit.Logger
	logger     *observability.Logger
}

// NewFlow wires a login flow. metrics may be nil.
func NewFlow(provider Provider, states storage.StateStore, reconciler *Reconciler, issuer *Issuer,
	metrics *observability.Metrics, auditor audit.Logger, logger *observability.Logger) *Flow {
	if auditor == nil {
		auditor = audit.NopLogger{}
	}
	return &Flow{
		provider:   provider,
		states:     states,
		reconciler: reconciler,
		issuer:     issuer,
		metrics:    metrics,
		auditor:    auditor,
		logger:     logger,
	}
}

// Begin records a fresh single-use state and returns the authorization URL and the state
func (f *Flow) Begin(ctx context.Context) (string, string, error) {
	state := uuid.NewString()
	if err := f.states.Put(ctx, state); err != nil {
		return "", "", auth.E(auth.KindStore, "login.Begin", "", err)
	}
	return f.provider.BuildAuthorizationURL(f.provider.Scopes(), state), state, nil
}

// Complete validates the callback and runs exchange, profile, reconcile and issue
// strictly in that order. The state is consumed before anything else so it can
// never be used twice, whatever the outcome.
func (f *Flow) Complete(ctx context.Context, cb Callback) (*Result, error) {
	res, identity, err := f.complete(ctx, cb)

	outcome := outcomeOf(err)
	f.metrics.RecordLogin(outcome)

	logger := f.requestLogger(ctx).WithFields(map[string]interface{}{
		"email":   identity,
		"outcome": outcome,
	})
	event := audit.Event{
		Type:       audit.EventTypeAuthLogin,
		Status:     audit.EventStatusSuccess,
		ActorEmail: identity,
	}

	if err != nil {
		event.Type = audit.EventTypeAuthLoginFailed
		event.Status = audit.StatusFor(err, auth.KindOf(err) == auth.KindSuspended)
		event.ErrorMessage = err.Error()
		if outcome == OutcomeSuspended || outcome == OutcomeIdentityError {
			logger.WithError(err).Warn("login rejected")
		} else {
			logger.WithError(err).Error("login failed")
		}
	} else {
		event.ActorID = res.Account.ID
		event.TargetID = res.Account.ID
		event.TargetEmail = res.Account.Email
		logger.WithFields(map[string]interface{}{
			"account_id": res.Account.ID,
			"created":    res.Created,
			"role":       res.Session.Role,
		}).Info("login succeeded")
	}
	_ = f.auditor.Record(ctx, event)

	return res, err
}

func (f *Flow) complete(ctx context.Context, cb Callback) (*Result, string, error) {
	const op = "login.Complete"
	identity := "unknown"

	if cb.State == "" {
		return nil, identity, auth.E(auth.KindIdentity, op, "missing state", nil)
	}
	fresh, err := f.states.Consume(ctx, cb.State)
	if err != nil {
		return nil, identity, auth.E(auth.KindStore, op, "", err)
	}
	if !fresh {
		return nil, identity, auth.E(auth.KindIdentity, op, "state is unknown, expired or already used", nil)
	}
	if cb.ExpectedState == "" || cb.ExpectedState != cb.State {
		return nil, identity, auth.E(auth.KindIdentity, op, "state does not match this browser", nil)
	}
	if cb.ProviderError != "" {
		return nil, identity, auth.E(auth.KindProvider, op, "", errors.New("provider returned error: "+cb.ProviderError))
	}

	token, err := f.provider.ExchangeCodeForToken(ctx, cb.Code, f.provider.Scopes())
	if err != nil {
		return nil, identity, err
	}

	profile, err := f.provider.FetchProfile(ctx, token)
	if err != nil {
		return nil, identity, err
	}
	if email := profile.PrimaryEmail(); email != "" {
		identity = email
	}

	acct, created, err := f.reconciler.Reconcile(ctx, profile)
	if err != nil {
		return nil, identity, err
	}

	sess, dest, err := f.issuer.Issue(ctx, acct)
	if err != nil {
		return nil, identity, err
	}

	return &Result{Account: acct, Session: sess, Destination: dest, Created: created}, identity, nil
}

func (f *Flow) requestLogger(ctx context.Context) *observability.Logger {
	if _, ok := ctx.Value(contextkeys.LoggerKey).(*observability.Logger); ok {
		return observability.FromContext(ctx)
	}
	if id := contextkeys.GetRequestID(ctx); id != "" {
		return f.logger.WithField("request_id", id)
	}
	return f.logger
}

func outcomeOf(err error) string {
	switch auth.KindOf(err) {
	case "":
		return OutcomeSuccess
	case auth.KindSuspended:
		return OutcomeSuspended
	case auth.KindIdentity:
		return OutcomeIdentityError
	case auth.KindProvider:
		return OutcomeProviderError
	default:
		return OutcomeStoreError
	}
}
