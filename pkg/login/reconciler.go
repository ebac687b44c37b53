package login

import (
	"context"
	"strings"

	"github.com/platinummonkey/accountgate/pkg/auth"
	"github.com/platinummonkey/accountgate/pkg/sso"
	"github.com/platinummonkey/accountgate/pkg/storage"
)

// Reconciler maps a provider profile to a local account
type Reconciler struct {
	accounts storage.AccountStore
}

// NewReconciler creates a reconciler over accounts
func NewReconciler(accounts storage.AccountStore) *Reconciler {
	return &Reconciler{accounts: accounts}
}

// Reconcile returns the account owning the profile's identity key, creating a
// basicuser/active account on first sight. The returned record is always the
// persisted one; login never changes role or status of an existing account.
func (r *Reconciler) Reconcile(ctx context.Context, profile *sso.Profile) (*auth.Account, bool, error) {
	const op = "login.Reconcile"

	if profile == nil {
		return nil, false, auth.E(auth.KindIdentity, op, "profile is empty", nil)
	}
	email := profile.PrimaryEmail()
	if email == "" {
		return nil, false, auth.E(auth.KindIdentity, op, "profile has neither mail nor userPrincipalName", nil)
	}

	name := strings.TrimSpace(profile.DisplayName)
	if name == "" {
		name = auth.PlaceholderName
	}

	acct, created, err := r.accounts.FindOrCreate(ctx, &auth.Account{
		Name:   name,
		Email:  email,
		Role:   auth.RoleBasicUser,
		Status: auth.StatusActive,
	})
	if err != nil {
		if auth.KindOf(err) == auth.KindStore {
			return nil, false, auth.E(auth.KindStore, op, "", err)
		}
		return nil, false, err
	}
	return acct, created, nil
}
