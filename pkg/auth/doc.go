// Package auth defines the account and session model shared by the login pipeline and
// account administration, together with the error taxonomy every core package returns.
//
// # Accounts
//
// An Account is keyed by a store-assigned ID and carries a unique email, a display name,
// a Role and a Status:
//
//	acct := &auth.Account{
//		Name:   "Ada",
//		Email:  "ada@example.com",
//		Role:   auth.NormalizeRole(" Admin "), // "admin"
//		Status: auth.NormalizeStatus(""),      // "active"
//	}
//
// Roles are RoleBasicUser and RoleAdmin. Statuses are StatusActive and StatusDeactivated;
// accounts are never deleted, they are deactivated.
//
// # Sessions
//
// A Session is a point-in-time snapshot of {name, email, role, status} taken at login.
// The access gate trusts the snapshot role but re-reads status from the account store
// before every administrative or account-mutating operation.
//
// # Errors
//
// Every failure is an *Error with a Kind:
//
//	KindProvider        identity provider / network failures
//	KindIdentity        missing identity claim, forged or replayed state
//	KindSuspended       account is not active
//	KindUnauthenticated no session bound to the request
//	KindForbidden       role mismatch
//	KindNotFound        account id does not resolve
//	KindConflict        email already taken
//	KindValidation      malformed input
//	KindStore           store failure (rolled back)
//
// Use errors.Is with the sentinels (auth.ErrConflict, ...) or KindOf to branch on kind.
package auth
