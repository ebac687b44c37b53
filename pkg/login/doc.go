// Package login implements the authorization-code login pipeline.
//
// A login runs as one strictly ordered sequence per request:
//
//	Begin:    new state -> StateStore.Put -> provider authorization URL
//	Complete: StateStore.Consume -> cookie state check -> code exchange ->
//	          profile fetch -> Reconciler.Reconcile -> Issuer.Issue
//
// Every failure is an *auth.Error. The HTTP layer turns KindSuspended into the
// suspension flash message and every other kind into the generic login failure
// message; it never shows raw errors to the user.
//
// Reconciler derives the identity key from the profile (mail, else userPrincipalName)
// and uses AccountStore.FindOrCreate so that a first login creates exactly one account
// even when two callbacks for the same identity race. Issuer refuses inactive accounts
// before any session exists.
package login
