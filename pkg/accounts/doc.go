// Package accounts implements account administration: create, update, status change,
// self-service profile update and listing.
//
// Each operation passes the requester's session through access.Gate first. Admin
// operations require the admin role from the session snapshot and an active account
// confirmed live against the store; the profile update only requires the latter.
//
// Email uniqueness is delegated to the store. Mutations go through
// storage.AccountStore.Update, whose callback runs inside the store transaction (or
// lock), so validation and the uniqueness check see the same state as the write.
package accounts
