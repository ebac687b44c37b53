// Package storage defines the persistence contracts used by accountgate and the
// configuration shared by its backends.
//
// # Overview
//
// Three stores back the authentication pipeline:
//
//   - AccountStore: the account table, keyed by surrogate id with a unique email
//   - SessionStore: server-side sessions referenced by an opaque id in the browser cookie
//   - StateStore: single-use anti-forgery state values for the authorization-code flow
//
// # Backends
//
//	storage/postgres  AccountStore on database/sql + lib/pq (primary + optional replicas)
//	storage/redis     SessionStore and StateStore on go-redis
//	storage/memory    all three in process, for development and tests
//
// Select backends through Config.AccountBackend ("postgres" | "memory") and
// Config.SessionBackend ("redis" | "memory").
//
// # Consistency
//
// The account store is the only resource written by concurrent actors. Email uniqueness is
// enforced by the store itself: a UNIQUE constraint checked inside the writing transaction
// for postgres, a single mutex for memory. Update takes a mutate callback so the
// read-modify-write happens inside that same transaction or lock.
//
// State values are consumed atomically (GETDEL in redis), so a replayed callback can never
// observe the same state twice.
package storage
