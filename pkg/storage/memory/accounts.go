// Package memory provides in-process implementations of the storage contracts.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/platinummonkey/accountgate/pkg/auth"
)

// AccountStore keeps accounts in a map guarded by a single RWMutex.
// Every uniqueness check happens under the write lock together with the write.
type AccountStore struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]*auth.Account
	byEmail map[string]int64
}

// NewAccountStore creates an empty account store
func NewAccountStore() *AccountStore {
	return &AccountStore{
		byID:    make(map[int64]*auth.Account),
		byEmail: make(map[string]int64),
	}
}

// GetByID returns a copy of the account with the given id
func (s *AccountStore) GetByID(ctx context.Context, id int64) (*auth.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.byID[id]
	if !ok {
		return nil, auth.E(auth.KindNotFound, "memory.GetByID", "User not found", nil)
	}
	return clone(acct), nil
}

// GetByEmail returns a copy of the account owning email
func (s *AccountStore) GetByEmail(ctx context.Context, email string) (*auth.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[emailKey(email)]
	if !ok {
		return nil, auth.E(auth.KindNotFound, "memory.GetByEmail", "User not found", nil)
	}
	return clone(s.byID[id]), nil
}

// FindOrCreate returns the account for acct.Email, inserting acct when none exists
func (s *AccountStore) FindOrCreate(ctx context.Context, acct *auth.Account) (*auth.Account, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byEmail[emailKey(acct.Email)]; ok {
		return clone(s.byID[id]), false, nil
	}
	return clone(s.insertLocked(acct)), true, nil
}

// Create inserts acct, failing with KindConflict when the email is taken
func (s *AccountStore) Create(ctx context.Context, acct *auth.Account) (*auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[emailKey(acct.Email)]; ok {
		return nil, auth.E(auth.KindConflict, "memory.Create", "User with this email already exists", nil)
	}
	return clone(s.insertLocked(acct)), nil
}

// Update applies mutate to a copy of the account and stores it if the email stays unique
func (s *AccountStore) Update(ctx context.Context, id int64, mutate func(*auth.Account) error) (*auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[id]
	if !ok {
		return nil, auth.E(auth.KindNotFound, "memory.Update", "User not found", nil)
	}

	next := clone(current)
	if err := mutate(next); err != nil {
		return nil, err
	}
	next.ID = id

	oldKey, newKey := emailKey(current.Email), emailKey(next.Email)
	if oldKey != newKey {
		if _, taken := s.byEmail[newKey]; taken {
			return nil, auth.E(auth.KindConflict, "memory.Update", "Email already in use", nil)
		}
		delete(s.byEmail, oldKey)
		s.byEmail[newKey] = id
	}
	s.byID[id] = next

	return clone(next), nil
}

// List returns all accounts ordered by id
func (s *AccountStore) List(ctx context.Context) ([]*auth.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accounts := make([]*auth.Account, 0, len(s.byID))
	for _, acct := range s.byID {
		accounts = append(accounts, clone(acct))
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return accounts, nil
}

// CountByStatus returns the number of accounts per status
func (s *AccountStore) CountByStatus(ctx context.Context) (map[auth.Status]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[auth.Status]int64)
	for _, acct := range s.byID {
		counts[acct.Status]++
	}
	return counts, nil
}

func (s *AccountStore) insertLocked(acct *auth.Account) *auth.Account {
	s.nextID++
	stored := clone(acct)
	stored.ID = s.nextID
	s.byID[stored.ID] = stored
	s.byEmail[emailKey(stored.Email)] = stored.ID
	return stored
}

// emailKey matches the case-sensitive equality of the SQL unique constraint
func emailKey(email string) string {
	return strings.TrimSpace(email)
}

func clone(acct *auth.Account) *auth.Account {
	c := *acct
	return &c
}
