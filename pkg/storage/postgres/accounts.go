package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/platinummonkey/accountgate/pkg/auth"
)

// uniqueViolation is the SQLSTATE raised by the accounts.email constraint
const uniqueViolation = "23505"

const accountColumns = `id, name, email, role, status`

// AccountStore implements storage.AccountStore on the accounts table.
// Writes and live status reads go to the primary; List may be served by a replica.
type AccountStore struct {
	conns *ConnectionManager
}

// NewAccountStore creates an account store over the given connections
func NewAccountStore(conns *ConnectionManager) *AccountStore {
	return &AccountStore{conns: conns}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row rowScanner) (*auth.Account, error) {
	var (
		acct   auth.Account
		role   string
		status string
	)
	if err := row.Scan(&acct.ID, &acct.Name, &acct.Email, &role, &status); err != nil {
		return nil, err
	}
	acct.Role = auth.Role(role)
	acct.Status = auth.Status(status)
	return &acct, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func storeError(op string, err error) error {
	return auth.E(auth.KindStore, op, "", err)
}

// GetByID reads an account from the primary
func (s *AccountStore) GetByID(ctx context.Context, id int64) (*auth.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	acct, err := scanAccount(s.conns.Primary().QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.E(auth.KindNotFound, "postgres.GetByID", "User not found", nil)
	}
	if err != nil {
		return nil, storeError("postgres.GetByID", err)
	}
	return acct, nil
}

// GetByEmail reads an account by its email from the primary
func (s *AccountStore) GetByEmail(ctx context.Context, email string) (*auth.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`

	acct, err := scanAccount(s.conns.Primary().QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.E(auth.KindNotFound, "postgres.GetByEmail", "User not found", nil)
	}
	if err != nil {
		return nil, storeError("postgres.GetByEmail", err)
	}
	return acct, nil
}

// FindOrCreate inserts acct unless its email exists and returns the persisted row.
// RETURNING yields the inserted row, so the caller never sees column defaults it did not write.
func (s *AccountStore) FindOrCreate(ctx context.Context, acct *auth.Account) (*auth.Account, bool, error) {
	query := `
		INSERT INTO accounts (name, email, role, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO NOTHING
		RETURNING ` + accountColumns

	stored, err := scanAccount(s.conns.Primary().QueryRowContext(ctx, query,
		acct.Name, acct.Email, string(acct.Role), string(acct.Status)))
	if err == nil {
		return stored, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, storeError("postgres.FindOrCreate", err)
	}

	// Conflict: the row already exists
	existing, err := s.GetByEmail(ctx, acct.Email)
	if err != nil {
		return nil, false, fmt.Errorf("postgres.FindOrCreate: %w", err)
	}
	return existing, false, nil
}

// Create inserts a new account. The unique constraint decides races between concurrent creates.
func (s *AccountStore) Create(ctx context.Context, acct *auth.Account) (*auth.Account, error) {
	query := `
		INSERT INTO accounts (name, email, role, status)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + accountColumns

	stored, err := scanAccount(s.conns.Primary().QueryRowContext(ctx, query,
		acct.Name, acct.Email, string(acct.Role), string(acct.Status)))
	if isUniqueViolation(err) {
		return nil, auth.E(auth.KindConflict, "postgres.Create", "User with this email already exists", err)
	}
	if err != nil {
		return nil, storeError("postgres.Create", err)
	}
	return stored, nil
}

// Update locks the row, applies mutate and writes it back in one transaction.
// Any failure rolls the transaction back.
func (s *AccountStore) Update(ctx context.Context, id int64, mutate func(*auth.Account) error) (*auth.Account, error) {
	tx, err := s.conns.Primary().BeginTx(ctx, nil)
	if err != nil {
		return nil, storeError("postgres.Update", fmt.Errorf("begin transaction: %w", err))
	}
	defer tx.Rollback()

	selectQuery := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`
	acct, err := scanAccount(tx.QueryRowContext(ctx, selectQuery, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.E(auth.KindNotFound, "postgres.Update", "User not found", nil)
	}
	if err != nil {
		return nil, storeError("postgres.Update", err)
	}

	if err := mutate(acct); err != nil {
		return nil, err
	}

	updateQuery := `
		UPDATE accounts
		SET name = $1, email = $2, role = $3, status = $4
		WHERE id = $5
		RETURNING ` + accountColumns

	updated, err := scanAccount(tx.QueryRowContext(ctx, updateQuery,
		acct.Name, acct.Email, string(acct.Role), string(acct.Status), id))
	if isUniqueViolation(err) {
		return nil, auth.E(auth.KindConflict, "postgres.Update", "Email already in use", err)
	}
	if err != nil {
		return nil, storeError("postgres.Update", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storeError("postgres.Update", fmt.Errorf("commit: %w", err))
	}
	return updated, nil
}

// List returns all accounts ordered by id
func (s *AccountStore) List(ctx context.Context) ([]*auth.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY id`

	rows, err := s.conns.Replica().QueryContext(ctx, query)
	if err != nil {
		return nil, storeError("postgres.List", err)
	}
	defer rows.Close()

	accounts := make([]*auth.Account, 0)
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, storeError("postgres.List", err)
		}
		accounts = append(accounts, acct)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("postgres.List", err)
	}
	return accounts, nil
}

// CountByStatus returns the number of accounts per status
func (s *AccountStore) CountByStatus(ctx context.Context) (map[auth.Status]int64, error) {
	query := `SELECT status, COUNT(*) FROM accounts GROUP BY status`

	rows, err := s.conns.Replica().QueryContext(ctx, query)
	if err != nil {
		return nil, storeError("postgres.CountByStatus", err)
	}
	defer rows.Close()

	counts := make(map[auth.Status]int64)
	for rows.Next() {
		var (
			status string
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, storeError("postgres.CountByStatus", err)
		}
		counts[auth.Status(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("postgres.CountByStatus", err)
	}
	return counts, nil
}
