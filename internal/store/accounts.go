package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rumor-ml/expensetrack/internal/domain"
	"github.com/rumor-ml/expensetrack/internal/ids"
	"github.com/rumor-ml/expensetrack/internal/statement"
)

// CreateAccount inserts a new account for the user. The id is generated
// when empty. Returns ErrDuplicateName on a per-user name collision.
func (s *Store) CreateAccount(ctx context.Context, a *domain.Account) error {
	if a.ID == "" {
		a.ID = ids.New("acc")
	}
	taken, err := s.exists(ctx, `SELECT 1 FROM accounts WHERE user_id = ? AND name = ?`, a.UserID, a.Name)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("account %q: %w", a.Name, ErrDuplicateName)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, user_id, name, type, provider, account_number) VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Name, a.Type, a.Provider, a.AccountNumber)
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

// GetAccount loads one account owned by the user.
func (s *Store) GetAccount(ctx context.Context, userID, id string) (*domain.Account, error) {
	var a domain.Account
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, type, provider, account_number FROM accounts WHERE user_id = ? AND id = ?`,
		userID, id).Scan(&a.ID, &a.UserID, &a.Name, &a.Type, &a.Provider, &a.AccountNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	return &a, nil
}

// ListAccounts returns the user's accounts ordered by name.
func (s *Store) ListAccounts(ctx context.Context, userID string) ([]domain.Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, type, provider, account_number FROM accounts WHERE user_id = ? ORDER BY name`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var out []domain.Account
	for rows.Next() {
		var a domain.Account
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.Type, &a.Provider, &a.AccountNumber); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AccountMap returns the user's account-name-to-id map in the shape the
// statement parsers consume.
func (s *Store) AccountMap(ctx context.Context, userID string) (statement.AccountMap, error) {
	accounts, err := s.ListAccounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	m := make(statement.AccountMap, len(accounts))
	for _, a := range accounts {
		m[a.Name] = a.ID
	}
	return m, nil
}

// UpdateAccount rewrites the mutable fields of an account.
func (s *Store) UpdateAccount(ctx context.Context, a *domain.Account) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET name = ?, type = ?, provider = ?, account_number = ? WHERE user_id = ? AND id = ?`,
		a.Name, a.Type, a.Provider, a.AccountNumber, a.UserID, a.ID)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return requireRow(res, "account", a.ID)
}

// DeleteAccount removes an account owned by the user.
func (s *Store) DeleteAccount(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return requireRow(res, "account", id)
}

// requireRow converts a zero-row mutation into ErrNotFound.
func requireRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
	}
	return nil
}
