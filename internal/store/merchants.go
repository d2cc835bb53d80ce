package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rumor-ml/expensetrack/internal/domain"
	"github.com/rumor-ml/expensetrack/internal/ids"
)

// CreateMerchant inserts a new merchant for the user. Returns
// ErrDuplicateName on a per-user name collision.
func (s *Store) CreateMerchant(ctx context.Context, m *domain.Merchant) error {
	if m.ID == "" {
		m.ID = ids.New("mer")
	}
	taken, err := s.exists(ctx, `SELECT 1 FROM merchants WHERE user_id = ? AND name = ?`, m.UserID, m.Name)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("merchant %q: %w", m.Name, ErrDuplicateName)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO merchants (id, user_id, name, category_id) VALUES (?, ?, ?, ?)`,
		m.ID, m.UserID, m.Name, nullable(m.CategoryID))
	if err != nil {
		return fmt.Errorf("failed to insert merchant: %w", err)
	}
	return nil
}

// EnsureMerchant returns the id of the user's merchant with the given
// name, creating it (with the given default category) when missing.
func (s *Store) EnsureMerchant(ctx context.Context, userID, name, categoryID string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM merchants WHERE user_id = ? AND name = ?`, userID, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("failed to look up merchant: %w", err)
	}
	m := domain.Merchant{UserID: userID, Name: name, CategoryID: categoryID}
	if err := s.CreateMerchant(ctx, &m); err != nil {
		return "", err
	}
	return m.ID, nil
}

// GetMerchant loads one merchant owned by the user.
func (s *Store) GetMerchant(ctx context.Context, userID, id string) (*domain.Merchant, error) {
	var m domain.Merchant
	var categoryID sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, category_id FROM merchants WHERE user_id = ? AND id = ?`,
		userID, id).Scan(&m.ID, &m.UserID, &m.Name, &categoryID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("merchant %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load merchant: %w", err)
	}
	m.CategoryID = fromNullable(categoryID)
	return &m, nil
}

// ListMerchants returns the user's merchants ordered by name.
func (s *Store) ListMerchants(ctx context.Context, userID string) ([]domain.Merchant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, category_id FROM merchants WHERE user_id = ? ORDER BY name`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query merchants: %w", err)
	}
	defer rows.Close()

	var out []domain.Merchant
	for rows.Next() {
		var m domain.Merchant
		var categoryID sql.NullString
		if err := rows.Scan(&m.ID, &m.UserID, &m.Name, &categoryID); err != nil {
			return nil, fmt.Errorf("failed to scan merchant: %w", err)
		}
		m.CategoryID = fromNullable(categoryID)
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpdateMerchant rewrites the mutable fields of a merchant.
func (s *Store) UpdateMerchant(ctx context.Context, m *domain.Merchant) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE merchants SET name = ?, category_id = ? WHERE user_id = ? AND id = ?`,
		m.Name, nullable(m.CategoryID), m.UserID, m.ID)
	if err != nil {
		return fmt.Errorf("failed to update merchant: %w", err)
	}
	return requireRow(res, "merchant", m.ID)
}

// DeleteMerchant removes a merchant owned by the user.
func (s *Store) DeleteMerchant(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM merchants WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete merchant: %w", err)
	}
	return requireRow(res, "merchant", id)
}
