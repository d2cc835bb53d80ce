package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rumor-ml/expensetrack/internal/domain"
	"github.com/rumor-ml/expensetrack/internal/ids"
)

// CreateCategory inserts a new category for the user. Returns
// ErrDuplicateName on a per-user name collision.
func (s *Store) CreateCategory(ctx context.Context, c *domain.Category) error {
	if c.ID == "" {
		c.ID = ids.New("cat")
	}
	taken, err := s.exists(ctx, `SELECT 1 FROM categories WHERE user_id = ? AND name = ?`, c.UserID, c.Name)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("category %q: %w", c.Name, ErrDuplicateName)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO categories (id, user_id, name, is_income, icon_name) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, c.IsIncome, c.IconName)
	if err != nil {
		return fmt.Errorf("failed to insert category: %w", err)
	}
	return nil
}

// EnsureCategory returns the id of the user's category with the given
// name, creating it when missing. Used by ingestion so rule hits never
// fail on a category the user has not created yet.
func (s *Store) EnsureCategory(ctx context.Context, userID, name string, isIncome bool) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM categories WHERE user_id = ? AND name = ?`, userID, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("failed to look up category: %w", err)
	}
	c := domain.Category{UserID: userID, Name: name, IsIncome: isIncome}
	if err := s.CreateCategory(ctx, &c); err != nil {
		return "", err
	}
	return c.ID, nil
}

// GetCategory loads one category owned by the user.
func (s *Store) GetCategory(ctx context.Context, userID, id string) (*domain.Category, error) {
	var c domain.Category
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, is_income, icon_name FROM categories WHERE user_id = ? AND id = ?`,
		userID, id).Scan(&c.ID, &c.UserID, &c.Name, &c.IsIncome, &c.IconName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load category: %w", err)
	}
	return &c, nil
}

// ListCategories returns the user's categories ordered by name.
func (s *Store) ListCategories(ctx context.Context, userID string) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, is_income, icon_name FROM categories WHERE user_id = ? ORDER BY name`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var out []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.IsIncome, &c.IconName); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// NonIncomeCategories returns the user's spending categories, the set
// the budget plan iterates over.
func (s *Store) NonIncomeCategories(ctx context.Context, userID string) ([]domain.Category, error) {
	all, err := s.ListCategories(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, c := range all {
		if !c.IsIncome {
			out = append(out, c)
		}
	}
	return out, nil
}

// UpdateCategory rewrites the mutable fields of a category.
func (s *Store) UpdateCategory(ctx context.Context, c *domain.Category) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, is_income = ?, icon_name = ? WHERE user_id = ? AND id = ?`,
		c.Name, c.IsIncome, c.IconName, c.UserID, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	return requireRow(res, "category", c.ID)
}

// DeleteCategory removes a category owned by the user. Transactions
// referencing it keep their category_id; the reference dangles rather
// than cascading, matching the soft referential model.
func (s *Store) DeleteCategory(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return requireRow(res, "category", id)
}
