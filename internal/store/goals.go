package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rumor-ml/expensetrack/internal/domain"
	"github.com/rumor-ml/expensetrack/internal/ids"
)

// UpsertGoal applies the natural-key upsert semantics for budget goals:
// a positive limit creates or updates the (category, month) goal, a zero
// or negative limit deletes it. Returns the stored goal, or nil when the
// call resulted in a delete or no-op.
func (s *Store) UpsertGoal(ctx context.Context, userID, categoryID string, month domain.Month, limit decimal.Decimal) (*domain.Goal, error) {
	if !limit.IsPositive() {
		_, err := s.db.ExecContext(ctx,
			`DELETE FROM goals WHERE user_id = ? AND category_id = ? AND month = ?`,
			userID, categoryID, string(month))
		if err != nil {
			return nil, fmt.Errorf("failed to delete goal: %w", err)
		}
		return nil, nil
	}

	nowT := time.Now()
	now := formatTime(nowT)
	existing, err := s.GetGoal(ctx, userID, categoryID, month)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		_, err := s.db.ExecContext(ctx,
			`UPDATE goals SET limit_amount = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
			limit.String(), now, existing.ID, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to update goal: %w", err)
		}
		existing.LimitAmount = limit
		existing.UpdatedAt = nowT
		return existing, nil
	}

	g := domain.Goal{
		ID:          ids.New("goal"),
		UserID:      userID,
		CategoryID:  categoryID,
		Month:       month,
		LimitAmount: limit,
		CreatedAt:   nowT,
		UpdatedAt:   nowT,
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO goals (id, user_id, category_id, month, limit_amount, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.UserID, g.CategoryID, string(g.Month), g.LimitAmount.String(), now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert goal: %w", err)
	}
	return &g, nil
}

// GetGoal loads the goal for one (category, month) pair.
func (s *Store) GetGoal(ctx context.Context, userID, categoryID string, month domain.Month) (*domain.Goal, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, category_id, month, limit_amount, created_at, updated_at FROM goals
		WHERE user_id = ? AND category_id = ? AND month = ?`,
		userID, categoryID, string(month))
	return scanGoal(row)
}

// ListGoals returns the user's goals for one month.
func (s *Store) ListGoals(ctx context.Context, userID string, month domain.Month) ([]domain.Goal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, category_id, month, limit_amount, created_at, updated_at FROM goals
		WHERE user_id = ? AND month = ? ORDER BY category_id`,
		userID, string(month))
	if err != nil {
		return nil, fmt.Errorf("failed to query goals: %w", err)
	}
	defer rows.Close()

	var out []domain.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

// AllGoals returns every goal the user holds, oldest month first. Used
// by the export bundle.
func (s *Store) AllGoals(ctx context.Context, userID string) ([]domain.Goal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, category_id, month, limit_amount, created_at, updated_at FROM goals
		WHERE user_id = ? ORDER BY month, category_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query goals: %w", err)
	}
	defer rows.Close()

	var out []domain.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

// HasGoals reports whether the user budgeted anything for the month.
// Decides the plan-vs-historical branch of the reconciler.
func (s *Store) HasGoals(ctx context.Context, userID string, month domain.Month) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM goals WHERE user_id = ? AND month = ?`, userID, string(month))
}

// DeleteGoalsForMonth removes every goal the user holds for the month.
func (s *Store) DeleteGoalsForMonth(ctx context.Context, userID string, month domain.Month) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM goals WHERE user_id = ? AND month = ?`, userID, string(month))
	if err != nil {
		return fmt.Errorf("failed to delete month goals: %w", err)
	}
	return nil
}

func scanGoal(row rowScanner) (*domain.Goal, error) {
	var g domain.Goal
	var month, limit, createdAt, updatedAt string
	err := row.Scan(&g.ID, &g.UserID, &g.CategoryID, &month, &limit, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("goal: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan goal: %w", err)
	}
	g.Month = domain.Month(month)
	if g.LimitAmount, err = parseAmount(limit); err != nil {
		return nil, err
	}
	if g.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if g.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &g, nil
}
