package store

import (
	"context"
	"fmt"
	"time"

	"github.com/rumor-ml/expensetrack/internal/domain"
	"github.com/rumor-ml/expensetrack/internal/ids"
)

// AlertExists reports whether an alert was already created for the
// (goal, threshold) pair. The evaluator's at-most-once guarantee rests
// on this check.
func (s *Store) AlertExists(ctx context.Context, userID, goalID string, threshold int) (bool, error) {
	return s.exists(ctx,
		`SELECT 1 FROM alerts WHERE user_id = ? AND goal_id = ? AND threshold = ?`,
		userID, goalID, threshold)
}

// CreateAlert records a threshold crossing. Commits immediately; alert
// creation is deliberately outside the ingestion batch transaction.
func (s *Store) CreateAlert(ctx context.Context, a *domain.Alert) error {
	if a.ID == "" {
		a.ID = ids.New("alert")
	}
	if a.TriggeredAt.IsZero() {
		a.TriggeredAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO alerts (id, user_id, goal_id, threshold, triggered_at, is_acknowledged)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.GoalID, a.Threshold, formatTime(a.TriggeredAt), a.IsAcknowledged)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// ListUnreadAlerts returns the user's unacknowledged alerts, newest
// first.
func (s *Store) ListUnreadAlerts(ctx context.Context, userID string) ([]domain.Alert, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, goal_id, threshold, triggered_at, is_acknowledged FROM alerts
		WHERE user_id = ? AND is_acknowledged = 0 ORDER BY triggered_at DESC, id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var out []domain.Alert
	for rows.Next() {
		var a domain.Alert
		var triggeredAt string
		if err := rows.Scan(&a.ID, &a.UserID, &a.GoalID, &a.Threshold, &triggeredAt, &a.IsAcknowledged); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		if a.TriggeredAt, err = parseTime(triggeredAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AcknowledgeAlert marks an alert read. Idempotent: acknowledging an
// already-acknowledged alert succeeds; a missing alert returns
// ErrNotFound.
func (s *Store) AcknowledgeAlert(ctx context.Context, userID, id string) error {
	owned, err := s.exists(ctx, `SELECT 1 FROM alerts WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return err
	}
	if !owned {
		return fmt.Errorf("alert %q: %w", id, ErrNotFound)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE alerts SET is_acknowledged = 1 WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("failed to acknowledge alert: %w", err)
	}
	return nil
}
