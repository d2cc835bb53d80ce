package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rumor-ml/expensetrack/internal/domain"
	"github.com/rumor-ml/expensetrack/internal/ids"
)

// CreateTag inserts a new tag for the user. Returns ErrDuplicateName on
// a per-user name collision.
func (s *Store) CreateTag(ctx context.Context, t *domain.Tag) error {
	if t.ID == "" {
		t.ID = ids.New("tag")
	}
	taken, err := s.exists(ctx, `SELECT 1 FROM tags WHERE user_id = ? AND name = ?`, t.UserID, t.Name)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("tag %q: %w", t.Name, ErrDuplicateName)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO tags (id, user_id, name) VALUES (?, ?, ?)`,
		t.ID, t.UserID, t.Name)
	if err != nil {
		return fmt.Errorf("failed to insert tag: %w", err)
	}
	return nil
}

// ListTags returns the user's tags ordered by name.
func (s *Store) ListTags(ctx context.Context, userID string) ([]domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name FROM tags WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	var out []domain.Tag
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteTag removes a tag and its transaction associations.
func (s *Store) DeleteTag(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tags WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}
	if err := requireRow(res, "tag", id); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM transaction_tags WHERE user_id = ? AND tag_id = ?`, userID, id); err != nil {
		return fmt.Errorf("failed to delete tag associations: %w", err)
	}
	return nil
}

// TagTransaction associates a tag with a transaction. Both must belong
// to the user; adding an existing association is a no-op.
func (s *Store) TagTransaction(ctx context.Context, userID, transactionID, tagID string) error {
	owned, err := s.exists(ctx, `SELECT 1 FROM transactions WHERE user_id = ? AND id = ?`, userID, transactionID)
	if err != nil {
		return err
	}
	if !owned {
		return fmt.Errorf("transaction %q: %w", transactionID, ErrNotFound)
	}
	owned, err = s.exists(ctx, `SELECT 1 FROM tags WHERE user_id = ? AND id = ?`, userID, tagID)
	if err != nil {
		return err
	}
	if !owned {
		return fmt.Errorf("tag %q: %w", tagID, ErrNotFound)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO transaction_tags (user_id, transaction_id, tag_id) VALUES (?, ?, ?)`,
		userID, transactionID, tagID)
	if err != nil {
		return fmt.Errorf("failed to tag transaction: %w", err)
	}
	return nil
}

// UntagTransaction removes a tag association. Removing a missing
// association is a no-op.
func (s *Store) UntagTransaction(ctx context.Context, userID, transactionID, tagID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM transaction_tags WHERE user_id = ? AND transaction_id = ? AND tag_id = ?`,
		userID, transactionID, tagID)
	if err != nil {
		return fmt.Errorf("failed to untag transaction: %w", err)
	}
	return nil
}

// SetTransactionTags replaces the full tag set of a transaction. Every
// tag id must belong to the user.
func (s *Store) SetTransactionTags(ctx context.Context, userID, transactionID string, tagIDs []string) error {
	for _, tagID := range tagIDs {
		owned, err := s.exists(ctx, `SELECT 1 FROM tags WHERE user_id = ? AND id = ?`, userID, tagID)
		if err != nil {
			return err
		}
		if !owned {
			return fmt.Errorf("tag %q: %w", tagID, ErrNotFound)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM transaction_tags WHERE user_id = ? AND transaction_id = ?`, userID, transactionID); err != nil {
		return fmt.Errorf("failed to clear tags: %w", err)
	}
	for _, tagID := range tagIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transaction_tags (user_id, transaction_id, tag_id) VALUES (?, ?, ?)`,
			userID, transactionID, tagID); err != nil {
			return fmt.Errorf("failed to insert tag association: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tag replacement: %w", err)
	}
	return nil
}

// transactionTags loads the tag entities for a set of transaction ids.
func (s *Store) transactionTags(ctx context.Context, userID string, txnIDs []string) (map[string][]domain.Tag, error) {
	out := make(map[string][]domain.Tag, len(txnIDs))
	if len(txnIDs) == 0 {
		return out, nil
	}

	query := `SELECT tt.transaction_id, t.id, t.user_id, t.name
		FROM transaction_tags tt
		JOIN tags t ON t.id = tt.tag_id AND t.user_id = tt.user_id
		WHERE tt.user_id = ? AND tt.transaction_id IN (` + placeholders(len(txnIDs)) + `)
		ORDER BY t.name`
	args := make([]any, 0, len(txnIDs)+1)
	args = append(args, userID)
	for _, id := range txnIDs {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var txnID string
		var t domain.Tag
		if err := rows.Scan(&txnID, &t.ID, &t.UserID, &t.Name); err != nil {
			return nil, fmt.Errorf("failed to scan transaction tag: %w", err)
		}
		out[txnID] = append(out[txnID], t)
	}
	return out, rows.Err()
}

// exclusionTagID returns the id of the reserved exclusion tag for the
// user, or "" when the user has not created it.
func (s *Store) exclusionTagID(ctx context.Context, userID string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM tags WHERE user_id = ? AND name = ?`, userID, domain.ExclusionTagName).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up exclusion tag: %w", err)
	}
	return id, nil
}

func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	b := make([]byte, 0, 2*n)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, '?')
	}
	return string(b)
}
