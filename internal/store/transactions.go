package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rumor-ml/expensetrack/internal/domain"
	"github.com/rumor-ml/expensetrack/internal/ids"
)

// excludedFilter is the SQL fragment removing transactions carrying the
// reserved exclusion tag. Applied to every aggregate query; the tag name
// is bound as a parameter by the caller.
const excludedFilter = ` AND NOT EXISTS (
	SELECT 1 FROM transaction_tags tt
	JOIN tags tg ON tg.id = tt.tag_id AND tg.user_id = tt.user_id
	WHERE tt.transaction_id = t.id AND tt.user_id = t.user_id AND tg.name = ?
)`

// InsertTransactions writes a batch of transactions in one storage
// transaction. IDs and created_at are filled in when empty. Returns the
// number of rows inserted; on error nothing is committed.
func (s *Store) InsertTransactions(ctx context.Context, txns []domain.Transaction) (int, error) {
	if len(txns) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO transactions
		(id, user_id, txn_date, description, amount, direction, account_id, source,
		 upi_reference, dedup_key, raw_payload, category_id, merchant_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for i := range txns {
		t := &txns[i]
		if t.ID == "" {
			t.ID = ids.New("txn")
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		payload, err := json.Marshal(t.RawPayload)
		if err != nil {
			return 0, fmt.Errorf("failed to encode raw payload: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			t.ID, t.UserID, formatTime(t.TxnDate), t.Description, t.Amount.String(),
			string(t.Direction), t.AccountID, t.Source, t.UPIReference, t.DedupKey,
			string(payload), nullable(t.CategoryID), nullable(t.MerchantID),
			formatTime(t.CreatedAt)); err != nil {
			return 0, fmt.Errorf("failed to insert transaction %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit batch insert: %w", err)
	}
	return len(txns), nil
}

// CreateTransaction inserts one manually entered transaction.
func (s *Store) CreateTransaction(ctx context.Context, t *domain.Transaction) error {
	if t.ID == "" {
		t.ID = ids.New("txn")
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	_, err := s.InsertTransactions(ctx, []domain.Transaction{*t})
	return err
}

// GetTransaction loads one transaction with its tags.
func (s *Store) GetTransaction(ctx context.Context, userID, id string) (*domain.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, user_id, txn_date, description, amount, direction,
		account_id, source, upi_reference, dedup_key, raw_payload, category_id, merchant_id, created_at
		FROM transactions WHERE user_id = ? AND id = ?`, userID, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	tags, err := s.transactionTags(ctx, userID, []string{t.ID})
	if err != nil {
		return nil, err
	}
	t.Tags = tags[t.ID]
	return t, nil
}

// ListOptions narrows and pages the transaction log. Zero values mean
// "no filter"; Limit 0 means no paging.
type ListOptions struct {
	AccountID  string
	CategoryID string
	Direction  domain.Direction
	Search     string
	From       time.Time
	To         time.Time
	// ExcludeTagged drops transactions carrying the reserved exclusion
	// tag, matching the aggregate queries.
	ExcludeTagged bool
	Limit         int
	Offset        int
}

// ListTransactions returns the user's transactions newest-first plus the
// total row count before paging.
func (s *Store) ListTransactions(ctx context.Context, userID string, opts ListOptions) ([]domain.Transaction, int, error) {
	where := "WHERE user_id = ?"
	args := []any{userID}
	if opts.AccountID != "" {
		where += " AND account_id = ?"
		args = append(args, opts.AccountID)
	}
	if opts.CategoryID != "" {
		where += " AND category_id = ?"
		args = append(args, opts.CategoryID)
	}
	if opts.Direction != "" {
		where += " AND direction = ?"
		args = append(args, string(opts.Direction))
	}
	if opts.Search != "" {
		where += " AND description LIKE ? ESCAPE '\\'"
		args = append(args, "%"+escapeLike(opts.Search)+"%")
	}
	if !opts.From.IsZero() {
		where += " AND txn_date >= ?"
		args = append(args, formatTime(opts.From))
	}
	if !opts.To.IsZero() {
		where += " AND txn_date < ?"
		args = append(args, formatTime(opts.To))
	}
	if opts.ExcludeTagged {
		where += excludedFilter
		args = append(args, domain.ExclusionTagName)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions t "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	query := `SELECT id, user_id, txn_date, description, amount, direction, account_id, source,
		upi_reference, dedup_key, raw_payload, category_id, merchant_id, created_at
		FROM transactions t ` + where + " ORDER BY txn_date DESC, id"
	if opts.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, opts.Limit, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	var idsSeen []string
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *t)
		idsSeen = append(idsSeen, t.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	tags, err := s.transactionTags(ctx, userID, idsSeen)
	if err != nil {
		return nil, 0, err
	}
	for i := range out {
		out[i].Tags = tags[out[i].ID]
	}
	return out, total, nil
}

// UpdateTransaction rewrites the mutable fields of a transaction. Tags
// are replaced separately via SetTransactionTags.
func (s *Store) UpdateTransaction(ctx context.Context, t *domain.Transaction) error {
	res, err := s.db.ExecContext(ctx, `UPDATE transactions SET txn_date = ?, description = ?,
		amount = ?, direction = ?, account_id = ?, category_id = ?, merchant_id = ?
		WHERE user_id = ? AND id = ?`,
		formatTime(t.TxnDate), t.Description, t.Amount.String(), string(t.Direction),
		t.AccountID, nullable(t.CategoryID), nullable(t.MerchantID), t.UserID, t.ID)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	return requireRow(res, "transaction", t.ID)
}

// DeleteTransaction removes a transaction and its tag associations.
func (s *Store) DeleteTransaction(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if err := requireRow(res, "transaction", id); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM transaction_tags WHERE user_id = ? AND transaction_id = ?`, userID, id); err != nil {
		return fmt.Errorf("failed to delete tag associations: %w", err)
	}
	return nil
}

// KnownUPIRefs returns every non-empty UPI reference the user has
// already ingested, feeding the dedup resolver.
func (s *Store) KnownUPIRefs(ctx context.Context, userID string) ([]string, error) {
	return s.stringColumn(ctx,
		`SELECT upi_reference FROM transactions WHERE user_id = ? AND upi_reference != ''`, userID)
}

// KnownDedupKeys returns every non-empty dedup key the user has already
// ingested.
func (s *Store) KnownDedupKeys(ctx context.Context, userID string) ([]string, error) {
	return s.stringColumn(ctx,
		`SELECT dedup_key FROM transactions WHERE user_id = ? AND dedup_key != ''`, userID)
}

func (s *Store) stringColumn(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query identifiers: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan identifier: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// MonthCategorySpend sums the user's debit amounts for one category and
// month, skipping exclusion-tagged transactions. Uncategorized rows are
// never counted toward any category.
func (s *Store) MonthCategorySpend(ctx context.Context, userID, categoryID string, month domain.Month) (decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT t.amount FROM transactions t
		WHERE t.user_id = ? AND t.category_id = ? AND t.direction = ?
		AND t.txn_date >= ? AND t.txn_date < ?`+excludedFilter,
		userID, categoryID, string(domain.DirectionDebit),
		formatTime(month.Start()), formatTime(month.Next().Start()), domain.ExclusionTagName)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to query month spend: %w", err)
	}
	defer rows.Close()
	return sumAmounts(rows)
}

// MonthSpendByCategory sums the user's debit amounts per category for
// one month, exclusions applied. Uncategorized spend appears under the
// empty key.
func (s *Store) MonthSpendByCategory(ctx context.Context, userID string, month domain.Month) (map[string]decimal.Decimal, error) {
	return s.spendByCategoryBetween(ctx, userID, month.Start(), month.Next().Start())
}

// SpendByCategoryBetween sums debit amounts per category over an
// arbitrary time range, exclusions applied.
func (s *Store) SpendByCategoryBetween(ctx context.Context, userID string, from, to time.Time) (map[string]decimal.Decimal, error) {
	return s.spendByCategoryBetween(ctx, userID, from, to)
}

func (s *Store) spendByCategoryBetween(ctx context.Context, userID string, from, to time.Time) (map[string]decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT COALESCE(t.category_id, ''), t.amount FROM transactions t
		WHERE t.user_id = ? AND t.direction = ? AND t.txn_date >= ? AND t.txn_date < ?`+excludedFilter,
		userID, string(domain.DirectionDebit), formatTime(from), formatTime(to), domain.ExclusionTagName)
	if err != nil {
		return nil, fmt.Errorf("failed to query spend by category: %w", err)
	}
	defer rows.Close()

	out := make(map[string]decimal.Decimal)
	for rows.Next() {
		var categoryID, amount string
		if err := rows.Scan(&categoryID, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan spend row: %w", err)
		}
		d, err := parseAmount(amount)
		if err != nil {
			return nil, err
		}
		out[categoryID] = out[categoryID].Add(d)
	}
	return out, rows.Err()
}

// DailyDebits returns the user's debit total per day of the month (key
// is the day number starting at 1), exclusions applied. Feeds the
// pacing series.
func (s *Store) DailyDebits(ctx context.Context, userID string, month domain.Month) (map[int]decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT t.txn_date, t.amount FROM transactions t
		WHERE t.user_id = ? AND t.direction = ? AND t.txn_date >= ? AND t.txn_date < ?`+excludedFilter,
		userID, string(domain.DirectionDebit),
		formatTime(month.Start()), formatTime(month.Next().Start()), domain.ExclusionTagName)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily debits: %w", err)
	}
	defer rows.Close()

	out := make(map[int]decimal.Decimal)
	for rows.Next() {
		var dateStr, amount string
		if err := rows.Scan(&dateStr, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan daily debit: %w", err)
		}
		date, err := parseTime(dateStr)
		if err != nil {
			return nil, err
		}
		d, err := parseAmount(amount)
		if err != nil {
			return nil, err
		}
		day := date.Day()
		out[day] = out[day].Add(d)
	}
	return out, rows.Err()
}

// TransactionsBetween returns the user's transactions in [from, to)
// with tags loaded, oldest first. When excludeTagged is true the
// reserved exclusion tag is honored. Used by the analytics read models.
func (s *Store) TransactionsBetween(ctx context.Context, userID string, from, to time.Time, excludeTagged bool) ([]domain.Transaction, error) {
	query := `SELECT id, user_id, txn_date, description, amount, direction, account_id, source,
		upi_reference, dedup_key, raw_payload, category_id, merchant_id, created_at
		FROM transactions t WHERE user_id = ? AND txn_date >= ? AND txn_date < ?`
	args := []any{userID, formatTime(from), formatTime(to)}
	if excludeTagged {
		query += excludedFilter
		args = append(args, domain.ExclusionTagName)
	}
	query += " ORDER BY txn_date, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	var idsSeen []string
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
		idsSeen = append(idsSeen, t.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tags, err := s.transactionTags(ctx, userID, idsSeen)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Tags = tags[out[i].ID]
	}
	return out, nil
}

func sumAmounts(rows *sql.Rows) (decimal.Decimal, error) {
	total := decimal.Zero
	for rows.Next() {
		var amount string
		if err := rows.Scan(&amount); err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan amount: %w", err)
		}
		d, err := parseAmount(amount)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(d)
	}
	return total, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var t domain.Transaction
	var txnDate, amount, direction, payload, createdAt string
	var categoryID, merchantID sql.NullString
	err := row.Scan(&t.ID, &t.UserID, &txnDate, &t.Description, &amount, &direction,
		&t.AccountID, &t.Source, &t.UPIReference, &t.DedupKey, &payload,
		&categoryID, &merchantID, &createdAt)
	if err != nil {
		return nil, err
	}
	if t.TxnDate, err = parseTime(txnDate); err != nil {
		return nil, err
	}
	if t.Amount, err = parseAmount(amount); err != nil {
		return nil, err
	}
	t.Direction = domain.Direction(direction)
	t.CategoryID = fromNullable(categoryID)
	t.MerchantID = fromNullable(merchantID)
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &t.RawPayload); err != nil {
			return nil, fmt.Errorf("failed to decode raw payload: %w", err)
		}
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
