// Package store is the SQLite-backed repository. Every query and
// mutation is scoped to one user id; no method ever reads or writes
// across users. Amounts are persisted as exact decimal strings and
// summed in Go, never as floating point in SQL.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when an entity does not exist for the
// requesting user. An id owned by a different user is indistinguishable
// from a missing one.
var ErrNotFound = errors.New("not found")

// ErrDuplicateName is returned when a user already owns an entity of
// the same kind with the same name.
var ErrDuplicateName = errors.New("name already in use")

// Store wraps the SQLite handle. Safe for concurrent use; SQLite
// serializes writers internally.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and ensures the
// schema exists. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and matches
	// the single-writer ingestion model.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id             TEXT PRIMARY KEY,
	user_id        TEXT NOT NULL,
	name           TEXT NOT NULL,
	type           TEXT NOT NULL DEFAULT '',
	provider       TEXT NOT NULL DEFAULT '',
	account_number TEXT NOT NULL DEFAULT '',
	UNIQUE (user_id, name)
);

CREATE TABLE IF NOT EXISTS categories (
	id        TEXT PRIMARY KEY,
	user_id   TEXT NOT NULL,
	name      TEXT NOT NULL,
	is_income INTEGER NOT NULL DEFAULT 0,
	icon_name TEXT NOT NULL DEFAULT '',
	UNIQUE (user_id, name)
);

CREATE TABLE IF NOT EXISTS merchants (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	name        TEXT NOT NULL,
	category_id TEXT,
	UNIQUE (user_id, name)
);

CREATE TABLE IF NOT EXISTS tags (
	id      TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	name    TEXT NOT NULL,
	UNIQUE (user_id, name)
);

CREATE TABLE IF NOT EXISTS transactions (
	id            TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL,
	txn_date      TEXT NOT NULL,
	description   TEXT NOT NULL,
	amount        TEXT NOT NULL,
	direction     TEXT NOT NULL,
	account_id    TEXT NOT NULL,
	source        TEXT NOT NULL DEFAULT '',
	upi_reference TEXT NOT NULL DEFAULT '',
	dedup_key     TEXT NOT NULL DEFAULT '',
	raw_payload   TEXT NOT NULL DEFAULT '{}',
	category_id   TEXT,
	merchant_id   TEXT,
	created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transactions_user_date ON transactions (user_id, txn_date);
CREATE INDEX IF NOT EXISTS idx_transactions_user_category ON transactions (user_id, category_id);

CREATE TABLE IF NOT EXISTS transaction_tags (
	user_id        TEXT NOT NULL,
	transaction_id TEXT NOT NULL,
	tag_id         TEXT NOT NULL,
	PRIMARY KEY (transaction_id, tag_id)
);

CREATE TABLE IF NOT EXISTS goals (
	id            TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL,
	category_id   TEXT NOT NULL,
	month         TEXT NOT NULL,
	limit_amount  TEXT NOT NULL,
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL,
	UNIQUE (user_id, category_id, month)
);

CREATE TABLE IF NOT EXISTS alerts (
	id              TEXT PRIMARY KEY,
	user_id         TEXT NOT NULL,
	goal_id         TEXT NOT NULL,
	threshold       INTEGER NOT NULL,
	triggered_at    TEXT NOT NULL,
	is_acknowledged INTEGER NOT NULL DEFAULT 0
);
`

// timeLayout is RFC3339; lexicographic order matches chronological
// order, which the date-range queries rely on.
const timeLayout = time.RFC3339

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse stored timestamp %q: %w", s, err)
	}
	return t, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse stored amount %q: %w", s, err)
	}
	return d, nil
}

// nullable maps an empty string to SQL NULL for optional foreign keys.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func fromNullable(ns sql.NullString) string {
	if !ns.Valid {
		return ""
	}
	return ns.String
}

// exists runs an existence-check query with the given arguments.
func (s *Store) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("existence check failed: %w", err)
	}
	return true, nil
}
