// Package export assembles a user's full ledger into a portable JSON
// bundle. Used by the export endpoint and the CLI export mode.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rumor-ml/expensetrack/internal/domain"
	"github.com/rumor-ml/expensetrack/internal/store"
)

// Bundle is the complete export payload for one user. Transactions are
// newest first and include their tag associations.
type Bundle struct {
	ExportedAt   time.Time            `json:"exportedAt"`
	UserID       string               `json:"userId"`
	Accounts     []domain.Account     `json:"accounts"`
	Categories   []domain.Category    `json:"categories"`
	Merchants    []domain.Merchant    `json:"merchants"`
	Tags         []domain.Tag         `json:"tags"`
	Goals        []domain.Goal        `json:"goals"`
	Transactions []domain.Transaction `json:"transactions"`
}

// Build loads the user's entire ledger from the store.
func Build(ctx context.Context, st *store.Store, userID string) (*Bundle, error) {
	b := &Bundle{ExportedAt: time.Now().UTC(), UserID: userID}

	var err error
	if b.Accounts, err = st.ListAccounts(ctx, userID); err != nil {
		return nil, fmt.Errorf("exporting accounts: %w", err)
	}
	if b.Categories, err = st.ListCategories(ctx, userID); err != nil {
		return nil, fmt.Errorf("exporting categories: %w", err)
	}
	if b.Merchants, err = st.ListMerchants(ctx, userID); err != nil {
		return nil, fmt.Errorf("exporting merchants: %w", err)
	}
	if b.Tags, err = st.ListTags(ctx, userID); err != nil {
		return nil, fmt.Errorf("exporting tags: %w", err)
	}
	if b.Goals, err = st.AllGoals(ctx, userID); err != nil {
		return nil, fmt.Errorf("exporting goals: %w", err)
	}
	if b.Transactions, _, err = st.ListTransactions(ctx, userID, store.ListOptions{}); err != nil {
		return nil, fmt.Errorf("exporting transactions: %w", err)
	}
	return b, nil
}

// Write serializes the bundle as indented JSON.
func Write(w io.Writer, b *Bundle) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("encoding export bundle: %w", err)
	}
	return nil
}
