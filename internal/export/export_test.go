package export

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rumor-ml/expensetrack/internal/domain"
	"github.com/rumor-ml/expensetrack/internal/store"
)

func TestBuildAndWrite(t *testing.T) {
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()
	const user = "user-1"

	account := &domain.Account{UserID: user, Name: "HDFC Bank", Type: "bank", Provider: "HDFC"}
	require.NoError(t, s.CreateAccount(ctx, account))
	foodID, err := s.EnsureCategory(ctx, user, "Food", false)
	require.NoError(t, err)
	_, err = s.EnsureMerchant(ctx, user, "Swiggy", foodID)
	require.NoError(t, err)
	tag := &domain.Tag{UserID: user, Name: "Weekend"}
	require.NoError(t, s.CreateTag(ctx, tag))
	_, err = s.UpsertGoal(ctx, user, foodID, "2024-03", decimal.NewFromInt(1000))
	require.NoError(t, err)

	txn := &domain.Transaction{
		UserID:      user,
		TxnDate:     time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		Description: "SWIGGY ORDER",
		Amount:      decimal.RequireFromString("200.00"),
		Direction:   domain.DirectionDebit,
		AccountID:   account.ID,
		Source:      "HDFC",
		CategoryID:  foodID,
	}
	require.NoError(t, s.CreateTransaction(ctx, txn))
	require.NoError(t, s.TagTransaction(ctx, user, txn.ID, tag.ID))

	// A second user's data never leaks into the bundle.
	require.NoError(t, s.CreateAccount(ctx, &domain.Account{UserID: "user-2", Name: "Other"}))

	bundle, err := Build(ctx, s, user)
	require.NoError(t, err)
	assert.Equal(t, user, bundle.UserID)
	assert.Len(t, bundle.Accounts, 1)
	assert.Len(t, bundle.Categories, 1)
	assert.Len(t, bundle.Merchants, 1)
	assert.Len(t, bundle.Tags, 1)
	assert.Len(t, bundle.Goals, 1)
	require.Len(t, bundle.Transactions, 1)
	require.Len(t, bundle.Transactions[0].Tags, 1)
	assert.Equal(t, "Weekend", bundle.Transactions[0].Tags[0].Name)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, bundle))

	var decoded Bundle
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, bundle.Transactions[0].ID, decoded.Transactions[0].ID)
	assert.True(t, decoded.Transactions[0].Amount.Equal(decimal.RequireFromString("200.00")))
}
