package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rumor-ml/expensetrack/internal/domain"
)

const testUser = "user-1"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}

func seedTransaction(t *testing.T, s *Store, date string, amount string, direction domain.Direction, categoryID string) *domain.Transaction {
	t.Helper()
	txn := &domain.Transaction{
		UserID:      testUser,
		TxnDate:     mustDate(t, date),
		Description: "seed " + date,
		Amount:      decimal.RequireFromString(amount),
		Direction:   direction,
		AccountID:   "acc-1",
		Source:      "HDFC",
		CategoryID:  categoryID,
	}
	require.NoError(t, s.CreateTransaction(context.Background(), txn))
	return txn
}

func TestAccountCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := &domain.Account{UserID: testUser, Name: "HDFC Bank", Type: "bank", Provider: "HDFC"}
	require.NoError(t, s.CreateAccount(ctx, a))
	assert.NotEmpty(t, a.ID)

	err := s.CreateAccount(ctx, &domain.Account{UserID: testUser, Name: "HDFC Bank"})
	assert.ErrorIs(t, err, ErrDuplicateName)

	// Same name for a different user is fine.
	require.NoError(t, s.CreateAccount(ctx, &domain.Account{UserID: "user-2", Name: "HDFC Bank"}))

	got, err := s.GetAccount(ctx, testUser, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "HDFC Bank", got.Name)

	// Another user's id reads as missing.
	_, err = s.GetAccount(ctx, "user-2", a.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	a.Name = "HDFC Savings"
	require.NoError(t, s.UpdateAccount(ctx, a))

	m, err := s.AccountMap(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, a.ID, m["HDFC Savings"])

	require.NoError(t, s.DeleteAccount(ctx, testUser, a.ID))
	assert.ErrorIs(t, s.DeleteAccount(ctx, testUser, a.ID), ErrNotFound)
}

func TestEnsureCategoryAndMerchant(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id1, err := s.EnsureCategory(ctx, testUser, "Food", false)
	require.NoError(t, err)
	id2, err := s.EnsureCategory(ctx, testUser, "Food", false)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	mid, err := s.EnsureMerchant(ctx, testUser, "Swiggy", id1)
	require.NoError(t, err)
	m, err := s.GetMerchant(ctx, testUser, mid)
	require.NoError(t, err)
	assert.Equal(t, id1, m.CategoryID)
}

func TestTransactionRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	txn := &domain.Transaction{
		UserID:       testUser,
		TxnDate:      mustDate(t, "2024-03-02"),
		Description:  "SWIGGY ORDER",
		Amount:       decimal.RequireFromString("200.50"),
		Direction:    domain.DirectionDebit,
		AccountID:    "acc-1",
		Source:       "HDFC",
		UPIReference: "404912345678",
		DedupKey:     "HDFC-REF1-20240302-200.50",
		RawPayload:   map[string]string{"Narration": "SWIGGY ORDER"},
	}
	require.NoError(t, s.CreateTransaction(ctx, txn))

	got, err := s.GetTransaction(ctx, testUser, txn.ID)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("200.50")), "amount survives as exact decimal")
	assert.Equal(t, "404912345678", got.UPIReference)
	assert.Equal(t, map[string]string{"Narration": "SWIGGY ORDER"}, got.RawPayload)
	assert.Equal(t, txn.TxnDate.UTC(), got.TxnDate)
}

func TestListTransactions_FiltersAndPaging(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedTransaction(t, s, "2024-03-01", "100", domain.DirectionDebit, "cat-food")
	seedTransaction(t, s, "2024-03-02", "200", domain.DirectionDebit, "cat-travel")
	seedTransaction(t, s, "2024-03-03", "300", domain.DirectionCredit, "")
	other := &domain.Transaction{
		UserID: "user-2", TxnDate: mustDate(t, "2024-03-02"), Description: "other user",
		Amount: decimal.NewFromInt(50), Direction: domain.DirectionDebit, AccountID: "acc-9",
	}
	require.NoError(t, s.CreateTransaction(ctx, other))

	all, total, err := s.ListTransactions(ctx, testUser, ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, all, 3)
	// Newest first.
	assert.Equal(t, "seed 2024-03-03", all[0].Description)

	byCategory, _, err := s.ListTransactions(ctx, testUser, ListOptions{CategoryID: "cat-food"})
	require.NoError(t, err)
	require.Len(t, byCategory, 1)

	byDirection, _, err := s.ListTransactions(ctx, testUser, ListOptions{Direction: domain.DirectionCredit})
	require.NoError(t, err)
	require.Len(t, byDirection, 1)

	bySearch, _, err := s.ListTransactions(ctx, testUser, ListOptions{Search: "2024-03-02"})
	require.NoError(t, err)
	require.Len(t, bySearch, 1)

	byRange, _, err := s.ListTransactions(ctx, testUser, ListOptions{
		From: mustDate(t, "2024-03-02"), To: mustDate(t, "2024-03-03"),
	})
	require.NoError(t, err)
	require.Len(t, byRange, 1)

	page, total, err := s.ListTransactions(ctx, testUser, ListOptions{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 1)
}

func TestKnownIdentifierSets(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	txn := seedTransaction(t, s, "2024-03-01", "100", domain.DirectionDebit, "")
	txn.UPIReference = "404912345678"
	txn.DedupKey = "HDFC-X-20240301-100.00"
	require.NoError(t, s.UpdateTransaction(ctx, txn))

	// UpdateTransaction does not touch identity columns; re-insert with
	// identifiers present instead.
	withIDs := &domain.Transaction{
		UserID: testUser, TxnDate: mustDate(t, "2024-03-02"), Description: "with ids",
		Amount: decimal.NewFromInt(10), Direction: domain.DirectionDebit, AccountID: "acc-1",
		UPIReference: "404911112222", DedupKey: "HDFC-Y-20240302-10.00",
	}
	require.NoError(t, s.CreateTransaction(ctx, withIDs))

	refs, err := s.KnownUPIRefs(ctx, testUser)
	require.NoError(t, err)
	assert.Contains(t, refs, "404911112222")

	keys, err := s.KnownDedupKeys(ctx, testUser)
	require.NoError(t, err)
	assert.Contains(t, keys, "HDFC-Y-20240302-10.00")
}

func TestMonthCategorySpend_ExclusionTag(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	catID, err := s.EnsureCategory(ctx, testUser, "Food", false)
	require.NoError(t, err)

	a := seedTransaction(t, s, "2024-03-01", "100.25", domain.DirectionDebit, catID)
	seedTransaction(t, s, "2024-03-10", "200", domain.DirectionDebit, catID)
	seedTransaction(t, s, "2024-03-15", "500", domain.DirectionCredit, catID) // credits never count
	seedTransaction(t, s, "2024-04-01", "999", domain.DirectionDebit, catID)  // next month

	month := domain.Month("2024-03")
	spend, err := s.MonthCategorySpend(ctx, testUser, catID, month)
	require.NoError(t, err)
	assert.True(t, spend.Equal(decimal.RequireFromString("300.25")), "spend = %s", spend)

	// Excluding the first transaction removes it from the aggregate.
	excl := &domain.Tag{UserID: testUser, Name: domain.ExclusionTagName}
	require.NoError(t, s.CreateTag(ctx, excl))
	require.NoError(t, s.TagTransaction(ctx, testUser, a.ID, excl.ID))

	spend, err = s.MonthCategorySpend(ctx, testUser, catID, month)
	require.NoError(t, err)
	assert.True(t, spend.Equal(decimal.NewFromInt(200)), "spend = %s", spend)

	byCat, err := s.MonthSpendByCategory(ctx, testUser, month)
	require.NoError(t, err)
	assert.True(t, byCat[catID].Equal(decimal.NewFromInt(200)))

	daily, err := s.DailyDebits(ctx, testUser, month)
	require.NoError(t, err)
	assert.True(t, daily[10].Equal(decimal.NewFromInt(200)))
	_, excluded := daily[1]
	assert.False(t, excluded, "excluded transaction leaked into daily series")
}

func TestGoalUpsertSemantics(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	month := domain.Month("2024-03")

	g, err := s.UpsertGoal(ctx, testUser, "cat-food", month, decimal.NewFromInt(1000))
	require.NoError(t, err)
	require.NotNil(t, g)

	// Updating keeps the same row.
	g2, err := s.UpsertGoal(ctx, testUser, "cat-food", month, decimal.NewFromInt(1500))
	require.NoError(t, err)
	assert.Equal(t, g.ID, g2.ID)
	assert.True(t, g2.LimitAmount.Equal(decimal.NewFromInt(1500)))

	has, err := s.HasGoals(ctx, testUser, month)
	require.NoError(t, err)
	assert.True(t, has)

	// Zero limit deletes.
	g3, err := s.UpsertGoal(ctx, testUser, "cat-food", month, decimal.Zero)
	require.NoError(t, err)
	assert.Nil(t, g3)

	has, err = s.HasGoals(ctx, testUser, month)
	require.NoError(t, err)
	assert.False(t, has)

	_, err = s.GetGoal(ctx, testUser, "cat-food", month)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAlertLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	exists, err := s.AlertExists(ctx, testUser, "goal-1", 75)
	require.NoError(t, err)
	assert.False(t, exists)

	older := &domain.Alert{UserID: testUser, GoalID: "goal-1", Threshold: 75,
		TriggeredAt: mustDate(t, "2024-03-01")}
	newer := &domain.Alert{UserID: testUser, GoalID: "goal-1", Threshold: 90,
		TriggeredAt: mustDate(t, "2024-03-10")}
	require.NoError(t, s.CreateAlert(ctx, older))
	require.NoError(t, s.CreateAlert(ctx, newer))

	exists, err = s.AlertExists(ctx, testUser, "goal-1", 75)
	require.NoError(t, err)
	assert.True(t, exists)

	unread, err := s.ListUnreadAlerts(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, unread, 2)
	assert.Equal(t, 90, unread[0].Threshold, "newest first")

	require.NoError(t, s.AcknowledgeAlert(ctx, testUser, newer.ID))
	require.NoError(t, s.AcknowledgeAlert(ctx, testUser, newer.ID), "acknowledge is idempotent")
	assert.ErrorIs(t, s.AcknowledgeAlert(ctx, testUser, "alert-missing"), ErrNotFound)

	unread, err = s.ListUnreadAlerts(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, 75, unread[0].Threshold)
}

func TestSetTransactionTags_Replace(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	txn := seedTransaction(t, s, "2024-03-01", "100", domain.DirectionDebit, "")
	t1 := &domain.Tag{UserID: testUser, Name: "trip"}
	t2 := &domain.Tag{UserID: testUser, Name: "work"}
	require.NoError(t, s.CreateTag(ctx, t1))
	require.NoError(t, s.CreateTag(ctx, t2))

	require.NoError(t, s.SetTransactionTags(ctx, testUser, txn.ID, []string{t1.ID, t2.ID}))
	got, err := s.GetTransaction(ctx, testUser, txn.ID)
	require.NoError(t, err)
	require.Len(t, got.Tags, 2)

	require.NoError(t, s.SetTransactionTags(ctx, testUser, txn.ID, []string{t2.ID}))
	got, err = s.GetTransaction(ctx, testUser, txn.ID)
	require.NoError(t, err)
	require.Len(t, got.Tags, 1)
	assert.Equal(t, "work", got.Tags[0].Name)

	// Unknown tag id is a referential error.
	err = s.SetTransactionTags(ctx, testUser, txn.ID, []string{"tag-nope"})
	assert.ErrorIs(t, err, ErrNotFound)
}
