// Package budget implements the alert evaluation and plan reconciliation
// engine on top of the transaction store. The evaluator runs once per
// inserted transaction during ingestion; the planner runs on demand from
// the budget plan endpoints and retroactively fills in alerts for goals
// created after their transactions.
package budget

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rumor-ml/expensetrack/internal/domain"
	"github.com/rumor-ml/expensetrack/internal/store"
)

var hundred = decimal.NewFromInt(100)

// Evaluator emits threshold-crossing alerts for budget goals. Each
// (goal, threshold) pair alerts at most once ever; the existence check
// before creation makes re-evaluation safe to retry.
type Evaluator struct {
	store *store.Store
}

func NewEvaluator(st *store.Store) *Evaluator {
	return &Evaluator{store: st}
}

// Evaluate recomputes the month-to-date spend for the transaction's
// category and creates at most one new alert for the highest crossed
// threshold not yet recorded. No-op when the transaction is
// uncategorized, no goal covers the category+month, or the goal limit
// is not positive. Returns the created alert, or nil when nothing fired.
func (e *Evaluator) Evaluate(ctx context.Context, userID string, txn domain.Transaction) (*domain.Alert, error) {
	if txn.CategoryID == "" {
		return nil, nil
	}

	month := domain.MonthOf(txn.TxnDate)
	goal, err := e.store.GetGoal(ctx, userID, txn.CategoryID, month)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading goal for category %s: %w", txn.CategoryID, err)
	}
	if !goal.LimitAmount.IsPositive() {
		return nil, nil
	}

	spent, err := e.store.MonthCategorySpend(ctx, userID, txn.CategoryID, month)
	if err != nil {
		return nil, fmt.Errorf("computing month spend: %w", err)
	}
	return e.checkThresholds(ctx, userID, goal, spent)
}

// checkThresholds scans the tiers in descending order and creates an
// alert for the first crossed tier with no existing alert. At most one
// alert is created per call; successive spend re-evaluations surface the
// remaining tiers one at a time.
func (e *Evaluator) checkThresholds(ctx context.Context, userID string, goal *domain.Goal, spent decimal.Decimal) (*domain.Alert, error) {
	percentage := spent.Div(goal.LimitAmount).Mul(hundred)
	for _, threshold := range domain.AlertThresholds {
		if percentage.LessThan(decimal.NewFromInt(int64(threshold))) {
			continue
		}
		exists, err := e.store.AlertExists(ctx, userID, goal.ID, threshold)
		if err != nil {
			return nil, fmt.Errorf("checking alert existence: %w", err)
		}
		if exists {
			continue
		}
		alert := &domain.Alert{
			UserID:    userID,
			GoalID:    goal.ID,
			Threshold: threshold,
		}
		if err := e.store.CreateAlert(ctx, alert); err != nil {
			return nil, fmt.Errorf("creating alert: %w", err)
		}
		return alert, nil
	}
	return nil, nil
}
