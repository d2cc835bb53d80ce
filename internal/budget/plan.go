package budget

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rumor-ml/expensetrack/internal/domain"
	"github.com/rumor-ml/expensetrack/internal/store"
)

// noBurnDaysLeft is reported when a category has remaining budget but no
// spend yet, so no burn rate to extrapolate from.
const noBurnDaysLeft = 999

// fullMonthDays treats a non-current month as fully elapsed when
// computing burn rate.
const fullMonthDays = 31

// CategoryBudgetView is one row of the month's budget plan. Every
// non-income category appears, budgeted or not.
type CategoryBudgetView struct {
	CategoryID   string          `json:"categoryId"`
	CategoryName string          `json:"categoryName"`
	IconName     string          `json:"icon_name,omitempty"`
	Budget       decimal.Decimal `json:"budget"`
	Spent        decimal.Decimal `json:"spent"`
	Remaining    decimal.Decimal `json:"remaining"`
	Progress     float64         `json:"progress"`
	DaysLeft     int             `json:"daysLeft"`
}

// PacingPoint is cumulative spend through one day of the month.
type PacingPoint struct {
	Day         int             `json:"day"`
	ActualSpend decimal.Decimal `json:"actualSpend"`
}

// MonthSpend is a single month's total debit spend.
type MonthSpend struct {
	Month      domain.Month    `json:"month"`
	TotalSpend decimal.Decimal `json:"totalSpend"`
}

// SuggestedBudget pairs a trailing-average suggestion with the current
// month's spend so far for one category.
type SuggestedBudget struct {
	CategoryID      string          `json:"categoryId"`
	CategoryName    string          `json:"categoryName"`
	IconName        string          `json:"icon_name,omitempty"`
	SuggestedAmount decimal.Decimal `json:"suggestedAmount"`
	CurrentSpend    decimal.Decimal `json:"currentSpend"`
}

// HistoricalView is the suggestion payload returned when the month has
// no goals. Read-only, never persisted.
type HistoricalView struct {
	HistoricalSpend   []MonthSpend      `json:"historicalSpend"`
	AverageTotalSpend decimal.Decimal   `json:"averageTotalSpend"`
	SuggestedBudgets  []SuggestedBudget `json:"suggestedBudgets"`
}

// Plan is the full budget plan payload. Exactly one of Plan and
// Historical is set: Plan when the month has goals, Historical when it
// has none.
type Plan struct {
	Plan       []CategoryBudgetView `json:"plan"`
	Historical *HistoricalView      `json:"historicalData"`
	Pacing     []PacingPoint        `json:"pacingData,omitempty"`
}

// BudgetItem is one category limit in a save-plan request. A limit of
// zero deletes the category's goal.
type BudgetItem struct {
	CategoryID  string          `json:"category_id"`
	LimitAmount decimal.Decimal `json:"limit_amount"`
}

// Planner builds the month plan view and reconciles retroactive alerts.
type Planner struct {
	store *store.Store
	eval  *Evaluator
	now   func() time.Time
}

func NewPlanner(st *store.Store) *Planner {
	return &Planner{store: st, eval: NewEvaluator(st), now: time.Now}
}

// GetPlan returns the budget view for the month. When at least one goal
// exists it returns the per-category plan plus the pacing series, and
// retroactively records any alerts whose thresholds were crossed before
// the goal existed. When no goal exists it returns the historical
// suggestion view instead.
func (p *Planner) GetPlan(ctx context.Context, userID string, month domain.Month) (*Plan, error) {
	goals, err := p.store.ListGoals(ctx, userID, month)
	if err != nil {
		return nil, fmt.Errorf("listing goals: %w", err)
	}
	if len(goals) == 0 {
		return p.historicalPlan(ctx, userID, month)
	}
	return p.goalPlan(ctx, userID, month, goals)
}

func (p *Planner) goalPlan(ctx context.Context, userID string, month domain.Month, goals []domain.Goal) (*Plan, error) {
	spentByCategory, err := p.store.MonthSpendByCategory(ctx, userID, month)
	if err != nil {
		return nil, fmt.Errorf("computing month spend: %w", err)
	}
	categories, err := p.store.NonIncomeCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}

	goalByCategory := make(map[string]*domain.Goal, len(goals))
	for i := range goals {
		goalByCategory[goals[i].CategoryID] = &goals[i]
	}

	dayElapsed := fullMonthDays
	if month == domain.MonthOf(p.now()) {
		dayElapsed = p.now().Day()
	}
	elapsed := decimal.NewFromInt(int64(dayElapsed))

	views := make([]CategoryBudgetView, 0, len(categories))
	for _, cat := range categories {
		goal := goalByCategory[cat.ID]
		budget := decimal.Zero
		if goal != nil {
			budget = goal.LimitAmount
		}
		spent := spentByCategory[cat.ID]
		remaining := budget.Sub(spent)

		burnRate := spent.Div(elapsed)
		daysLeft := 0
		switch {
		case burnRate.IsPositive() && remaining.IsPositive():
			daysLeft = int(remaining.Div(burnRate).Round(0).IntPart())
		case burnRate.IsZero() && remaining.IsPositive():
			daysLeft = noBurnDaysLeft
		}

		progress := 0.0
		if budget.IsPositive() {
			progress, _ = spent.Div(budget).Mul(hundred).Float64()
		}

		views = append(views, CategoryBudgetView{
			CategoryID:   cat.ID,
			CategoryName: cat.Name,
			IconName:     cat.IconName,
			Budget:       budget,
			Spent:        spent,
			Remaining:    remaining,
			Progress:     progress,
			DaysLeft:     daysLeft,
		})

		// Covers goals created or raised after the spend happened.
		if goal != nil && budget.IsPositive() {
			if _, err := p.eval.checkThresholds(ctx, userID, goal, spent); err != nil {
				return nil, fmt.Errorf("reconciling alerts for category %s: %w", cat.ID, err)
			}
		}
	}

	sort.SliceStable(views, func(i, j int) bool {
		return views[i].Spent.GreaterThan(views[j].Spent)
	})

	pacing, err := p.pacingSeries(ctx, userID, month)
	if err != nil {
		return nil, err
	}
	return &Plan{Plan: views, Pacing: pacing}, nil
}

// pacingSeries returns cumulative daily spend for every day of the
// month, carrying the running total across days with no transactions.
func (p *Planner) pacingSeries(ctx context.Context, userID string, month domain.Month) ([]PacingPoint, error) {
	daily, err := p.store.DailyDebits(ctx, userID, month)
	if err != nil {
		return nil, fmt.Errorf("computing daily spend: %w", err)
	}
	points := make([]PacingPoint, 0, month.Days())
	cumulative := decimal.Zero
	for day := 1; day <= month.Days(); day++ {
		cumulative = cumulative.Add(daily[day])
		points = append(points, PacingPoint{Day: day, ActualSpend: cumulative})
	}
	return points, nil
}

// historicalPlan averages the trailing three months' spend per category
// as budget suggestions, sorted by current-month spend descending.
func (p *Planner) historicalPlan(ctx context.Context, userID string, month domain.Month) (*Plan, error) {
	monthStart := month.Start()
	windowStart := monthStart.AddDate(0, -3, 0)

	txns, err := p.store.TransactionsBetween(ctx, userID, windowStart, monthStart, true)
	if err != nil {
		return nil, fmt.Errorf("loading trailing transactions: %w", err)
	}

	monthTotals := make(map[domain.Month]decimal.Decimal)
	categorySums := make(map[string]decimal.Decimal)
	for _, t := range txns {
		if t.Direction != domain.DirectionDebit {
			continue
		}
		m := domain.MonthOf(t.TxnDate)
		monthTotals[m] = monthTotals[m].Add(t.Amount)
		categorySums[t.CategoryID] = categorySums[t.CategoryID].Add(t.Amount)
	}

	historical := make([]MonthSpend, 0, len(monthTotals))
	averageTotal := decimal.Zero
	for m, total := range monthTotals {
		historical = append(historical, MonthSpend{Month: m, TotalSpend: total})
		averageTotal = averageTotal.Add(total)
	}
	sort.Slice(historical, func(i, j int) bool { return historical[i].Month < historical[j].Month })
	if len(historical) > 0 {
		averageTotal = averageTotal.DivRound(decimal.NewFromInt(3), 0)
	}

	currentByCategory, err := p.store.MonthSpendByCategory(ctx, userID, month)
	if err != nil {
		return nil, fmt.Errorf("computing current month spend: %w", err)
	}
	categories, err := p.store.NonIncomeCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}

	suggested := make([]SuggestedBudget, 0, len(categories))
	for _, cat := range categories {
		suggested = append(suggested, SuggestedBudget{
			CategoryID:      cat.ID,
			CategoryName:    cat.Name,
			IconName:        cat.IconName,
			SuggestedAmount: categorySums[cat.ID].DivRound(decimal.NewFromInt(3), 0),
			CurrentSpend:    currentByCategory[cat.ID].Round(0),
		})
	}
	sort.SliceStable(suggested, func(i, j int) bool {
		a, b := suggested[i], suggested[j]
		if !a.CurrentSpend.Equal(b.CurrentSpend) {
			return a.CurrentSpend.GreaterThan(b.CurrentSpend)
		}
		return a.SuggestedAmount.GreaterThan(b.SuggestedAmount)
	})

	return &Plan{Historical: &HistoricalView{
		HistoricalSpend:   historical,
		AverageTotalSpend: averageTotal,
		SuggestedBudgets:  suggested,
	}}, nil
}

// SavePlan upserts every item's goal for the month. Zero limits delete
// the corresponding goal.
func (p *Planner) SavePlan(ctx context.Context, userID string, month domain.Month, items []BudgetItem) error {
	for _, item := range items {
		if _, err := p.store.UpsertGoal(ctx, userID, item.CategoryID, month, item.LimitAmount); err != nil {
			return fmt.Errorf("saving goal for category %s: %w", item.CategoryID, err)
		}
	}
	return nil
}

// DeletePlan removes all goals for the month. Returns false when there
// was no plan to delete.
func (p *Planner) DeletePlan(ctx context.Context, userID string, month domain.Month) (bool, error) {
	had, err := p.store.HasGoals(ctx, userID, month)
	if err != nil {
		return false, fmt.Errorf("checking goals: %w", err)
	}
	if !had {
		return false, nil
	}
	if err := p.store.DeleteGoalsForMonth(ctx, userID, month); err != nil {
		return false, fmt.Errorf("deleting goals: %w", err)
	}
	return true, nil
}
