// Package analytics builds the read-side reporting views over the
// transaction store: the month dashboard and the longer-range analytics
// aggregates. Pure reads; nothing here mutates state.
package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rumor-ml/expensetrack/internal/domain"
	"github.com/rumor-ml/expensetrack/internal/store"
)

const topCategoryCount = 5
const recentTransactionCount = 5

var hundred = decimal.NewFromInt(100)

// CategorySpend is one category's total for a ranked list.
type CategorySpend struct {
	ID       string          `json:"id"`
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	IconName string          `json:"icon_name,omitempty"`
}

// TrendPoint is cumulative spend through one day of the month.
type TrendPoint struct {
	Day             int             `json:"day"`
	CumulativeSpend decimal.Decimal `json:"cumulative_spend"`
}

// Dashboard is the month overview payload.
type Dashboard struct {
	TotalSpent                 decimal.Decimal      `json:"totalSpent"`
	PercentChangeFromLastMonth float64              `json:"percentChangeFromLastMonth"`
	DailyAverageSpend          decimal.Decimal      `json:"dailyAverageSpend"`
	ProjectedMonthlySpend      decimal.Decimal      `json:"projectedMonthlySpend"`
	TopSpendingCategories      []CategorySpend      `json:"topSpendingCategories"`
	SpendingTrend              []TrendPoint         `json:"spendingTrend"`
	RecentTransactions         []domain.Transaction `json:"recentTransactions"`
}

// Service computes the reporting views.
type Service struct {
	store *store.Store
	now   func() time.Time
}

func NewService(st *store.Store) *Service {
	return &Service{store: st, now: time.Now}
}

// Dashboard builds the KPI view for one month. Exclusion-tagged
// transactions are ignored throughout. When the month is the current
// one, averages use the elapsed day count and the trend stops at today.
func (s *Service) Dashboard(ctx context.Context, userID string, month domain.Month) (*Dashboard, error) {
	byCategory, err := s.store.MonthSpendByCategory(ctx, userID, month)
	if err != nil {
		return nil, fmt.Errorf("computing month spend: %w", err)
	}
	total := decimal.Zero
	for _, amount := range byCategory {
		total = total.Add(amount)
	}

	prevByCategory, err := s.store.MonthSpendByCategory(ctx, userID, month.Prev())
	if err != nil {
		return nil, fmt.Errorf("computing previous month spend: %w", err)
	}
	prevTotal := decimal.Zero
	for _, amount := range prevByCategory {
		prevTotal = prevTotal.Add(amount)
	}

	percentChange := 0.0
	switch {
	case prevTotal.IsPositive():
		percentChange, _ = total.Sub(prevTotal).Div(prevTotal).Mul(hundred).Float64()
	case total.IsPositive():
		percentChange = 100.0
	}

	today := s.now()
	daysInMonth := month.Days()
	elapsedDays := daysInMonth
	trendDays := daysInMonth
	if month == domain.MonthOf(today) {
		elapsedDays = today.Day()
		trendDays = today.Day()
	}

	dailyAverage := total.Div(decimal.NewFromInt(int64(elapsedDays)))
	projected := dailyAverage.Mul(decimal.NewFromInt(int64(daysInMonth)))

	topCategories, err := s.topCategories(ctx, userID, byCategory)
	if err != nil {
		return nil, err
	}

	daily, err := s.store.DailyDebits(ctx, userID, month)
	if err != nil {
		return nil, fmt.Errorf("computing daily spend: %w", err)
	}
	trend := make([]TrendPoint, 0, trendDays)
	cumulative := decimal.Zero
	for day := 1; day <= trendDays; day++ {
		cumulative = cumulative.Add(daily[day])
		trend = append(trend, TrendPoint{Day: day, CumulativeSpend: cumulative})
	}

	recent, _, err := s.store.ListTransactions(ctx, userID, store.ListOptions{
		ExcludeTagged: true,
		Limit:         recentTransactionCount,
	})
	if err != nil {
		return nil, fmt.Errorf("listing recent transactions: %w", err)
	}

	return &Dashboard{
		TotalSpent:                 total.Round(2),
		PercentChangeFromLastMonth: round2(percentChange),
		DailyAverageSpend:          dailyAverage.Round(2),
		ProjectedMonthlySpend:      projected.Round(2),
		TopSpendingCategories:      topCategories,
		SpendingTrend:              trend,
		RecentTransactions:         recent,
	}, nil
}

// topCategories ranks the month's categorized spend. Uncategorized
// amounts are not a category and never appear here.
func (s *Service) topCategories(ctx context.Context, userID string, byCategory map[string]decimal.Decimal) ([]CategorySpend, error) {
	categories, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	names := make(map[string]domain.Category, len(categories))
	for _, c := range categories {
		names[c.ID] = c
	}

	ranked := make([]CategorySpend, 0, len(byCategory))
	for id, amount := range byCategory {
		cat, ok := names[id]
		if !ok || !amount.IsPositive() {
			continue
		}
		ranked = append(ranked, CategorySpend{
			ID:       id,
			Category: cat.Name,
			Amount:   amount,
			IconName: cat.IconName,
		})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if !ranked[i].Amount.Equal(ranked[j].Amount) {
			return ranked[i].Amount.GreaterThan(ranked[j].Amount)
		}
		return ranked[i].Category < ranked[j].Category
	})
	if len(ranked) > topCategoryCount {
		ranked = ranked[:topCategoryCount]
	}
	return ranked, nil
}

func round2(f float64) float64 {
	d := decimal.NewFromFloat(f).Round(2)
	out, _ := d.Float64()
	return out
}
