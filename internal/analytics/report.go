package analytics

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rumor-ml/expensetrack/internal/domain"
)

// velocityDays fixes the day axis of the velocity and composition
// charts at 31 regardless of month length, so months line up.
const velocityDays = 31

// largeThreshold splits the composition chart into small and large
// purchases.
var largeThreshold = decimal.NewFromInt(1000)

// allTimeFloor bounds "all" period queries.
var allTimeFloor = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// ErrInvalidPeriod reports an unrecognized period token.
var ErrInvalidPeriod = errors.New("invalid period")

// MonthActual is one month's realized spend.
type MonthActual struct {
	Month  domain.Month    `json:"month"`
	Actual decimal.Decimal `json:"actual"`
}

// Overview summarizes the user's whole spending history.
type Overview struct {
	HighestSpendMonth    *MonthActual    `json:"highestSpendMonth"`
	AverageSpendPerMonth decimal.Decimal `json:"averageSpendPerMonth"`
}

// VelocityPoint compares cumulative spend pace across months for one
// day of the month. Current is nil for days still in the future.
type VelocityPoint struct {
	Day      int              `json:"day"`
	Current  *decimal.Decimal `json:"current"`
	Previous decimal.Decimal  `json:"previous"`
	Average  decimal.Decimal  `json:"average"`
}

// CompositionPoint splits cumulative spend into small and large
// purchases for one day of a month.
type CompositionPoint struct {
	Day             int             `json:"day"`
	CumulativeSmall decimal.Decimal `json:"cumulative_small"`
	CumulativeLarge decimal.Decimal `json:"cumulative_large"`
}

// Habit summarizes one category's purchase pattern over the period.
type Habit struct {
	Category         string          `json:"category"`
	TransactionCount int             `json:"transaction_count"`
	TotalSpend       decimal.Decimal `json:"total_spend"`
	AverageSpend     decimal.Decimal `json:"average_spend"`
}

// DistributionSlice is one category's share of the period's spend.
type DistributionSlice struct {
	Category   string          `json:"category"`
	Total      decimal.Decimal `json:"total"`
	Percentage float64         `json:"percentage"`
	IconName   string          `json:"icon_name,omitempty"`
}

// HeatmapCell is one calendar day's total spend.
type HeatmapCell struct {
	Date  string          `json:"date"`
	Spend decimal.Decimal `json:"spend"`
}

// MonthBreakdown is one month's total inside the reporting period.
type MonthBreakdown struct {
	Month domain.Month    `json:"month"`
	Spend decimal.Decimal `json:"spend"`
}

// Report is the analytics payload. SpendingComposition is populated for
// single-month periods, SpendingVelocity and MonthlyBreakdown for
// multi-month periods; whichever does not apply is left empty.
type Report struct {
	Overview             Overview            `json:"overview"`
	SpendingVelocity     []VelocityPoint     `json:"spendingVelocity"`
	SpendingComposition  []CompositionPoint  `json:"spendingComposition"`
	HabitIdentifier      []Habit             `json:"habitIdentifier"`
	CategoryDistribution []DistributionSlice `json:"categoryDistribution"`
	TransactionHeatmap   []HeatmapCell       `json:"transactionHeatmap"`
	MonthlyBreakdown     []MonthBreakdown    `json:"monthlyBreakdown"`
}

// Report builds the analytics view for a period: either a single month
// ("YYYY-MM") or a trailing window ("3m", "6m", "1y", "all"). When
// includeCapitalTransfers is false, exclusion-tagged transactions are
// dropped from every aggregate.
func (s *Service) Report(ctx context.Context, userID, period string, includeCapitalTransfers bool) (*Report, error) {
	today := s.now()
	from, to, monthView, err := resolvePeriod(period, today)
	if err != nil {
		return nil, err
	}

	all, err := s.store.TransactionsBetween(ctx, userID, allTimeFloor, today.AddDate(0, 0, 1), !includeCapitalTransfers)
	if err != nil {
		return nil, fmt.Errorf("loading transactions: %w", err)
	}
	debits := all[:0:0]
	for _, t := range all {
		if t.Direction == domain.DirectionDebit {
			debits = append(debits, t)
		}
	}

	var ranged []domain.Transaction
	for _, t := range debits {
		if !t.TxnDate.Before(from) && t.TxnDate.Before(to) {
			ranged = append(ranged, t)
		}
	}

	report := &Report{Overview: overview(debits)}

	if monthView != nil {
		report.SpendingComposition = composition(ranged, *monthView)
	} else {
		report.SpendingVelocity = velocity(debits, from, today)
		report.MonthlyBreakdown = monthlyBreakdown(ranged)
	}

	names, err := s.categoryNames(ctx, userID)
	if err != nil {
		return nil, err
	}
	report.HabitIdentifier = habits(ranged, names)
	report.CategoryDistribution = distribution(ranged, names)
	report.TransactionHeatmap = heatmap(ranged)
	return report, nil
}

// resolvePeriod maps a period token to a [from, to) range. A non-nil
// month means the single-month view.
func resolvePeriod(period string, today time.Time) (time.Time, time.Time, *domain.Month, error) {
	if month, err := domain.NewMonth(period); err == nil {
		return month.Start(), month.Next().Start(), &month, nil
	}

	tomorrow := today.AddDate(0, 0, 1)
	if period == "all" {
		return allTimeFloor, tomorrow, nil, nil
	}
	months := map[string]int{"3m": 3, "6m": 6, "1y": 12}[period]
	if months == 0 {
		return time.Time{}, time.Time{}, nil, fmt.Errorf("%w: %q (expected YYYY-MM, 3m, 6m, 1y or all)", ErrInvalidPeriod, period)
	}
	from := domain.MonthOf(today).Start().AddDate(0, -(months - 1), 0)
	return from, tomorrow, nil, nil
}

// overview finds the highest-spend month and the per-month average over
// the whole history.
func overview(debits []domain.Transaction) Overview {
	totals := make(map[domain.Month]decimal.Decimal)
	for _, t := range debits {
		m := domain.MonthOf(t.TxnDate)
		totals[m] = totals[m].Add(t.Amount)
	}
	if len(totals) == 0 {
		return Overview{}
	}

	var highest MonthActual
	sum := decimal.Zero
	for m, total := range totals {
		sum = sum.Add(total)
		if total.GreaterThan(highest.Actual) || (total.Equal(highest.Actual) && m < highest.Month) {
			highest = MonthActual{Month: m, Actual: total}
		}
	}
	return Overview{
		HighestSpendMonth:    &highest,
		AverageSpendPerMonth: sum.Div(decimal.NewFromInt(int64(len(totals)))),
	}
}

// composition accumulates small vs large purchase totals per day of the
// month.
func composition(ranged []domain.Transaction, month domain.Month) []CompositionPoint {
	small := make(map[int]decimal.Decimal)
	large := make(map[int]decimal.Decimal)
	for _, t := range ranged {
		day := t.TxnDate.Day()
		if t.Amount.LessThan(largeThreshold) {
			small[day] = small[day].Add(t.Amount)
		} else {
			large[day] = large[day].Add(t.Amount)
		}
	}

	points := make([]CompositionPoint, 0, month.Days())
	cumulativeSmall, cumulativeLarge := decimal.Zero, decimal.Zero
	for day := 1; day <= month.Days(); day++ {
		cumulativeSmall = cumulativeSmall.Add(small[day])
		cumulativeLarge = cumulativeLarge.Add(large[day])
		points = append(points, CompositionPoint{
			Day:             day,
			CumulativeSmall: cumulativeSmall,
			CumulativeLarge: cumulativeLarge,
		})
	}
	return points
}

// velocity compares the current month's cumulative pace against the
// previous month and the average of the historical months in the
// period. All three series run over a fixed 31-day axis.
func velocity(debits []domain.Transaction, from time.Time, today time.Time) []VelocityPoint {
	currentMonth := domain.MonthOf(today)
	previousMonth := currentMonth.Prev()

	current := cumulativeByDay(debits, currentMonth)
	previous := cumulativeByDay(debits, previousMonth)

	// Average across every historical month between the period start
	// and the current month.
	var historical []domain.Month
	for m := domain.MonthOf(from); m < currentMonth; m = m.Next() {
		historical = append(historical, m)
	}
	average := make([]decimal.Decimal, velocityDays)
	if len(historical) > 0 {
		n := decimal.NewFromInt(int64(len(historical)))
		for _, m := range historical {
			series := cumulativeByDay(debits, m)
			for i := range average {
				average[i] = average[i].Add(series[i])
			}
		}
		for i := range average {
			average[i] = average[i].Div(n)
		}
	}

	points := make([]VelocityPoint, 0, velocityDays)
	for day := 1; day <= velocityDays; day++ {
		p := VelocityPoint{
			Day:      day,
			Previous: previous[day-1],
			Average:  average[day-1],
		}
		if day <= today.Day() {
			v := current[day-1]
			p.Current = &v
		}
		points = append(points, p)
	}
	return points
}

// cumulativeByDay returns the month's running total over the fixed
// 31-day axis, carrying the last value past the month's end.
func cumulativeByDay(debits []domain.Transaction, month domain.Month) []decimal.Decimal {
	daily := make(map[int]decimal.Decimal)
	for _, t := range debits {
		if domain.MonthOf(t.TxnDate) == month {
			day := t.TxnDate.Day()
			daily[day] = daily[day].Add(t.Amount)
		}
	}
	out := make([]decimal.Decimal, velocityDays)
	cumulative := decimal.Zero
	for day := 1; day <= velocityDays; day++ {
		cumulative = cumulative.Add(daily[day])
		out[day-1] = cumulative
	}
	return out
}

func monthlyBreakdown(ranged []domain.Transaction) []MonthBreakdown {
	totals := make(map[domain.Month]decimal.Decimal)
	for _, t := range ranged {
		m := domain.MonthOf(t.TxnDate)
		totals[m] = totals[m].Add(t.Amount)
	}
	out := make([]MonthBreakdown, 0, len(totals))
	for m, total := range totals {
		out = append(out, MonthBreakdown{Month: m, Spend: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// habits aggregates count, total and average spend per category.
// Uncategorized transactions are not a habit.
func habits(ranged []domain.Transaction, names map[string]domain.Category) []Habit {
	type acc struct {
		count int
		total decimal.Decimal
	}
	byCategory := make(map[string]*acc)
	for _, t := range ranged {
		if _, ok := names[t.CategoryID]; !ok {
			continue
		}
		a := byCategory[t.CategoryID]
		if a == nil {
			a = &acc{}
			byCategory[t.CategoryID] = a
		}
		a.count++
		a.total = a.total.Add(t.Amount)
	}

	out := make([]Habit, 0, len(byCategory))
	for id, a := range byCategory {
		out = append(out, Habit{
			Category:         names[id].Name,
			TransactionCount: a.count,
			TotalSpend:       a.total,
			AverageSpend:     a.total.Div(decimal.NewFromInt(int64(a.count))),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

func distribution(ranged []domain.Transaction, names map[string]domain.Category) []DistributionSlice {
	totals := make(map[string]decimal.Decimal)
	overall := decimal.Zero
	for _, t := range ranged {
		if _, ok := names[t.CategoryID]; !ok {
			continue
		}
		totals[t.CategoryID] = totals[t.CategoryID].Add(t.Amount)
		overall = overall.Add(t.Amount)
	}

	out := make([]DistributionSlice, 0, len(totals))
	for id, total := range totals {
		percentage := 0.0
		if overall.IsPositive() {
			percentage, _ = total.Div(overall).Mul(hundred).Round(2).Float64()
		}
		out = append(out, DistributionSlice{
			Category:   names[id].Name,
			Total:      total,
			Percentage: percentage,
			IconName:   names[id].IconName,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Total.GreaterThan(out[j].Total) })
	return out
}

func heatmap(ranged []domain.Transaction) []HeatmapCell {
	totals := make(map[string]decimal.Decimal)
	for _, t := range ranged {
		day := t.TxnDate.Format("2006-01-02")
		totals[day] = totals[day].Add(t.Amount)
	}
	out := make([]HeatmapCell, 0, len(totals))
	for day, total := range totals {
		out = append(out, HeatmapCell{Date: day, Spend: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func (s *Service) categoryNames(ctx context.Context, userID string) (map[string]domain.Category, error) {
	categories, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	names := make(map[string]domain.Category, len(categories))
	for _, c := range categories {
		names[c.ID] = c
	}
	return names, nil
}
