package dashboard

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"chitieu/internal/analytics"
	"chitieu/internal/core"
)

const (
	// ProfitMonths is the length of the trailing profit series on the overview.
	ProfitMonths = 6
	// UpcomingDays is how far ahead the overview lists unpaid reminders.
	UpcomingDays = 7
)

// Query selects the overview range. Month is any instant inside the month
// (or year) to show; the zero value means the current one.
type Query struct {
	Range analytics.Range
	Month time.Time
}

type Overview struct {
	Range       analytics.Range         `json:"range"`
	Window      analytics.Window        `json:"window"`
	Expenses    analytics.Summary       `json:"expenses"`
	IncomeTotal decimal.Decimal         `json:"incomeTotal"`
	Balance     decimal.Decimal         `json:"balance"`
	Breakdown   []core.CategoryAmount   `json:"breakdown"`
	Chart       []core.BucketSum        `json:"chart"`
	Budgets     []core.BudgetStatus     `json:"budgets"`
	OverBudget  []core.BudgetStatus     `json:"overBudget"`
	Profit      []core.MonthlyAggregate `json:"profit"`
	Upcoming    []core.Reminder         `json:"upcomingReminders"`
	Overdue     []core.Reminder         `json:"overdueReminders"`
	GeneratedAt time.Time               `json:"generatedAt"`
}

// Overview computes the dashboard of owner for the requested range.
func (s *Service) Overview(ctx context.Context, owner string, q Query) (Overview, error) {
	snap, err := s.Snapshot(ctx, owner)
	if err != nil {
		return Overview{}, err
	}
	return BuildOverview(snap, q, s.now()), nil
}

// BuildOverview is the pure part of Overview.
func BuildOverview(snap Snapshot, q Query, now time.Time) Overview {
	if q.Range == "" {
		q.Range = analytics.RangeMonth
	}
	ref := q.Month
	if ref.IsZero() {
		ref = now
	}

	window := analytics.RangeWindow(q.Range, now, ref)
	criteria := window.Criteria()
	expenses := analytics.Filter(snap.Expenses, criteria)
	incomes := analytics.Filter(snap.Incomes, criteria)

	summary := analytics.Summarize(expenses, analytics.RangeDivisor(q.Range))
	incomeTotal := analytics.Total(incomes)

	statuses := analytics.EvaluateBudgets(snap.Budgets, expenses)
	over, _ := analytics.SplitAlerts(statuses)

	today := core.DateOf(now)
	return Overview{
		Range:       q.Range,
		Window:      window,
		Expenses:    summary,
		IncomeTotal: incomeTotal,
		Balance:     incomeTotal.Sub(summary.Total),
		Breakdown:   analytics.SortByAmountDesc(analytics.Breakdown(expenses)),
		Chart:       analytics.Series(expenses, analytics.ChartGranularity(q.Range), window.Start.Time, window.End.Time),
		Budgets:     statuses,
		OverBudget:  over,
		Profit:      analytics.MonthlyProfit(snap.Expenses, snap.Incomes, ProfitMonths, now),
		Upcoming:    UpcomingReminders(snap.Reminders, today, UpcomingDays),
		Overdue:     OverdueReminders(snap.Reminders, today),
		GeneratedAt: now.UTC(),
	}
}
