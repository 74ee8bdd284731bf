package dashboard

import (
	"context"
	"slices"
	"time"

	"chitieu/internal/analytics"
	"chitieu/internal/core"
)

// PeriodStatus is a budget evaluated over its own current period window.
type PeriodStatus struct {
	core.BudgetStatus
	Window analytics.Window `json:"window"`
}

// BudgetReport lists period-aware statuses split into alerts and the rest,
// each ordered by percentage used, highest first.
type BudgetReport struct {
	Over   []PeriodStatus `json:"over"`
	Within []PeriodStatus `json:"within"`
}

// EvaluatePeriods evaluates each budget against the expenses of the period
// window containing now: a weekly budget sees this week, a yearly budget this
// year. Budgets with an unknown period are skipped.
func EvaluatePeriods(budgets []core.Budget, expenses []core.Expense, now time.Time) BudgetReport {
	report := BudgetReport{Over: make([]PeriodStatus, 0), Within: make([]PeriodStatus, 0)}
	for _, b := range budgets {
		w, err := analytics.PeriodWindow(b.Period, now)
		if err != nil {
			continue
		}
		st := PeriodStatus{
			BudgetStatus: analytics.EvaluateBudget(b, analytics.Filter(expenses, w.Criteria())),
			Window:       w,
		}
		if st.IsOver {
			report.Over = append(report.Over, st)
		} else {
			report.Within = append(report.Within, st)
		}
	}

	byPercentage := func(a, b PeriodStatus) int {
		return int(b.Percentage - a.Percentage)
	}
	slices.SortStableFunc(report.Over, byPercentage)
	slices.SortStableFunc(report.Within, byPercentage)
	return report
}

// BudgetStatus evaluates every budget of owner over its current period.
func (s *Service) BudgetStatus(ctx context.Context, owner string) (BudgetReport, error) {
	snap, err := s.Snapshot(ctx, owner)
	if err != nil {
		return BudgetReport{}, err
	}
	return EvaluatePeriods(snap.Budgets, snap.Expenses, s.now()), nil
}
