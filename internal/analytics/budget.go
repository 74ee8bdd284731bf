package analytics

import (
	"slices"

	"github.com/shopspring/decimal"

	"chitieu/internal/core"
)

// EvaluateBudgets joins every budget with the spending in its category.
//
// The expenses are taken as given: the evaluator does not narrow them to the
// budget's period. Callers pass an already windowed collection.
func EvaluateBudgets(budgets []core.Budget, expenses []core.Expense) []core.BudgetStatus {
	spent := spendingByCategory(expenses)
	out := make([]core.BudgetStatus, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, evaluate(b, spent[b.Category]))
	}
	return out
}

// EvaluateBudget evaluates a single budget.
func EvaluateBudget(b core.Budget, expenses []core.Expense) core.BudgetStatus {
	return evaluate(b, spendingByCategory(expenses)[b.Category])
}

func spendingByCategory(expenses []core.Expense) map[core.Category]decimal.Decimal {
	spent := make(map[core.Category]decimal.Decimal)
	for _, e := range expenses {
		spent[e.Category] = spent[e.Category].Add(e.Amount)
	}
	return spent
}

func evaluate(b core.Budget, spending decimal.Decimal) core.BudgetStatus {
	status := core.BudgetStatus{
		Budget:          b,
		CurrentSpending: spending,
		Overage:         decimal.Zero,
		Remaining:       decimal.Zero,
	}

	// A zero ceiling is degenerate: any spending at all is over budget.
	if !b.Amount.IsPositive() {
		if spending.IsPositive() {
			status.IsOver = true
			status.Percentage = 100
			status.Overage = spending
		}
		return status
	}

	status.IsOver = spending.GreaterThan(b.Amount)
	status.Percentage = min(max(Percent(spending, b.Amount), 0), 100)
	if status.IsOver {
		status.Overage = spending.Sub(b.Amount)
	} else {
		status.Remaining = b.Amount.Sub(spending)
	}
	return status
}

// SplitAlerts separates over-budget statuses from the rest. Both lists are
// ordered by percentage used, highest first.
func SplitAlerts(statuses []core.BudgetStatus) (over, within []core.BudgetStatus) {
	over = make([]core.BudgetStatus, 0)
	within = make([]core.BudgetStatus, 0)
	for _, s := range statuses {
		if s.IsOver {
			over = append(over, s)
		} else {
			within = append(within, s)
		}
	}
	byPercentage := func(a, b core.BudgetStatus) int {
		return int(b.Percentage - a.Percentage)
	}
	slices.SortStableFunc(over, byPercentage)
	slices.SortStableFunc(within, byPercentage)
	return over, within
}
