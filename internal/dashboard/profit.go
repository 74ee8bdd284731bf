package dashboard

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"chitieu/internal/analytics"
	"chitieu/internal/core"
)

const (
	// ProfitPageSize is the number of months per profit table page.
	ProfitPageSize = 12
	// MaxProfitMonths bounds the history a profit table request may span.
	MaxProfitMonths = 120
)

type ProfitFilter string

const (
	ProfitAll  ProfitFilter = "all"
	ProfitGain ProfitFilter = "profit"
	ProfitLoss ProfitFilter = "loss"
)

type ProfitSortKey string

const (
	SortMonth    ProfitSortKey = "month"
	SortIncome   ProfitSortKey = "income"
	SortExpenses ProfitSortKey = "expenses"
	SortProfit   ProfitSortKey = "profit"
)

// TableQuery controls the profit table. ParseTableQuery supplies the
// defaults: all months, newest first.
type TableQuery struct {
	Filter ProfitFilter
	Sort   ProfitSortKey
	Order  analytics.Order
	Page   int
}

// ParseTableQuery validates the textual form of a table query.
func ParseTableQuery(filter, sortKey, direction string, page int) (TableQuery, error) {
	q := TableQuery{Filter: ProfitAll, Sort: SortMonth, Order: analytics.Descending, Page: page}

	switch f := ProfitFilter(strings.ToLower(filter)); f {
	case "":
	case ProfitAll, ProfitGain, ProfitLoss:
		q.Filter = f
	default:
		return TableQuery{}, fmt.Errorf("unknown profit filter: %q", filter)
	}

	switch k := ProfitSortKey(strings.ToLower(sortKey)); k {
	case "":
	case SortMonth, SortIncome, SortExpenses, SortProfit:
		q.Sort = k
	default:
		return TableQuery{}, fmt.Errorf("unknown sort key: %q", sortKey)
	}

	switch strings.ToLower(direction) {
	case "", "desc":
	case "asc":
		q.Order = analytics.Ascending
	default:
		return TableQuery{}, fmt.Errorf("unknown sort direction: %q", direction)
	}
	return q, nil
}

type ProfitTotals struct {
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Profit   decimal.Decimal `json:"profit"`
}

type ProfitPage struct {
	Rows       []core.MonthlyAggregate `json:"rows"`
	Totals     ProfitTotals            `json:"totals"`
	Pagination Pagination              `json:"pagination"`
}

// ProfitTable filters, sorts and pages monthly rows. Months with neither
// income nor expenses are left out. Totals cover the returned page only.
func ProfitTable(rows []core.MonthlyAggregate, q TableQuery) ProfitPage {
	kept := make([]core.MonthlyAggregate, 0, len(rows))
	for _, r := range rows {
		if !r.Income.IsPositive() && !r.Expenses.IsPositive() {
			continue
		}
		switch q.Filter {
		case ProfitGain:
			if r.Profit.IsNegative() {
				continue
			}
		case ProfitLoss:
			if !r.Profit.IsNegative() {
				continue
			}
		}
		kept = append(kept, r)
	}

	slices.SortStableFunc(kept, func(a, b core.MonthlyAggregate) int {
		var c int
		switch q.Sort {
		case SortIncome:
			c = a.Income.Cmp(b.Income)
		case SortExpenses:
			c = a.Expenses.Cmp(b.Expenses)
		case SortProfit:
			c = a.Profit.Cmp(b.Profit)
		default:
			c = a.Start.Compare(b.Start)
		}
		if q.Order == analytics.Descending {
			return -c
		}
		return c
	})

	page, pagination := paginate(kept, q.Page, ProfitPageSize)
	totals := ProfitTotals{Income: decimal.Zero, Expenses: decimal.Zero, Profit: decimal.Zero}
	for _, r := range page {
		totals.Income = totals.Income.Add(r.Income)
		totals.Expenses = totals.Expenses.Add(r.Expenses)
		totals.Profit = totals.Profit.Add(r.Profit)
	}
	return ProfitPage{Rows: page, Totals: totals, Pagination: pagination}
}

// Profit builds the profit table over the trailing months ending now.
func (s *Service) Profit(ctx context.Context, owner string, months int, q TableQuery) (ProfitPage, error) {
	if months < 1 {
		months = ProfitPageSize
	}
	months = min(months, MaxProfitMonths)

	snap, err := s.Snapshot(ctx, owner)
	if err != nil {
		return ProfitPage{}, err
	}
	rows := analytics.MonthlyProfit(snap.Expenses, snap.Incomes, months, s.now())
	return ProfitTable(rows, q), nil
}
