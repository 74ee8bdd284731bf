package analytics

import (
	"slices"

	"github.com/shopspring/decimal"

	"chitieu/internal/core"
)

var hundred = decimal.NewFromInt(100)

// Summary holds the scalar metrics of a record collection.
type Summary struct {
	Total   decimal.Decimal `json:"total"`
	Count   int             `json:"count"`
	Average decimal.Decimal `json:"average"`
}

// Summarize computes total, count and the per-period average over divisor
// elapsed periods.
func Summarize[T core.Record](records []T, divisor int) Summary {
	total := Total(records)
	return Summary{Total: total, Count: len(records), Average: Average(total, divisor)}
}

// Total sums the amounts of records.
func Total[T core.Record](records []T) decimal.Decimal {
	sum := decimal.Zero
	for _, r := range records {
		sum = sum.Add(r.RecordAmount())
	}
	return sum
}

// Average divides total by a caller supplied number of elapsed periods,
// rounded to two decimal places. A non-positive divisor yields zero.
func Average(total decimal.Decimal, divisor int) decimal.Decimal {
	if divisor <= 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(divisor))).Round(2)
}

// MeanPerRecord is the average transaction size rounded to a whole amount.
// An empty collection yields zero.
func MeanPerRecord[T core.Record](records []T) decimal.Decimal {
	if len(records) == 0 {
		return decimal.Zero
	}
	return Total(records).Div(decimal.NewFromInt(int64(len(records)))).Round(0)
}

// Percent returns round(part / total * 100), or zero when total is zero.
func Percent(part, total decimal.Decimal) int64 {
	if total.IsZero() {
		return 0
	}
	return part.Mul(hundred).Div(total).Round(0).IntPart()
}

// Breakdown sums expenses per category in the fixed category order.
// Categories without spending are left out.
func Breakdown(expenses []core.Expense) []core.CategoryAmount {
	sums := make(map[core.Category]decimal.Decimal)
	total := decimal.Zero
	for _, e := range expenses {
		sums[e.Category] = sums[e.Category].Add(e.Amount)
		total = total.Add(e.Amount)
	}

	out := make([]core.CategoryAmount, 0, len(sums))
	for _, c := range core.Categories() {
		amount, ok := sums[c]
		if !ok || amount.IsZero() {
			continue
		}
		out = append(out, core.CategoryAmount{Category: c, Amount: amount, Percent: Percent(amount, total)})
	}
	return out
}

// SortByAmountDesc returns a copy of rows ordered by amount, largest first.
// Equal amounts keep the category order.
func SortByAmountDesc(rows []core.CategoryAmount) []core.CategoryAmount {
	out := slices.Clone(rows)
	slices.SortStableFunc(out, func(a, b core.CategoryAmount) int {
		return b.Amount.Cmp(a.Amount)
	})
	return out
}
