package analytics

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"chitieu/internal/core"
)

// Granularity is the size of a time bucket.
type Granularity int

const (
	Day Granularity = iota
	Month
	Year
)

// Label formats: day "dd/MM", month "MM/yyyy", year "yyyy".
var labelLayouts = map[Granularity]string{
	Day:   "02/01",
	Month: "01/2006",
	Year:  "2006",
}

func (g Granularity) String() string {
	switch g {
	case Day:
		return "day"
	case Month:
		return "month"
	case Year:
		return "year"
	default:
		return "unknown"
	}
}

// Label returns the bucket label of t.
func (g Granularity) Label(t time.Time) string {
	return t.Format(labelLayouts[g])
}

// Start truncates t to the first instant of its bucket, as a UTC calendar date.
func (g Granularity) Start(t time.Time) time.Time {
	y, m, d := t.Date()
	switch g {
	case Month:
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	case Year:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
}

// Step moves a bucket start n buckets forward (backward when n < 0) using
// calendar arithmetic.
func (g Granularity) Step(start time.Time, n int) time.Time {
	switch g {
	case Month:
		return start.AddDate(0, n, 0)
	case Year:
		return start.AddDate(n, 0, 0)
	default:
		return start.AddDate(0, 0, n)
	}
}

// Bucket is one time bucket and the records that fall into it.
type Bucket[T core.Record] struct {
	Label   string
	Start   time.Time
	Records []T
	Total   decimal.Decimal
}

// Sum flattens the bucket into a label/amount row.
func (b Bucket[T]) Sum() core.BucketSum {
	return core.BucketSum{Label: b.Label, Start: b.Start, Amount: b.Total, Count: len(b.Records)}
}

// Group partitions records into the buckets that contain at least one record.
func Group[T core.Record](records []T, g Granularity, order Order) []Bucket[T] {
	index := make(map[time.Time]int)
	var buckets []Bucket[T]
	for _, r := range records {
		start := g.Start(r.RecordDate().Time)
		i, ok := index[start]
		if !ok {
			i = len(buckets)
			index[start] = i
			buckets = append(buckets, Bucket[T]{Label: g.Label(start), Start: start, Total: decimal.Zero})
		}
		buckets[i].Records = append(buckets[i].Records, r)
		buckets[i].Total = buckets[i].Total.Add(r.RecordAmount())
	}
	slices.SortFunc(buckets, func(a, b Bucket[T]) int {
		if order == Descending {
			return b.Start.Compare(a.Start)
		}
		return a.Start.Compare(b.Start)
	})
	return buckets
}

// Series returns one row per bucket from the bucket containing from to the
// bucket containing to, inclusive, in ascending order. Empty buckets are kept
// with a zero amount.
func Series[T core.Record](records []T, g Granularity, from, to time.Time) []core.BucketSum {
	first, last := g.Start(from), g.Start(to)
	if last.Before(first) {
		return []core.BucketSum{}
	}

	sums := make(map[time.Time]*core.BucketSum)
	var out []core.BucketSum
	for start := first; !start.After(last); start = g.Step(start, 1) {
		out = append(out, core.BucketSum{Label: g.Label(start), Start: start, Amount: decimal.Zero})
	}
	for i := range out {
		sums[out[i].Start] = &out[i]
	}
	for _, r := range records {
		if row, ok := sums[g.Start(r.RecordDate().Time)]; ok {
			row.Amount = row.Amount.Add(r.RecordAmount())
			row.Count++
		}
	}
	return out
}

// TrailingSeries returns exactly n buckets ending with the bucket that
// contains end. Buckets without records have a zero amount.
func TrailingSeries[T core.Record](records []T, g Granularity, n int, end time.Time, order Order) []core.BucketSum {
	if n <= 0 {
		return []core.BucketSum{}
	}
	last := g.Start(end)
	out := Series(records, g, g.Step(last, -(n-1)), last)
	if order == Descending {
		slices.Reverse(out)
	}
	return out
}

// MonthlyProfit returns income, expenses and profit for the n calendar months
// ending with the month that contains end, oldest first.
func MonthlyProfit(expenses []core.Expense, incomes []core.Income, n int, end time.Time) []core.MonthlyAggregate {
	spent := TrailingSeries(expenses, Month, n, end, Ascending)
	earned := TrailingSeries(incomes, Month, n, end, Ascending)

	out := make([]core.MonthlyAggregate, len(spent))
	for i := range spent {
		out[i] = core.MonthlyAggregate{
			Month:    spent[i].Label,
			Start:    spent[i].Start,
			Income:   earned[i].Amount,
			Expenses: spent[i].Amount,
			Profit:   earned[i].Amount.Sub(spent[i].Amount),
		}
	}
	return out
}
