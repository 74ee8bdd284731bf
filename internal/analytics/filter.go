// Package analytics holds the pure aggregation pipeline run over fetched
// records: filtering, time bucketing, aggregation and budget evaluation.
//
// Nothing in this package performs I/O or reads ambient state. Every function
// takes its inputs explicitly and returns new values without mutating them.
package analytics

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"chitieu/internal/core"
)

// Order selects chronological direction.
type Order int

const (
	Ascending Order = iota
	Descending
)

// RawCriteria is filter input as it arrives from a query string or form.
type RawCriteria struct {
	Label  string // category for expenses, source for incomes
	Start  string
	End    string
	Min    string
	Max    string
	Search string
}

// Criteria is a parsed filter. Zero-valued fields impose no constraint.
type Criteria struct {
	Label  string
	Start  core.Date
	End    core.Date
	Min    *decimal.Decimal
	Max    *decimal.Decimal
	Search string
}

// ParseCriteria converts raw input into Criteria. Unparseable dates and
// numbers are treated as absent, never as errors. "all" as a label means no
// label constraint.
func ParseCriteria(raw RawCriteria) Criteria {
	c := Criteria{
		Label:  strings.TrimSpace(raw.Label),
		Search: strings.TrimSpace(raw.Search),
	}
	if strings.EqualFold(c.Label, "all") {
		c.Label = ""
	}
	if d, err := core.ParseDate(raw.Start); err == nil {
		c.Start = d
	}
	if d, err := core.ParseDate(raw.End); err == nil {
		c.End = d
	}
	if v, ok := core.ParseOptionalAmount(raw.Min); ok {
		c.Min = &v
	}
	if v, ok := core.ParseOptionalAmount(raw.Max); ok {
		c.Max = &v
	}
	return c
}

// ActiveCount is the number of constraints set.
func (c Criteria) ActiveCount() int {
	n := 0
	if c.Label != "" {
		n++
	}
	if !c.Start.IsZero() {
		n++
	}
	if !c.End.IsZero() {
		n++
	}
	if c.Min != nil {
		n++
	}
	if c.Max != nil {
		n++
	}
	if c.Search != "" {
		n++
	}
	return n
}

// IsEmpty reports whether the criteria match everything.
func (c Criteria) IsEmpty() bool {
	return c.ActiveCount() == 0
}

// Match reports whether r satisfies every set constraint.
//
// The end bound is moved one calendar day forward and compared with a strict
// before, so a record dated on the end day always matches.
func (c Criteria) Match(r core.Record) bool {
	if c.Label != "" && r.RecordLabel() != c.Label {
		return false
	}
	d := r.RecordDate()
	if !c.Start.IsZero() && d.Before(c.Start.Time) {
		return false
	}
	if !c.End.IsZero() && !d.Before(c.End.AddDays(1).Time) {
		return false
	}
	amount := r.RecordAmount()
	if c.Min != nil && amount.LessThan(*c.Min) {
		return false
	}
	if c.Max != nil && amount.GreaterThan(*c.Max) {
		return false
	}
	if c.Search != "" && !matchesText(r.SearchFields(), c.Search) {
		return false
	}
	return true
}

func matchesText(fields []string, search string) bool {
	needle := strings.ToLower(search)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

// Filter returns the records matching c, preserving input order. The result
// is never nil.
func Filter[T core.Record](records []T, c Criteria) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		if c.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// SortByDate returns a copy of records sorted by date. Records on the same
// day keep their relative order.
func SortByDate[T core.Record](records []T, order Order) []T {
	out := slices.Clone(records)
	slices.SortStableFunc(out, func(a, b T) int {
		cmp := a.RecordDate().Compare(b.RecordDate().Time)
		if order == Descending {
			return -cmp
		}
		return cmp
	})
	return out
}
