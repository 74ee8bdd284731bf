package analytics

import (
	"fmt"
	"strings"
	"time"

	"chitieu/internal/core"
)

// Range is a dashboard time range.
type Range string

const (
	RangeWeek  Range = "week"
	RangeMonth Range = "month"
	RangeYear  Range = "year"
)

// rangeDivisors are the fixed day counts used for the average per day. They
// do not follow the calendar: a February month view still divides by 30.
var rangeDivisors = map[Range]int{
	RangeWeek:  7,
	RangeMonth: 30,
	RangeYear:  365,
}

func ParseRange(s string) (Range, error) {
	r := Range(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := rangeDivisors[r]; !ok {
		return "", fmt.Errorf("unknown range: %q", s)
	}
	return r, nil
}

// RangeDivisor returns the number of days the average per day divides by.
func RangeDivisor(r Range) int {
	return rangeDivisors[r]
}

// Window is an inclusive span of calendar days.
type Window struct {
	Start core.Date `json:"start"`
	End   core.Date `json:"end"`
}

// Contains reports whether d falls inside the window.
func (w Window) Contains(d core.Date) bool {
	return !d.Before(w.Start.Time) && d.Before(w.End.AddDays(1).Time)
}

// Criteria returns filter criteria restricted to the window.
func (w Window) Criteria() Criteria {
	return Criteria{Start: w.Start, End: w.End}
}

// Days is the number of calendar days in the window.
func (w Window) Days() int {
	return int(w.End.Sub(w.Start.Time).Hours()/24) + 1
}

// RangeWindow returns the window of a dashboard range. The week is the seven
// days ending today; month and year are the calendar month and calendar year
// containing ref.
func RangeWindow(r Range, now, ref time.Time) Window {
	switch r {
	case RangeWeek:
		today := core.DateOf(now)
		return Window{Start: today.AddDays(-6), End: today}
	case RangeYear:
		return YearlyWindow{}.Window(ref)
	default:
		return MonthlyWindow{}.Window(ref)
	}
}

// ChartGranularity is the bucket size of a range's trend chart: days for the
// week and month views, months for the year view.
func ChartGranularity(r Range) Granularity {
	if r == RangeYear {
		return Month
	}
	return Day
}

// WindowStrategy computes the window of a budget period around a reference time.
type WindowStrategy interface {
	Window(ref time.Time) Window
}

// DailyWindow is the calendar day containing ref.
type DailyWindow struct{}

func (DailyWindow) Window(ref time.Time) Window {
	d := core.DateOf(ref)
	return Window{Start: d, End: d}
}

// WeeklyWindow is the Monday to Sunday week containing ref.
type WeeklyWindow struct{}

func (WeeklyWindow) Window(ref time.Time) Window {
	d := core.DateOf(ref)
	offset := (int(d.Weekday()) + 6) % 7
	start := d.AddDays(-offset)
	return Window{Start: start, End: start.AddDays(6)}
}

// MonthlyWindow is the calendar month containing ref.
type MonthlyWindow struct{}

func (MonthlyWindow) Window(ref time.Time) Window {
	start := core.Date{Time: Month.Start(ref)}
	return Window{Start: start, End: core.Date{Time: start.AddDate(0, 1, -1)}}
}

// YearlyWindow is the calendar year containing ref.
type YearlyWindow struct{}

func (YearlyWindow) Window(ref time.Time) Window {
	start := core.Date{Time: Year.Start(ref)}
	return Window{Start: start, End: core.Date{Time: start.AddDate(1, 0, -1)}}
}

// periodWindows maps budget periods to their window strategies.
var periodWindows = map[core.Period]WindowStrategy{
	core.Daily:   DailyWindow{},
	core.Weekly:  WeeklyWindow{},
	core.Monthly: MonthlyWindow{},
	core.Yearly:  YearlyWindow{},
}

// PeriodWindow returns the window of period p that contains ref.
func PeriodWindow(p core.Period, ref time.Time) (Window, error) {
	strategy, ok := periodWindows[p]
	if !ok {
		return Window{}, fmt.Errorf("unknown budget period: %s", p)
	}
	return strategy.Window(ref), nil
}
