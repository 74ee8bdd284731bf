// Package export turns pipeline results into flat tables for spreadsheet
// tools: CSV downloads and the Google Sheets mirror.
package export

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"chitieu/internal/core"
)

// Table is a header row plus data rows of equal width.
type Table struct {
	Name    string
	Headers []string
	Rows    [][]string
}

// Report names the tables an owner can export.
type Report string

const (
	ReportExpenses   Report = "expenses"
	ReportCategories Report = "categories"
	ReportMonthly    Report = "monthly"
	ReportSeries     Report = "series"
)

func ParseReport(s string) (Report, error) {
	switch r := Report(s); r {
	case ReportExpenses, ReportCategories, ReportMonthly, ReportSeries:
		return r, nil
	}
	return "", fmt.Errorf("unknown report: %q", s)
}

// Width is the number of columns.
func (t Table) Width() int {
	return len(t.Headers)
}

// Values returns header and rows as a single grid of cells.
func (t Table) Values() [][]any {
	out := make([][]any, 0, len(t.Rows)+1)
	header := make([]any, len(t.Headers))
	for i, h := range t.Headers {
		header[i] = h
	}
	out = append(out, header)
	for _, row := range t.Rows {
		cells := make([]any, len(row))
		for i, c := range row {
			cells[i] = SafeCell(c)
		}
		out = append(out, cells)
	}
	return out
}

func FromExpenses(expenses []core.Expense) Table {
	t := Table{
		Name:    "Chi tiêu",
		Headers: []string{"Ngày", "Danh mục", "Mô tả", "Số tiền"},
		Rows:    make([][]string, 0, len(expenses)),
	}
	for _, e := range expenses {
		t.Rows = append(t.Rows, []string{e.Date.String(), string(e.Category), e.Description, e.Amount.String()})
	}
	return t
}

func FromBreakdown(rows []core.CategoryAmount) Table {
	t := Table{
		Name:    "Danh mục",
		Headers: []string{"Danh mục", "Số tiền", "Tỷ lệ (%)"},
		Rows:    make([][]string, 0, len(rows)),
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{string(r.Category), r.Amount.String(), strconv.FormatInt(r.Percent, 10)})
	}
	return t
}

func FromSeries(rows []core.BucketSum) Table {
	t := Table{
		Name:    "Xu hướng",
		Headers: []string{"Kỳ", "Số tiền", "Số giao dịch"},
		Rows:    make([][]string, 0, len(rows)),
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{r.Label, r.Amount.String(), strconv.Itoa(r.Count)})
	}
	return t
}

func FromMonthly(rows []core.MonthlyAggregate) Table {
	t := Table{
		Name:    "Lợi nhuận",
		Headers: []string{"Tháng", "Thu nhập", "Chi tiêu", "Lợi nhuận"},
		Rows:    make([][]string, 0, len(rows)),
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{r.Month, r.Income.String(), r.Expenses.String(), r.Profit.String()})
	}
	return t
}

// SafeCell neutralises text a spreadsheet would evaluate as a formula by
// prefixing it with an apostrophe. Numbers, negative ones included, pass
// through unchanged.
func SafeCell(s string) string {
	if s == "" || !strings.ContainsRune("=+-@\t\r", rune(s[0])) {
		return s
	}
	if _, err := decimal.NewFromString(s); err == nil {
		return s
	}
	return "'" + s
}
