package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"chitieu/internal/core"
)

func TestWriteCSV(t *testing.T) {
	table := FromExpenses([]core.Expense{
		{Date: core.NewDate(2024, 3, 5), Category: core.CategoryFood, Description: "Phở, bò", Amount: decimal.RequireFromString("50000")},
		{Date: core.NewDate(2024, 3, 6), Category: core.CategoryTransport, Description: "Grab", Amount: decimal.RequireFromString("32000.5")},
	})

	var buf bytes.Buffer
	if err := WriteCSV(&buf, table); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	out := buf.Bytes()
	if !bytes.HasPrefix(out, utf8BOM) {
		t.Fatal("output should start with a UTF-8 BOM")
	}
	lines := strings.Split(strings.TrimSpace(string(out[len(utf8BOM):])), "\n")
	want := []string{
		"Ngày,Danh mục,Mô tả,Số tiền",
		`2024-03-05,Ăn uống,"Phở, bò",50000`,
		"2024-03-06,Đi lại,Grab,32000.5",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d: %q", len(lines), len(want), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestWriteCSV_EscapesFormulaCells(t *testing.T) {
	table := FromExpenses([]core.Expense{
		{Date: core.NewDate(2024, 3, 5), Category: core.CategoryOther, Description: "=HYPERLINK(\"http://x\")", Amount: decimal.NewFromInt(1)},
		{Date: core.NewDate(2024, 3, 6), Category: core.CategoryOther, Description: "@SUM(A1)", Amount: decimal.NewFromInt(2)},
		{Date: core.NewDate(2024, 3, 7), Category: core.CategoryOther, Description: "-2+3", Amount: decimal.NewFromInt(3)},
	})

	var buf bytes.Buffer
	if err := WriteCSV(&buf, table); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	out := string(buf.Bytes()[len(utf8BOM):])
	for _, want := range []string{`"'=HYPERLINK(""http://x"")"`, "'@SUM(A1)", "'-2+3"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSafeCell(t *testing.T) {
	cases := map[string]string{
		"":       "",
		"Phở bò": "Phở bò",
		"-50":    "-50",
		"+1.5":   "+1.5",
		"=1+1":   "'=1+1",
		"+cmd":   "'+cmd",
		"-":      "'-",
		"@A1":    "'@A1",
		"\tx":    "'\tx",
		"a=b":    "a=b",
	}
	for in, want := range cases {
		if got := SafeCell(in); got != want {
			t.Errorf("SafeCell(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWriteCSV_RaggedRow(t *testing.T) {
	table := Table{Headers: []string{"a", "b"}, Rows: [][]string{{"1"}}}
	if err := WriteCSV(&bytes.Buffer{}, table); err == nil {
		t.Error("WriteCSV() should reject rows with the wrong width")
	}
}

func TestTableBuilders(t *testing.T) {
	breakdown := FromBreakdown([]core.CategoryAmount{{Category: core.CategoryBills, Amount: decimal.NewFromInt(300), Percent: 75}})
	if got := breakdown.Rows[0]; got[0] != "Hóa đơn" || got[2] != "75" {
		t.Errorf("breakdown row = %v", got)
	}

	series := FromSeries([]core.BucketSum{{Label: "03/2024", Amount: decimal.Zero, Count: 0}})
	if got := series.Rows[0]; got[0] != "03/2024" || got[1] != "0" || got[2] != "0" {
		t.Errorf("series row = %v", got)
	}

	monthly := FromMonthly([]core.MonthlyAggregate{{
		Month:    "02/2024",
		Start:    time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Income:   decimal.NewFromInt(100),
		Expenses: decimal.NewFromInt(150),
		Profit:   decimal.NewFromInt(-50),
	}})
	if got := monthly.Rows[0]; got[3] != "-50" {
		t.Errorf("monthly row = %v", got)
	}

	values := monthly.Values()
	if len(values) != 2 || values[0][0] != "Tháng" || values[1][0] != "02/2024" || values[1][3] != "-50" {
		t.Errorf("Values() = %v", values)
	}
}

func TestParseReport(t *testing.T) {
	for _, name := range []string{"expenses", "categories", "monthly", "series"} {
		if _, err := ParseReport(name); err != nil {
			t.Errorf("ParseReport(%q) error = %v", name, err)
		}
	}
	if _, err := ParseReport("budgets"); err == nil {
		t.Error("ParseReport(budgets) should fail")
	}
}
