package core

import (
	"github.com/shopspring/decimal"
)

// Record is the dated-amount capability shared by expenses, incomes and
// reminders. Filters, bucketers and aggregators are generic over it.
type Record interface {
	RecordDate() Date
	RecordAmount() decimal.Decimal
	// RecordLabel is the value an exact label criterion is matched against:
	// the category for expenses and reminders, the source for incomes.
	RecordLabel() string
	// SearchFields are the texts free-text search looks into.
	SearchFields() []string
}

var (
	_ Record = Expense{}
	_ Record = Income{}
	_ Record = Reminder{}
)

func (e Expense) RecordDate() Date               { return e.Date }
func (e Expense) RecordAmount() decimal.Decimal  { return e.Amount }
func (e Expense) RecordLabel() string            { return string(e.Category) }
func (e Expense) SearchFields() []string         { return []string{e.Description, string(e.Category)} }
func (i Income) RecordDate() Date                { return i.Date }
func (i Income) RecordAmount() decimal.Decimal   { return i.Amount }
func (i Income) RecordLabel() string             { return i.Source }
func (r Reminder) RecordDate() Date              { return r.DueDate }
func (r Reminder) RecordAmount() decimal.Decimal { return r.Amount }
func (r Reminder) RecordLabel() string           { return string(r.Category) }

// SearchFields for incomes include the plain decimal form of the amount, so
// searching "50000" finds a 50000 income.
func (i Income) SearchFields() []string {
	return []string{i.Source, i.Description, i.Amount.String()}
}

func (r Reminder) SearchFields() []string {
	return []string{r.Title, string(r.Category)}
}

// ValidLabel reports whether the category is one of the known ones. Records
// outside the enumeration have no breakdown row to land in.
func (e Expense) ValidLabel() bool  { return e.Category.IsValid() }
func (r Reminder) ValidLabel() bool { return r.Category.IsValid() }

// Kind names a record collection in change notifications and routes.
type Kind string

const (
	KindExpense  Kind = "expense"
	KindIncome   Kind = "income"
	KindBudget   Kind = "budget"
	KindReminder Kind = "reminder"
)

func (k Kind) IsValid() bool {
	switch k {
	case KindExpense, KindIncome, KindBudget, KindReminder:
		return true
	}
	return false
}
