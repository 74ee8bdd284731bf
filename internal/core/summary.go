package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryAmount is one row of a category breakdown.
type CategoryAmount struct {
	Category Category        `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Percent  int64           `json:"percent"`
}

// BucketSum is the summed amount of one time bucket.
type BucketSum struct {
	Label  string          `json:"label"`
	Start  time.Time       `json:"start"`
	Amount decimal.Decimal `json:"amount"`
	Count  int             `json:"count"`
}

// MonthlyAggregate is income, expenses and profit for one calendar month.
type MonthlyAggregate struct {
	Month    string          `json:"month"` // MM/yyyy
	Start    time.Time       `json:"start"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Profit   decimal.Decimal `json:"profit"`
}

// BudgetStatus joins a budget with the spending evaluated against it.
type BudgetStatus struct {
	Budget          Budget          `json:"budget"`
	CurrentSpending decimal.Decimal `json:"currentSpending"`
	IsOver          bool            `json:"isOver"`
	Percentage      int64           `json:"percentage"` // 0..100
	Overage         decimal.Decimal `json:"overage"`
	Remaining       decimal.Decimal `json:"remaining"`
}
