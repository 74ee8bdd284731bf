package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Patches carry the fields of a partial update. Nil fields are left unchanged.
type (
	ExpensePatch struct {
		Amount      *decimal.Decimal `json:"amount,omitempty"`
		Category    *Category        `json:"category,omitempty"`
		Description *string          `json:"description,omitempty"`
		Date        *Date            `json:"date,omitempty"`
	}

	IncomePatch struct {
		Amount      *decimal.Decimal `json:"amount,omitempty"`
		Source      *string          `json:"source,omitempty"`
		Date        *Date            `json:"date,omitempty"`
		Description *string          `json:"description,omitempty"`
	}

	BudgetPatch struct {
		Category *Category        `json:"category,omitempty"`
		Amount   *decimal.Decimal `json:"amount,omitempty"`
		Period   *Period          `json:"period,omitempty"`
	}

	ReminderPatch struct {
		Title    *string          `json:"title,omitempty"`
		Amount   *decimal.Decimal `json:"amount,omitempty"`
		Category *Category        `json:"category,omitempty"`
		DueDate  *Date            `json:"dueDate,omitempty"`
		Paid     *bool            `json:"isPaid,omitempty"`
	}
)

// Apply returns a copy of e with the patch applied and validated.
func (p ExpensePatch) Apply(e Expense) (Expense, error) {
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	return e, e.Validate()
}

func (p IncomePatch) Apply(i Income) (Income, error) {
	if p.Amount != nil {
		i.Amount = *p.Amount
	}
	if p.Source != nil {
		i.Source = *p.Source
	}
	if p.Date != nil {
		i.Date = *p.Date
	}
	if p.Description != nil {
		i.Description = *p.Description
	}
	return i, i.Validate()
}

func (p BudgetPatch) Apply(b Budget) (Budget, error) {
	if p.Category != nil {
		b.Category = *p.Category
	}
	if p.Amount != nil {
		b.Amount = *p.Amount
	}
	if p.Period != nil {
		b.Period = *p.Period
	}
	return b, b.Validate()
}

// Apply also stamps UpdatedAt with now.
func (p ReminderPatch) Apply(r Reminder, now time.Time) (Reminder, error) {
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Amount != nil {
		r.Amount = *p.Amount
	}
	if p.Category != nil {
		r.Category = *p.Category
	}
	if p.DueDate != nil {
		r.DueDate = *p.DueDate
	}
	if p.Paid != nil {
		r.Paid = *p.Paid
	}
	r.UpdatedAt = now
	return r, r.Validate()
}

// IsEmpty reports whether the patch changes nothing.
func (p ExpensePatch) IsEmpty() bool {
	return p.Amount == nil && p.Category == nil && p.Description == nil && p.Date == nil
}

func (p IncomePatch) IsEmpty() bool {
	return p.Amount == nil && p.Source == nil && p.Date == nil && p.Description == nil
}

func (p BudgetPatch) IsEmpty() bool {
	return p.Category == nil && p.Amount == nil && p.Period == nil
}

func (p ReminderPatch) IsEmpty() bool {
	return p.Title == nil && p.Amount == nil && p.Category == nil && p.DueDate == nil && p.Paid == nil
}
