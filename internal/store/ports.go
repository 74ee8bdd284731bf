// Package store defines the persistence ports of the record service.
// Every call is scoped to one owner; a record belonging to another owner
// is reported as ErrNotFound.
package store

import (
	"context"
	"errors"

	"chitieu/internal/core"
)

// ErrNotFound is returned for unknown ids and for ids owned by someone else.
var ErrNotFound = errors.New("record not found")

type ExpenseStore interface {
	ListExpenses(ctx context.Context, owner string) ([]core.Expense, error)
	CreateExpense(ctx context.Context, e core.Expense) (string, error)
	UpdateExpense(ctx context.Context, owner, id string, p core.ExpensePatch) (core.Expense, error)
	DeleteExpense(ctx context.Context, owner, id string) error
}

type IncomeStore interface {
	ListIncomes(ctx context.Context, owner string) ([]core.Income, error)
	CreateIncome(ctx context.Context, i core.Income) (string, error)
	UpdateIncome(ctx context.Context, owner, id string, p core.IncomePatch) (core.Income, error)
	DeleteIncome(ctx context.Context, owner, id string) error
}

type BudgetStore interface {
	ListBudgets(ctx context.Context, owner string) ([]core.Budget, error)
	CreateBudget(ctx context.Context, b core.Budget) (string, error)
	UpdateBudget(ctx context.Context, owner, id string, p core.BudgetPatch) (core.Budget, error)
	DeleteBudget(ctx context.Context, owner, id string) error
}

type ReminderStore interface {
	ListReminders(ctx context.Context, owner string) ([]core.Reminder, error)
	CreateReminder(ctx context.Context, r core.Reminder) (string, error)
	UpdateReminder(ctx context.Context, owner, id string, p core.ReminderPatch) (core.Reminder, error)
	DeleteReminder(ctx context.Context, owner, id string) error
}

// Store is the full persistence surface a backend provides.
type Store interface {
	ExpenseStore
	IncomeStore
	BudgetStore
	ReminderStore

	// Ping reports whether the backend can serve requests.
	Ping(ctx context.Context) error
}
