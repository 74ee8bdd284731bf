// Package memory is the in-process record store. It backs the default
// deployment and doubles as the store in tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"chitieu/internal/core"
	"chitieu/internal/store"
)

type Store struct {
	mu        sync.Mutex
	now       func() time.Time
	expenses  []core.Expense
	incomes   []core.Income
	budgets   []core.Budget
	reminders []core.Reminder
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{now: time.Now}
}

// WithClock overrides the timestamp source. Used by tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Ping(context.Context) error { return nil }

// stamp fills id and creation time when the caller left them empty.
func (s *Store) stamp(id *string, created *time.Time) {
	if *id == "" {
		*id = uuid.NewString()
	}
	if created.IsZero() {
		*created = s.now().UTC()
	}
}

func ownedBy[T any](rows []T, owner string, ownerOf func(T) string) []T {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		if ownerOf(r) == owner {
			out = append(out, r)
		}
	}
	return out
}

func indexOf[T any](rows []T, owner, id string, key func(T) (string, string)) int {
	for i, r := range rows {
		if o, rid := key(r); o == owner && rid == id {
			return i
		}
	}
	return -1
}

func expenseKey(e core.Expense) (string, string)   { return e.OwnerID, e.ID }
func incomeKey(i core.Income) (string, string)     { return i.OwnerID, i.ID }
func budgetKey(b core.Budget) (string, string)     { return b.OwnerID, b.ID }
func reminderKey(r core.Reminder) (string, string) { return r.OwnerID, r.ID }

func (s *Store) ListExpenses(_ context.Context, owner string) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ownedBy(s.expenses, owner, func(e core.Expense) string { return e.OwnerID }), nil
}

func (s *Store) CreateExpense(_ context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stamp(&e.ID, &e.CreatedAt)
	s.expenses = append(s.expenses, e)
	return e.ID, nil
}

func (s *Store) UpdateExpense(_ context.Context, owner, id string, p core.ExpensePatch) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.expenses, owner, id, expenseKey)
	if i < 0 {
		return core.Expense{}, store.ErrNotFound
	}
	updated, err := p.Apply(s.expenses[i])
	if err != nil {
		return core.Expense{}, err
	}
	s.expenses[i] = updated
	return updated, nil
}

func (s *Store) DeleteExpense(_ context.Context, owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.expenses, owner, id, expenseKey)
	if i < 0 {
		return store.ErrNotFound
	}
	s.expenses = append(s.expenses[:i], s.expenses[i+1:]...)
	return nil
}

func (s *Store) ListIncomes(_ context.Context, owner string) ([]core.Income, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ownedBy(s.incomes, owner, func(i core.Income) string { return i.OwnerID }), nil
}

func (s *Store) CreateIncome(_ context.Context, in core.Income) (string, error) {
	if err := in.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stamp(&in.ID, &in.CreatedAt)
	s.incomes = append(s.incomes, in)
	return in.ID, nil
}

func (s *Store) UpdateIncome(_ context.Context, owner, id string, p core.IncomePatch) (core.Income, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.incomes, owner, id, incomeKey)
	if i < 0 {
		return core.Income{}, store.ErrNotFound
	}
	updated, err := p.Apply(s.incomes[i])
	if err != nil {
		return core.Income{}, err
	}
	s.incomes[i] = updated
	return updated, nil
}

func (s *Store) DeleteIncome(_ context.Context, owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.incomes, owner, id, incomeKey)
	if i < 0 {
		return store.ErrNotFound
	}
	s.incomes = append(s.incomes[:i], s.incomes[i+1:]...)
	return nil
}

func (s *Store) ListBudgets(_ context.Context, owner string) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ownedBy(s.budgets, owner, func(b core.Budget) string { return b.OwnerID }), nil
}

func (s *Store) CreateBudget(_ context.Context, b core.Budget) (string, error) {
	if err := b.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stamp(&b.ID, &b.CreatedAt)
	s.budgets = append(s.budgets, b)
	return b.ID, nil
}

func (s *Store) UpdateBudget(_ context.Context, owner, id string, p core.BudgetPatch) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.budgets, owner, id, budgetKey)
	if i < 0 {
		return core.Budget{}, store.ErrNotFound
	}
	updated, err := p.Apply(s.budgets[i])
	if err != nil {
		return core.Budget{}, err
	}
	s.budgets[i] = updated
	return updated, nil
}

func (s *Store) DeleteBudget(_ context.Context, owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.budgets, owner, id, budgetKey)
	if i < 0 {
		return store.ErrNotFound
	}
	s.budgets = append(s.budgets[:i], s.budgets[i+1:]...)
	return nil
}

func (s *Store) ListReminders(_ context.Context, owner string) ([]core.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ownedBy(s.reminders, owner, func(r core.Reminder) string { return r.OwnerID }), nil
}

func (s *Store) CreateReminder(_ context.Context, r core.Reminder) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stamp(&r.ID, &r.CreatedAt)
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = r.CreatedAt
	}
	s.reminders = append(s.reminders, r)
	return r.ID, nil
}

func (s *Store) UpdateReminder(_ context.Context, owner, id string, p core.ReminderPatch) (core.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.reminders, owner, id, reminderKey)
	if i < 0 {
		return core.Reminder{}, store.ErrNotFound
	}
	updated, err := p.Apply(s.reminders[i], s.now().UTC())
	if err != nil {
		return core.Reminder{}, err
	}
	s.reminders[i] = updated
	return updated, nil
}

func (s *Store) DeleteReminder(_ context.Context, owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.reminders, owner, id, reminderKey)
	if i < 0 {
		return store.ErrNotFound
	}
	s.reminders = append(s.reminders[:i], s.reminders[i+1:]...)
	return nil
}
