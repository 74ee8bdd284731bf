// Package storage persists records in SQLite or Postgres through database/sql.
// Amounts and dates are stored as text so both dialects share one schema;
// rows whose amount or date no longer parse are skipped with a warning.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"chitieu/internal/core"
	"chitieu/internal/log"
	"chitieu/internal/store"
)

var errMalformedRow = errors.New("malformed row")

type Repository struct {
	db      *sql.DB
	dialect Dialect
	logger  *log.Logger
	now     func() time.Time
}

var _ store.Store = (*Repository)(nil)

type scanner interface {
	Scan(dest ...any) error
}

// NewSQLiteRepository opens (creating if needed) the database file and
// migrates it to the latest schema.
func NewSQLiteRepository(dbPath string, logger *log.Logger) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	repo, err := open(SQLite, dbPath, logger)
	if err != nil {
		return nil, err
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY.
	repo.db.SetMaxOpenConns(1)
	return repo, nil
}

func NewPostgresRepository(databaseURL string, logger *log.Logger) (*Repository, error) {
	repo, err := open(Postgres, databaseURL, logger)
	if err != nil {
		return nil, err
	}
	repo.db.SetMaxOpenConns(25)
	repo.db.SetMaxIdleConns(5)
	return repo, nil
}

func open(dialect Dialect, dsn string, logger *log.Logger) (*Repository, error) {
	if logger == nil {
		logger = log.Discard()
	}

	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dialect, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{
		db:      db,
		dialect: dialect,
		logger:  logger.WithComponent(log.ComponentStorage),
		now:     time.Now,
	}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return r.db.ExecContext(ctx, r.dialect.rebind(query), args...)
}

// execOwned runs a statement scoped to one row and maps "no row" to ErrNotFound.
func (r *Repository) execOwned(ctx context.Context, query string, args ...any) error {
	res, err := r.exec(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// list runs query with the owner as sole argument and scans every row,
// skipping malformed ones.
func list[T any](ctx context.Context, r *Repository, kind, query, owner string, scan func(scanner) (T, error)) ([]T, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.rebind(query), owner)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		rec, err := scan(rows)
		if errors.Is(err, errMalformedRow) {
			r.logger.WarnContext(ctx, "Skipping malformed row",
				log.FieldOwner, owner,
				log.FieldRecordKind, kind,
				log.FieldError, err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", kind, err)
	}
	return out, nil
}

func get[T any](ctx context.Context, r *Repository, kind, query, owner, id string, scan func(scanner) (T, error)) (T, error) {
	rec, err := scan(r.db.QueryRowContext(ctx, r.dialect.rebind(query), owner, id))
	if errors.Is(err, sql.ErrNoRows) {
		return rec, store.ErrNotFound
	}
	if err != nil {
		return rec, fmt.Errorf("get %s %s: %w", kind, id, err)
	}
	return rec, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: amount %q", errMalformedRow, s)
	}
	return d, nil
}

func parseDate(s string) (core.Date, error) {
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, fmt.Errorf("%w: date %q", errMalformedRow, s)
	}
	return d, nil
}

func parseCategory(s string) (core.Category, error) {
	c := core.Category(s)
	if !c.IsValid() {
		return "", fmt.Errorf("%w: category %q", errMalformedRow, s)
	}
	return c, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime tolerates bad timestamps; they only carry audit information.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (r *Repository) stamp(id *string, created *time.Time) {
	if *id == "" {
		*id = uuid.NewString()
	}
	if created.IsZero() {
		*created = r.now().UTC()
	}
}

// Expenses

const expenseColumns = `id, owner_id, amount, category, description, spent_on, created_at`

func scanExpense(s scanner) (core.Expense, error) {
	var (
		e                                    core.Expense
		amount, category, spentOn, createdAt string
	)
	if err := s.Scan(&e.ID, &e.OwnerID, &amount, &category, &e.Description, &spentOn, &createdAt); err != nil {
		return e, err
	}
	var err error
	if e.Amount, err = parseAmount(amount); err != nil {
		return e, err
	}
	if e.Date, err = parseDate(spentOn); err != nil {
		return e, err
	}
	if e.Category, err = parseCategory(category); err != nil {
		return e, err
	}
	e.CreatedAt = parseTime(createdAt)
	return e, nil
}

func (r *Repository) ListExpenses(ctx context.Context, owner string) ([]core.Expense, error) {
	return list(ctx, r, "expenses",
		`SELECT `+expenseColumns+` FROM expenses WHERE owner_id = ? ORDER BY spent_on, created_at`,
		owner, scanExpense)
}

func (r *Repository) CreateExpense(ctx context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	r.stamp(&e.ID, &e.CreatedAt)
	_, err := r.exec(ctx,
		`INSERT INTO expenses (`+expenseColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.OwnerID, e.Amount.String(), string(e.Category), e.Description, e.Date.String(), formatTime(e.CreatedAt))
	if err != nil {
		return "", fmt.Errorf("create expense: %w", err)
	}

	r.logger.InfoContext(ctx, "Expense saved",
		log.FieldOwner, e.OwnerID,
		log.FieldRecordID, e.ID,
		log.FieldCategory, e.Category,
		log.FieldAmount, e.Amount.String())
	return e.ID, nil
}

func (r *Repository) UpdateExpense(ctx context.Context, owner, id string, p core.ExpensePatch) (core.Expense, error) {
	current, err := get(ctx, r, "expense",
		`SELECT `+expenseColumns+` FROM expenses WHERE owner_id = ? AND id = ?`, owner, id, scanExpense)
	if err != nil {
		return core.Expense{}, err
	}
	e, err := p.Apply(current)
	if err != nil {
		return core.Expense{}, err
	}
	err = r.execOwned(ctx,
		`UPDATE expenses SET amount = ?, category = ?, description = ?, spent_on = ? WHERE owner_id = ? AND id = ?`,
		e.Amount.String(), string(e.Category), e.Description, e.Date.String(), owner, id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %s: %w", id, err)
	}
	return e, nil
}

func (r *Repository) DeleteExpense(ctx context.Context, owner, id string) error {
	if err := r.execOwned(ctx, `DELETE FROM expenses WHERE owner_id = ? AND id = ?`, owner, id); err != nil {
		return fmt.Errorf("delete expense %s: %w", id, err)
	}
	return nil
}

// Incomes

const incomeColumns = `id, owner_id, amount, source, description, received_on, created_at`

func scanIncome(s scanner) (core.Income, error) {
	var (
		i                             core.Income
		amount, receivedOn, createdAt string
	)
	if err := s.Scan(&i.ID, &i.OwnerID, &amount, &i.Source, &i.Description, &receivedOn, &createdAt); err != nil {
		return i, err
	}
	var err error
	if i.Amount, err = parseAmount(amount); err != nil {
		return i, err
	}
	if i.Date, err = parseDate(receivedOn); err != nil {
		return i, err
	}
	i.CreatedAt = parseTime(createdAt)
	return i, nil
}

func (r *Repository) ListIncomes(ctx context.Context, owner string) ([]core.Income, error) {
	return list(ctx, r, "incomes",
		`SELECT `+incomeColumns+` FROM incomes WHERE owner_id = ? ORDER BY received_on, created_at`,
		owner, scanIncome)
}

func (r *Repository) CreateIncome(ctx context.Context, in core.Income) (string, error) {
	if err := in.Validate(); err != nil {
		return "", err
	}
	r.stamp(&in.ID, &in.CreatedAt)
	_, err := r.exec(ctx,
		`INSERT INTO incomes (`+incomeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.OwnerID, in.Amount.String(), in.Source, in.Description, in.Date.String(), formatTime(in.CreatedAt))
	if err != nil {
		return "", fmt.Errorf("create income: %w", err)
	}

	r.logger.InfoContext(ctx, "Income saved",
		log.FieldOwner, in.OwnerID,
		log.FieldRecordID, in.ID,
		log.FieldAmount, in.Amount.String())
	return in.ID, nil
}

func (r *Repository) UpdateIncome(ctx context.Context, owner, id string, p core.IncomePatch) (core.Income, error) {
	current, err := get(ctx, r, "income",
		`SELECT `+incomeColumns+` FROM incomes WHERE owner_id = ? AND id = ?`, owner, id, scanIncome)
	if err != nil {
		return core.Income{}, err
	}
	in, err := p.Apply(current)
	if err != nil {
		return core.Income{}, err
	}
	err = r.execOwned(ctx,
		`UPDATE incomes SET amount = ?, source = ?, description = ?, received_on = ? WHERE owner_id = ? AND id = ?`,
		in.Amount.String(), in.Source, in.Description, in.Date.String(), owner, id)
	if err != nil {
		return core.Income{}, fmt.Errorf("update income %s: %w", id, err)
	}
	return in, nil
}

func (r *Repository) DeleteIncome(ctx context.Context, owner, id string) error {
	if err := r.execOwned(ctx, `DELETE FROM incomes WHERE owner_id = ? AND id = ?`, owner, id); err != nil {
		return fmt.Errorf("delete income %s: %w", id, err)
	}
	return nil
}

// Budgets

const budgetColumns = `id, owner_id, category, amount, period, created_at`

func scanBudget(s scanner) (core.Budget, error) {
	var (
		b                                   core.Budget
		category, amount, period, createdAt string
	)
	if err := s.Scan(&b.ID, &b.OwnerID, &category, &amount, &period, &createdAt); err != nil {
		return b, err
	}
	var err error
	if b.Amount, err = parseAmount(amount); err != nil {
		return b, err
	}
	b.Category = core.Category(category)
	b.Period = core.Period(period)
	b.CreatedAt = parseTime(createdAt)
	return b, nil
}

func (r *Repository) ListBudgets(ctx context.Context, owner string) ([]core.Budget, error) {
	return list(ctx, r, "budgets",
		`SELECT `+budgetColumns+` FROM budgets WHERE owner_id = ? ORDER BY created_at`,
		owner, scanBudget)
}

func (r *Repository) CreateBudget(ctx context.Context, b core.Budget) (string, error) {
	if err := b.Validate(); err != nil {
		return "", err
	}
	r.stamp(&b.ID, &b.CreatedAt)
	_, err := r.exec(ctx,
		`INSERT INTO budgets (`+budgetColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		b.ID, b.OwnerID, string(b.Category), b.Amount.String(), string(b.Period), formatTime(b.CreatedAt))
	if err != nil {
		return "", fmt.Errorf("create budget: %w", err)
	}
	return b.ID, nil
}

func (r *Repository) UpdateBudget(ctx context.Context, owner, id string, p core.BudgetPatch) (core.Budget, error) {
	current, err := get(ctx, r, "budget",
		`SELECT `+budgetColumns+` FROM budgets WHERE owner_id = ? AND id = ?`, owner, id, scanBudget)
	if err != nil {
		return core.Budget{}, err
	}
	b, err := p.Apply(current)
	if err != nil {
		return core.Budget{}, err
	}
	err = r.execOwned(ctx,
		`UPDATE budgets SET category = ?, amount = ?, period = ? WHERE owner_id = ? AND id = ?`,
		string(b.Category), b.Amount.String(), string(b.Period), owner, id)
	if err != nil {
		return core.Budget{}, fmt.Errorf("update budget %s: %w", id, err)
	}
	return b, nil
}

func (r *Repository) DeleteBudget(ctx context.Context, owner, id string) error {
	if err := r.execOwned(ctx, `DELETE FROM budgets WHERE owner_id = ? AND id = ?`, owner, id); err != nil {
		return fmt.Errorf("delete budget %s: %w", id, err)
	}
	return nil
}

// Reminders

const reminderColumns = `id, owner_id, title, amount, category, due_date, is_paid, created_at, updated_at`

func scanReminder(s scanner) (core.Reminder, error) {
	var (
		rem                                             core.Reminder
		amount, category, dueDate, createdAt, updatedAt string
	)
	if err := s.Scan(&rem.ID, &rem.OwnerID, &rem.Title, &amount, &category, &dueDate, &rem.Paid, &createdAt, &updatedAt); err != nil {
		return rem, err
	}
	var err error
	if rem.Amount, err = parseAmount(amount); err != nil {
		return rem, err
	}
	if rem.DueDate, err = parseDate(dueDate); err != nil {
		return rem, err
	}
	if rem.Category, err = parseCategory(category); err != nil {
		return rem, err
	}
	rem.CreatedAt = parseTime(createdAt)
	rem.UpdatedAt = parseTime(updatedAt)
	return rem, nil
}

func (r *Repository) ListReminders(ctx context.Context, owner string) ([]core.Reminder, error) {
	return list(ctx, r, "reminders",
		`SELECT `+reminderColumns+` FROM reminders WHERE owner_id = ? ORDER BY due_date, created_at`,
		owner, scanReminder)
}

func (r *Repository) CreateReminder(ctx context.Context, rem core.Reminder) (string, error) {
	if err := rem.Validate(); err != nil {
		return "", err
	}
	r.stamp(&rem.ID, &rem.CreatedAt)
	if rem.UpdatedAt.IsZero() {
		rem.UpdatedAt = rem.CreatedAt
	}
	_, err := r.exec(ctx,
		`INSERT INTO reminders (`+reminderColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rem.ID, rem.OwnerID, rem.Title, rem.Amount.String(), string(rem.Category), rem.DueDate.String(),
		rem.Paid, formatTime(rem.CreatedAt), formatTime(rem.UpdatedAt))
	if err != nil {
		return "", fmt.Errorf("create reminder: %w", err)
	}
	return rem.ID, nil
}

func (r *Repository) UpdateReminder(ctx context.Context, owner, id string, p core.ReminderPatch) (core.Reminder, error) {
	current, err := get(ctx, r, "reminder",
		`SELECT `+reminderColumns+` FROM reminders WHERE owner_id = ? AND id = ?`, owner, id, scanReminder)
	if err != nil {
		return core.Reminder{}, err
	}
	rem, err := p.Apply(current, r.now().UTC())
	if err != nil {
		return core.Reminder{}, err
	}
	err = r.execOwned(ctx,
		`UPDATE reminders SET title = ?, amount = ?, category = ?, due_date = ?, is_paid = ?, updated_at = ? WHERE owner_id = ? AND id = ?`,
		rem.Title, rem.Amount.String(), string(rem.Category), rem.DueDate.String(), rem.Paid, formatTime(rem.UpdatedAt), owner, id)
	if err != nil {
		return core.Reminder{}, fmt.Errorf("update reminder %s: %w", id, err)
	}
	return rem, nil
}

func (r *Repository) DeleteReminder(ctx context.Context, owner, id string) error {
	if err := r.execOwned(ctx, `DELETE FROM reminders WHERE owner_id = ? AND id = ?`, owner, id); err != nil {
		return fmt.Errorf("delete reminder %s: %w", id, err)
	}
	return nil
}
