package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"chitieu/internal/amqp"
	"chitieu/internal/core"
	"chitieu/internal/log"
	"chitieu/internal/store"
)

// Publisher announces record changes to other processes.
type Publisher interface {
	PublishRecordEvent(ctx context.Context, ev *amqp.RecordEvent) error
}

// ChangeListener is notified in-process after every successful mutation.
type ChangeListener func(owner string, kind core.Kind)

// RecordService validates and persists records for one owner at a time and
// fans out change notifications. Notification failures never fail the call.
type RecordService struct {
	store     store.Store
	publisher Publisher
	logger    *log.Logger
	now       func() time.Time

	mu        sync.RWMutex
	listeners []ChangeListener
}

func NewRecordService(st store.Store, publisher Publisher, logger *log.Logger) *RecordService {
	if logger == nil {
		logger = log.Discard()
	}
	return &RecordService{
		store:     st,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentRecords),
		now:       time.Now,
	}
}

// OnChange registers a listener. Listeners run synchronously, in order.
func (s *RecordService) OnChange(fn ChangeListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *RecordService) changed(ctx context.Context, owner string, kind core.Kind, id string, op amqp.Op) {
	s.mu.RLock()
	listeners := append([]ChangeListener(nil), s.listeners...)
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn(owner, kind)
	}

	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishRecordEvent(ctx, amqp.NewRecordEvent(owner, kind, id, op)); err != nil {
		// The record is saved; consumers catch up on the next change.
		s.logger.ErrorContext(ctx, "Failed to publish record event",
			log.NewFields().
				WithOperation(log.OpPublish).
				WithRecord(owner, string(kind), id).
				WithError(err).
				ToSlice()...)
	}
}

func (s *RecordService) stamp() (string, time.Time) {
	return uuid.NewString(), s.now().UTC()
}

func (s *RecordService) CreateExpense(ctx context.Context, owner string, e core.Expense) (core.Expense, error) {
	e.OwnerID = owner
	e.ID, e.CreatedAt = s.stamp()
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	if _, err := s.store.CreateExpense(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	s.changed(ctx, owner, core.KindExpense, e.ID, amqp.OpCreated)
	return e, nil
}

func (s *RecordService) UpdateExpense(ctx context.Context, owner, id string, p core.ExpensePatch) (core.Expense, error) {
	e, err := s.store.UpdateExpense(ctx, owner, id, p)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	s.changed(ctx, owner, core.KindExpense, id, amqp.OpUpdated)
	return e, nil
}

func (s *RecordService) DeleteExpense(ctx context.Context, owner, id string) error {
	if err := s.store.DeleteExpense(ctx, owner, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	s.changed(ctx, owner, core.KindExpense, id, amqp.OpDeleted)
	return nil
}

func (s *RecordService) CreateIncome(ctx context.Context, owner string, in core.Income) (core.Income, error) {
	in.OwnerID = owner
	in.ID, in.CreatedAt = s.stamp()
	if err := in.Validate(); err != nil {
		return core.Income{}, err
	}
	if _, err := s.store.CreateIncome(ctx, in); err != nil {
		return core.Income{}, fmt.Errorf("save income: %w", err)
	}
	s.changed(ctx, owner, core.KindIncome, in.ID, amqp.OpCreated)
	return in, nil
}

func (s *RecordService) UpdateIncome(ctx context.Context, owner, id string, p core.IncomePatch) (core.Income, error) {
	in, err := s.store.UpdateIncome(ctx, owner, id, p)
	if err != nil {
		return core.Income{}, fmt.Errorf("update income: %w", err)
	}
	s.changed(ctx, owner, core.KindIncome, id, amqp.OpUpdated)
	return in, nil
}

func (s *RecordService) DeleteIncome(ctx context.Context, owner, id string) error {
	if err := s.store.DeleteIncome(ctx, owner, id); err != nil {
		return fmt.Errorf("delete income: %w", err)
	}
	s.changed(ctx, owner, core.KindIncome, id, amqp.OpDeleted)
	return nil
}

func (s *RecordService) CreateBudget(ctx context.Context, owner string, b core.Budget) (core.Budget, error) {
	b.OwnerID = owner
	b.ID, b.CreatedAt = s.stamp()
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	if _, err := s.store.CreateBudget(ctx, b); err != nil {
		return core.Budget{}, fmt.Errorf("save budget: %w", err)
	}
	s.changed(ctx, owner, core.KindBudget, b.ID, amqp.OpCreated)
	return b, nil
}

func (s *RecordService) UpdateBudget(ctx context.Context, owner, id string, p core.BudgetPatch) (core.Budget, error) {
	b, err := s.store.UpdateBudget(ctx, owner, id, p)
	if err != nil {
		return core.Budget{}, fmt.Errorf("update budget: %w", err)
	}
	s.changed(ctx, owner, core.KindBudget, id, amqp.OpUpdated)
	return b, nil
}

func (s *RecordService) DeleteBudget(ctx context.Context, owner, id string) error {
	if err := s.store.DeleteBudget(ctx, owner, id); err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	s.changed(ctx, owner, core.KindBudget, id, amqp.OpDeleted)
	return nil
}

func (s *RecordService) CreateReminder(ctx context.Context, owner string, r core.Reminder) (core.Reminder, error) {
	r.OwnerID = owner
	r.ID, r.CreatedAt = s.stamp()
	r.UpdatedAt = r.CreatedAt
	if err := r.Validate(); err != nil {
		return core.Reminder{}, err
	}
	if _, err := s.store.CreateReminder(ctx, r); err != nil {
		return core.Reminder{}, fmt.Errorf("save reminder: %w", err)
	}
	s.changed(ctx, owner, core.KindReminder, r.ID, amqp.OpCreated)
	return r, nil
}

func (s *RecordService) UpdateReminder(ctx context.Context, owner, id string, p core.ReminderPatch) (core.Reminder, error) {
	r, err := s.store.UpdateReminder(ctx, owner, id, p)
	if err != nil {
		return core.Reminder{}, fmt.Errorf("update reminder: %w", err)
	}
	s.changed(ctx, owner, core.KindReminder, id, amqp.OpUpdated)
	return r, nil
}

// MarkReminderPaid flags a reminder as paid.
func (s *RecordService) MarkReminderPaid(ctx context.Context, owner, id string) (core.Reminder, error) {
	paid := true
	return s.UpdateReminder(ctx, owner, id, core.ReminderPatch{Paid: &paid})
}

func (s *RecordService) DeleteReminder(ctx context.Context, owner, id string) error {
	if err := s.store.DeleteReminder(ctx, owner, id); err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}
	s.changed(ctx, owner, core.KindReminder, id, amqp.OpDeleted)
	return nil
}

// Close closes the store and the publisher when they hold resources.
func (s *RecordService) Close() error {
	var errs []error

	if c, ok := s.store.(io.Closer); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}

	if c, ok := s.publisher.(io.Closer); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close record service: %w", errors.Join(errs...))
	}

	return nil
}
