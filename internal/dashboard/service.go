// Package dashboard runs the analytics pipeline for one owner: fetch the
// owner's records, drop malformed ones, then filter, bucket, aggregate and
// evaluate budgets. Fetches run concurrently; everything after is pure.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"chitieu/internal/analytics"
	"chitieu/internal/cache"
	"chitieu/internal/core"
	"chitieu/internal/log"
	"chitieu/internal/store"
)

// ErrFetch marks failures of the upstream record store.
var ErrFetch = errors.New("fetch records")

// Snapshot is everything an owner has, as fetched in one go.
type Snapshot struct {
	Expenses  []core.Expense
	Incomes   []core.Income
	Budgets   []core.Budget
	Reminders []core.Reminder
}

type Service struct {
	store  store.Store
	cache  cache.Cache[Snapshot]
	logger *log.Logger
	now    func() time.Time

	// generations counts invalidations per owner. A fetch only fills the
	// cache if no invalidation happened while it ran.
	mu          sync.Mutex
	generations map[string]uint64
}

// NewService wires the pipeline to a store. snapshots may be nil to disable
// caching.
func NewService(st store.Store, snapshots cache.Cache[Snapshot], logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Discard()
	}
	return &Service{
		store:       st,
		cache:       snapshots,
		logger:      logger.WithComponent(log.ComponentDashboard),
		now:         time.Now,
		generations: make(map[string]uint64),
	}
}

// WithClock overrides the current time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Invalidate drops the cached snapshot of owner. Registered as a change
// listener on the record service.
func (s *Service) Invalidate(owner string, _ core.Kind) {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations[owner]++
	s.cache.Delete(owner)
}

func (s *Service) generation(owner string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[owner]
}

// storeSnapshot caches snap unless owner was invalidated after gen was read.
func (s *Service) storeSnapshot(owner string, gen uint64, snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generations[owner] != gen {
		s.logger.Debug("Discarding snapshot fetched before invalidation",
			log.FieldOwner, owner)
		return
	}
	s.cache.Set(owner, snap)
}

// Snapshot returns the owner's records with malformed entries removed. An
// empty owner yields an empty snapshot without touching the store.
func (s *Service) Snapshot(ctx context.Context, owner string) (Snapshot, error) {
	if owner == "" {
		return Snapshot{}, nil
	}
	var gen uint64
	if s.cache != nil {
		if snap, ok := s.cache.Get(owner); ok {
			return snap, nil
		}
		gen = s.generation(owner)
	}

	snap, err := s.fetch(ctx, owner)
	if err != nil {
		return Snapshot{}, err
	}

	snap.Expenses = analytics.DropMalformed(ctx, s.logger, snap.Expenses)
	snap.Incomes = analytics.DropMalformed(ctx, s.logger, snap.Incomes)
	snap.Reminders = analytics.DropMalformed(ctx, s.logger, snap.Reminders)

	if s.cache != nil {
		s.storeSnapshot(owner, gen, snap)
	}
	return snap, nil
}

func (s *Service) fetch(ctx context.Context, owner string) (Snapshot, error) {
	var snap Snapshot
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		if snap.Expenses, err = s.store.ListExpenses(ctx, owner); err != nil {
			return fmt.Errorf("expenses: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if snap.Incomes, err = s.store.ListIncomes(ctx, owner); err != nil {
			return fmt.Errorf("incomes: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if snap.Budgets, err = s.store.ListBudgets(ctx, owner); err != nil {
			return fmt.Errorf("budgets: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if snap.Reminders, err = s.store.ListReminders(ctx, owner); err != nil {
			return fmt.Errorf("reminders: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to fetch records",
			log.FieldOwner, owner,
			log.FieldOperation, log.OpList,
			log.FieldError, err)
		return Snapshot{}, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	return snap, nil
}
