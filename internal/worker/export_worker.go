package worker

import (
	"context"
	"fmt"
	"time"

	"chitieu/internal/amqp"
	"chitieu/internal/analytics"
	"chitieu/internal/core"
	"chitieu/internal/dashboard"
	"chitieu/internal/export"
	"chitieu/internal/log"
)

// SnapshotSource provides the records of an owner. The worker drops any
// cached copy before reading, since the change happened in another process.
type SnapshotSource interface {
	Invalidate(owner string, kind core.Kind)
	Snapshot(ctx context.Context, owner string) (dashboard.Snapshot, error)
}

// TableWriter replaces the content of a named sheet.
type TableWriter interface {
	WriteTable(ctx context.Context, sheet string, table export.Table) error
}

// ExportWorker keeps an owner's spreadsheet tables in step with their records.
type ExportWorker struct {
	source SnapshotSource
	writer TableWriter
	months int
	logger *log.Logger
	now    func() time.Time
}

func NewExportWorker(source SnapshotSource, writer TableWriter, months int, logger *log.Logger) *ExportWorker {
	return &ExportWorker{
		source: source,
		writer: writer,
		months: months,
		logger: logger.WithComponent(log.ComponentWorker),
		now:    time.Now,
	}
}

// HandleRecordEvent rewrites the monthly profit and category tables of the
// event's owner. Budget and reminder changes do not affect either table.
func (w *ExportWorker) HandleRecordEvent(ctx context.Context, ev *amqp.RecordEvent) error {
	if ev.Kind != core.KindExpense && ev.Kind != core.KindIncome {
		w.logger.DebugContext(ctx, "Skipping event without exported data",
			log.NewFields().WithRecord(ev.Owner, string(ev.Kind), ev.ID).ToSlice()...)
		return nil
	}

	w.logger.InfoContext(ctx, "Processing record event",
		log.NewFields().WithRecord(ev.Owner, string(ev.Kind), ev.ID).WithOperation(string(ev.Op)).ToSlice()...)

	return w.ExportOwner(ctx, ev.Owner)
}

// ExportOwner rebuilds every exported table of owner.
func (w *ExportWorker) ExportOwner(ctx context.Context, owner string) error {
	w.source.Invalidate(owner, "")
	snap, err := w.source.Snapshot(ctx, owner)
	if err != nil {
		return fmt.Errorf("load records of %s: %w", owner, err)
	}

	for _, table := range Tables(snap, w.months, w.now()) {
		sheet := SheetName(table, owner)
		if err := w.writer.WriteTable(ctx, sheet, table); err != nil {
			return fmt.Errorf("write %s: %w", sheet, err)
		}
	}

	w.logger.InfoContext(ctx, "Owner export refreshed",
		log.FieldOwner, owner,
		log.FieldCount, len(snap.Expenses)+len(snap.Incomes))
	return nil
}

// Tables returns the monthly profit of the trailing months and the category
// breakdown of the current month.
func Tables(snap dashboard.Snapshot, months int, now time.Time) []export.Table {
	profit := analytics.MonthlyProfit(snap.Expenses, snap.Incomes, months, now)
	month := analytics.RangeWindow(analytics.RangeMonth, now, now)
	breakdown := analytics.SortByAmountDesc(analytics.Breakdown(analytics.Filter(snap.Expenses, month.Criteria())))
	return []export.Table{
		export.FromMonthly(profit),
		export.FromBreakdown(breakdown),
	}
}

// SheetName is the sheet holding table for owner.
func SheetName(table export.Table, owner string) string {
	return table.Name + " " + owner
}
