package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chitieu/internal/analytics"
	"chitieu/internal/cache"
	"chitieu/internal/core"
	"chitieu/internal/store/memory"
)

var errUpstream = errors.New("upstream unavailable")

// failingStore fails income listing and counts calls.
type failingStore struct {
	*memory.Store
	calls int
}

func (f *failingStore) ListIncomes(context.Context, string) ([]core.Income, error) {
	f.calls++
	return nil, errUpstream
}

// gatedStore holds ListExpenses until release is closed, after reading the
// underlying store.
type gatedStore struct {
	*memory.Store
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) ListExpenses(ctx context.Context, owner string) ([]core.Expense, error) {
	out, err := g.Store.ListExpenses(ctx, owner)
	g.entered <- struct{}{}
	<-g.release
	return out, err
}

func amt(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func fixedNow() time.Time { return time.Date(2024, 3, 20, 15, 0, 0, 0, time.UTC) }

func seed(t *testing.T, st *memory.Store) {
	t.Helper()
	ctx := context.Background()
	expenses := []core.Expense{
		{OwnerID: "u1", Amount: amt("50000"), Category: core.CategoryFood, Description: "Siêu thị", Date: core.NewDate(2024, 3, 5)},
		{OwnerID: "u1", Amount: amt("30000"), Category: core.CategoryFood, Description: "Cà phê", Date: core.NewDate(2024, 3, 10)},
		{OwnerID: "u1", Amount: amt("20000"), Category: core.CategoryTransport, Description: "Xe buýt", Date: core.NewDate(2024, 2, 10)},
		{OwnerID: "u2", Amount: amt("999999"), Category: core.CategoryFood, Description: "other", Date: core.NewDate(2024, 3, 6)},
	}
	for _, e := range expenses {
		_, err := st.CreateExpense(ctx, e)
		require.NoError(t, err)
	}
	_, err := st.CreateIncome(ctx, core.Income{OwnerID: "u1", Amount: amt("100000"), Source: "Lương", Date: core.NewDate(2024, 3, 1)})
	require.NoError(t, err)
	_, err = st.CreateBudget(ctx, core.Budget{OwnerID: "u1", Category: core.CategoryFood, Amount: amt("100000"), Period: core.Monthly})
	require.NoError(t, err)
	_, err = st.CreateReminder(ctx, core.Reminder{OwnerID: "u1", Title: "Điện", Amount: amt("300000"), Category: core.CategoryBills, DueDate: core.NewDate(2024, 3, 22)})
	require.NoError(t, err)
	_, err = st.CreateReminder(ctx, core.Reminder{OwnerID: "u1", Title: "Nước", Amount: amt("100000"), Category: core.CategoryBills, DueDate: core.NewDate(2024, 3, 15)})
	require.NoError(t, err)
}

func newSeededService(t *testing.T) (*Service, *memory.Store) {
	st := memory.New()
	seed(t, st)
	return NewService(st, nil, nil).WithClock(fixedNow), st
}

func TestOverview_MonthRange(t *testing.T) {
	svc, _ := newSeededService(t)

	ov, err := svc.Overview(context.Background(), "u1", Query{Range: analytics.RangeMonth})
	require.NoError(t, err)

	assert.Equal(t, "2024-03-01", ov.Window.Start.String())
	assert.Equal(t, "2024-03-31", ov.Window.End.String())
	assert.True(t, ov.Expenses.Total.Equal(amt("80000")), "total %s", ov.Expenses.Total)
	assert.Equal(t, 2, ov.Expenses.Count)
	assert.True(t, ov.Expenses.Average.Equal(amt("2666.67")), "average %s", ov.Expenses.Average)
	assert.True(t, ov.IncomeTotal.Equal(amt("100000")))
	assert.True(t, ov.Balance.Equal(amt("20000")))

	require.Len(t, ov.Breakdown, 1)
	assert.Equal(t, core.CategoryFood, ov.Breakdown[0].Category)
	assert.EqualValues(t, 100, ov.Breakdown[0].Percent)

	assert.Len(t, ov.Chart, 31)
	assert.Equal(t, "05/03", ov.Chart[4].Label)
	assert.True(t, ov.Chart[4].Amount.Equal(amt("50000")))

	require.Len(t, ov.Budgets, 1)
	assert.True(t, ov.Budgets[0].CurrentSpending.Equal(amt("80000")))
	assert.EqualValues(t, 80, ov.Budgets[0].Percentage)
	assert.False(t, ov.Budgets[0].IsOver)
	assert.Empty(t, ov.OverBudget)

	require.Len(t, ov.Profit, ProfitMonths)
	last := ov.Profit[len(ov.Profit)-1]
	assert.Equal(t, "03/2024", last.Month)
	assert.True(t, last.Profit.Equal(amt("20000")))
	assert.Equal(t, "10/2023", ov.Profit[0].Month)

	require.Len(t, ov.Upcoming, 1)
	assert.Equal(t, "Điện", ov.Upcoming[0].Title)
	require.Len(t, ov.Overdue, 1)
	assert.Equal(t, "Nước", ov.Overdue[0].Title)
}

func TestOverview_ChartBucketCounts(t *testing.T) {
	svc, _ := newSeededService(t)
	ctx := context.Background()

	week, err := svc.Overview(ctx, "u1", Query{Range: analytics.RangeWeek})
	require.NoError(t, err)
	assert.Len(t, week.Chart, 7)
	assert.Equal(t, "2024-03-14", week.Window.Start.String())

	year, err := svc.Overview(ctx, "u1", Query{Range: analytics.RangeYear})
	require.NoError(t, err)
	assert.Len(t, year.Chart, 12)
	assert.True(t, year.Expenses.Total.Equal(amt("100000")))
	assert.True(t, year.Expenses.Average.Equal(amt("273.97")), "average %s", year.Expenses.Average)

	feb, err := svc.Overview(ctx, "u1", Query{Range: analytics.RangeMonth, Month: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.Len(t, feb.Chart, 29)
	assert.True(t, feb.Expenses.Total.Equal(amt("20000")))
}

func TestOverview_EmptyOwnerSkipsStore(t *testing.T) {
	st := &failingStore{Store: memory.New()}
	svc := NewService(st, nil, nil).WithClock(fixedNow)

	ov, err := svc.Overview(context.Background(), "", Query{Range: analytics.RangeMonth})
	require.NoError(t, err)
	assert.Zero(t, st.calls)
	assert.True(t, ov.Expenses.Total.IsZero())
	assert.Equal(t, 0, ov.Expenses.Count)
	assert.Empty(t, ov.Breakdown)
	assert.Empty(t, ov.Budgets)
}

func TestOverview_FetchFailure(t *testing.T) {
	st := &failingStore{Store: memory.New()}
	svc := NewService(st, nil, nil).WithClock(fixedNow)

	_, err := svc.Overview(context.Background(), "u1", Query{Range: analytics.RangeMonth})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetch)
	assert.ErrorIs(t, err, errUpstream)
}

func TestSnapshotCacheAndInvalidate(t *testing.T) {
	st := memory.New()
	seed(t, st)
	snapshots := cache.NewLRUCache[Snapshot](10, time.Minute)
	svc := NewService(st, snapshots, nil).WithClock(fixedNow)
	ctx := context.Background()

	first, err := svc.ExpenseList(ctx, "u1", ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 3, first.Pagination.Count)

	_, err = st.CreateExpense(ctx, core.Expense{OwnerID: "u1", Amount: amt("1000"), Category: core.CategoryOther, Description: "late", Date: core.NewDate(2024, 3, 19)})
	require.NoError(t, err)

	cached, err := svc.ExpenseList(ctx, "u1", ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 3, cached.Pagination.Count, "cached snapshot should be served")

	svc.Invalidate("u1", core.KindExpense)

	fresh, err := svc.ExpenseList(ctx, "u1", ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 4, fresh.Pagination.Count)
	assert.EqualValues(t, 1, snapshots.Stats().Hits)
}

func TestSnapshotFetchedBeforeInvalidateIsNotCached(t *testing.T) {
	st := memory.New()
	gated := &gatedStore{Store: st, entered: make(chan struct{}, 1), release: make(chan struct{})}
	snapshots := cache.NewLRUCache[Snapshot](10, time.Minute)
	svc := NewService(gated, snapshots, nil).WithClock(fixedNow)
	ctx := context.Background()

	type result struct {
		snap Snapshot
		err  error
	}
	stale := make(chan result, 1)
	go func() {
		snap, err := svc.Snapshot(ctx, "u1")
		stale <- result{snap, err}
	}()
	<-gated.entered

	_, err := st.CreateExpense(ctx, core.Expense{OwnerID: "u1", Amount: amt("1000"), Category: core.CategoryOther, Description: "during fetch", Date: core.NewDate(2024, 3, 19)})
	require.NoError(t, err)
	svc.Invalidate("u1", core.KindExpense)
	close(gated.release)

	first := <-stale
	require.NoError(t, first.err)
	assert.Empty(t, first.snap.Expenses)
	assert.Equal(t, 0, snapshots.Size(), "snapshot read before the write must not be cached")

	fresh, err := svc.Snapshot(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, fresh.Expenses, 1)
	assert.Equal(t, 1, snapshots.Size())
}

func TestExpenseList_FilterSortPaginate(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	for day := 1; day <= 23; day++ {
		_, err := st.CreateExpense(ctx, core.Expense{
			OwnerID:     "u1",
			Amount:      decimal.NewFromInt(int64(day * 1000)),
			Category:    core.CategoryFood,
			Description: "ăn",
			Date:        core.NewDate(2024, 1, day),
		})
		require.NoError(t, err)
	}
	svc := NewService(st, nil, nil).WithClock(fixedNow)

	page, err := svc.ExpenseList(ctx, "u1", ListQuery{Page: 1})
	require.NoError(t, err)
	assert.Len(t, page.Items, ListPageSize)
	assert.Equal(t, 3, page.Pagination.Pages)
	assert.Equal(t, "2024-01-23", page.Items[0].Date.String(), "most recent first")
	assert.True(t, page.Total.Equal(decimal.NewFromInt(276000)), "total of all matches, got %s", page.Total)

	lastPage, err := svc.ExpenseList(ctx, "u1", ListQuery{Page: 99})
	require.NoError(t, err)
	assert.Equal(t, 3, lastPage.Pagination.Page)
	assert.Len(t, lastPage.Items, 3)

	criteria := analytics.ParseCriteria(analytics.RawCriteria{Min: "20000"})
	filtered, err := svc.ExpenseList(ctx, "u1", ListQuery{Criteria: criteria})
	require.NoError(t, err)
	assert.Equal(t, 4, filtered.Pagination.Count)
	assert.Equal(t, 1, filtered.Filters)
}

func TestIncomeList_MeanPerRecord(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	for _, a := range []string{"100", "200", "400"} {
		_, err := st.CreateIncome(ctx, core.Income{OwnerID: "u1", Amount: amt(a), Source: "Thưởng", Date: core.NewDate(2024, 3, 1)})
		require.NoError(t, err)
	}
	svc := NewService(st, nil, nil)

	page, err := svc.IncomeList(ctx, "u1", ListQuery{})
	require.NoError(t, err)
	assert.True(t, page.Total.Equal(amt("700")))
	assert.True(t, page.MeanPerRecord.Equal(amt("233")), "mean %s", page.MeanPerRecord)

	empty, err := svc.IncomeList(ctx, "nobody", ListQuery{})
	require.NoError(t, err)
	assert.True(t, empty.MeanPerRecord.IsZero())
	assert.Equal(t, 1, empty.Pagination.Pages)
}

func monthRow(month string, start time.Time, income, expenses string) core.MonthlyAggregate {
	return core.MonthlyAggregate{
		Month:    month,
		Start:    start,
		Income:   amt(income),
		Expenses: amt(expenses),
		Profit:   amt(income).Sub(amt(expenses)),
	}
}

func profitRows() []core.MonthlyAggregate {
	m := func(mo int) time.Time { return time.Date(2024, time.Month(mo), 1, 0, 0, 0, 0, time.UTC) }
	return []core.MonthlyAggregate{
		monthRow("01/2024", m(1), "1000", "400"),
		monthRow("02/2024", m(2), "0", "0"),
		monthRow("03/2024", m(3), "500", "900"),
		monthRow("04/2024", m(4), "800", "800"),
	}
}

func TestProfitTable(t *testing.T) {
	t.Run("drops empty months and sorts newest first", func(t *testing.T) {
		q, err := ParseTableQuery("", "", "", 1)
		require.NoError(t, err)
		page := ProfitTable(profitRows(), q)
		require.Len(t, page.Rows, 3)
		assert.Equal(t, "04/2024", page.Rows[0].Month)
		assert.Equal(t, "01/2024", page.Rows[2].Month)
		assert.True(t, page.Totals.Profit.Equal(amt("200")))
	})

	t.Run("profit filter keeps break-even months", func(t *testing.T) {
		q, _ := ParseTableQuery("profit", "month", "asc", 1)
		page := ProfitTable(profitRows(), q)
		require.Len(t, page.Rows, 2)
		assert.Equal(t, "01/2024", page.Rows[0].Month)
		assert.Equal(t, "04/2024", page.Rows[1].Month)
	})

	t.Run("loss filter", func(t *testing.T) {
		q, _ := ParseTableQuery("loss", "", "", 1)
		page := ProfitTable(profitRows(), q)
		require.Len(t, page.Rows, 1)
		assert.Equal(t, "03/2024", page.Rows[0].Month)
		assert.True(t, page.Totals.Expenses.Equal(amt("900")))
	})

	t.Run("sort by expenses descending", func(t *testing.T) {
		q, _ := ParseTableQuery("all", "expenses", "desc", 1)
		page := ProfitTable(profitRows(), q)
		require.Len(t, page.Rows, 3)
		assert.Equal(t, []string{"03/2024", "04/2024", "01/2024"},
			[]string{page.Rows[0].Month, page.Rows[1].Month, page.Rows[2].Month})
	})

	t.Run("invalid query values", func(t *testing.T) {
		_, err := ParseTableQuery("gains", "", "", 1)
		assert.Error(t, err)
		_, err = ParseTableQuery("", "date", "", 1)
		assert.Error(t, err)
		_, err = ParseTableQuery("", "", "up", 1)
		assert.Error(t, err)
	})
}

func TestServiceProfit(t *testing.T) {
	svc, _ := newSeededService(t)

	q, _ := ParseTableQuery("", "", "", 1)
	page, err := svc.Profit(context.Background(), "u1", 12, q)
	require.NoError(t, err)
	require.Len(t, page.Rows, 2)
	assert.Equal(t, "03/2024", page.Rows[0].Month)
	assert.True(t, page.Rows[1].Profit.Equal(amt("-20000")))
}

func TestReminderWindows(t *testing.T) {
	today := core.NewDate(2024, 3, 20)
	reminders := []core.Reminder{
		{Title: "later", DueDate: core.NewDate(2024, 3, 27)},
		{Title: "today", DueDate: core.NewDate(2024, 3, 20)},
		{Title: "too far", DueDate: core.NewDate(2024, 3, 28)},
		{Title: "paid", DueDate: core.NewDate(2024, 3, 21), Paid: true},
		{Title: "late", DueDate: core.NewDate(2024, 3, 19)},
		{Title: "very late", DueDate: core.NewDate(2024, 1, 2)},
	}

	upcoming := UpcomingReminders(reminders, today, 7)
	require.Len(t, upcoming, 2)
	assert.Equal(t, "today", upcoming[0].Title)
	assert.Equal(t, "later", upcoming[1].Title)

	overdue := OverdueReminders(reminders, today)
	require.Len(t, overdue, 2)
	assert.Equal(t, "very late", overdue[0].Title)
}

func TestEvaluatePeriods(t *testing.T) {
	now := fixedNow() // Wednesday
	expenses := []core.Expense{
		{Amount: amt("70000"), Category: core.CategoryFood, Date: core.NewDate(2024, 3, 18)},
		{Amount: amt("50000"), Category: core.CategoryFood, Date: core.NewDate(2024, 3, 4)},
		{Amount: amt("10000"), Category: core.CategoryTransport, Date: core.NewDate(2024, 3, 20)},
	}
	budgets := []core.Budget{
		{ID: "weekly", Category: core.CategoryFood, Amount: amt("100000"), Period: core.Weekly},
		{ID: "monthly", Category: core.CategoryFood, Amount: amt("100000"), Period: core.Monthly},
		{ID: "daily", Category: core.CategoryTransport, Amount: amt("20000"), Period: core.Daily},
		{ID: "broken", Category: core.CategoryFood, Amount: amt("1"), Period: "hourly"},
	}

	report := EvaluatePeriods(budgets, expenses, now)

	require.Len(t, report.Over, 1)
	assert.Equal(t, "monthly", report.Over[0].Budget.ID)
	assert.EqualValues(t, 100, report.Over[0].Percentage)
	assert.True(t, report.Over[0].Overage.Equal(amt("20000")))

	require.Len(t, report.Within, 2)
	assert.Equal(t, "weekly", report.Within[0].Budget.ID)
	assert.EqualValues(t, 70, report.Within[0].Percentage)
	assert.Equal(t, "2024-03-18", report.Within[0].Window.Start.String())
	assert.Equal(t, "daily", report.Within[1].Budget.ID)
	assert.EqualValues(t, 50, report.Within[1].Percentage)
}
