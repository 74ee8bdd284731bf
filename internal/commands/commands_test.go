package commands

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chitieu/internal/auth"
	"chitieu/internal/core"
	"chitieu/internal/dashboard"
	"chitieu/internal/export"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&errOut)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("JWT_ISSUER", "chitieu")

	out, err := run(t, "token", "--owner", "alice", "--ttl", "1h")
	require.NoError(t, err)

	owner, err := auth.New(auth.Config{Secret: testSecret, Issuer: "chitieu"}, nil).Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "alice", owner)
}

func TestTokenCommandNeedsSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := run(t, "token", "--owner", "alice")
	assert.Error(t, err)
}

func TestMigrateSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db", "chitieu.db")

	out, err := run(t, "migrate", "--backend", "sqlite", "--db", path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite schema version 1\n", out)

	out, err = run(t, "migrate", "--backend", "sqlite", "--db", path, "--status")
	require.NoError(t, err)
	assert.Equal(t, "sqlite schema version 1\n", out)

	_, err = run(t, "migrate", "--backend", "memory")
	assert.Error(t, err)
}

func TestReportOnEmptyStore(t *testing.T) {
	t.Setenv("DATA_BACKEND", "memory")

	out, err := run(t, "report", "--owner", "alice", "--range", "week")
	require.NoError(t, err)
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "week")

	_, err = run(t, "report", "--owner", "alice", "--range", "decade")
	assert.Error(t, err)
	_, err = run(t, "report")
	assert.Error(t, err)
}

func TestExportCSVToFile(t *testing.T) {
	t.Setenv("DATA_BACKEND", "memory")
	path := filepath.Join(t.TempDir(), "out.csv")

	_, err := run(t, "export", "--owner", "alice", "--report", "monthly", "--months", "2", "-o", path)
	require.NoError(t, err)
	assert.FileExists(t, path)

	_, err = run(t, "export", "--owner", "alice", "--report", "budgets")
	assert.Error(t, err)
	_, err = run(t, "export", "--owner", "alice", "--months", "0")
	assert.Error(t, err)
}

func TestReportTable(t *testing.T) {
	now := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
	day := func(y int, m time.Month, d int) core.Date {
		return core.Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
	}
	snap := dashboard.Snapshot{
		Expenses: []core.Expense{
			{ID: "1", Amount: decimal.NewFromInt(100), Category: core.CategoryFood, Description: "a", Date: day(2024, 3, 2)},
			{ID: "2", Amount: decimal.NewFromInt(300), Category: core.CategoryBills, Description: "b", Date: day(2024, 3, 5)},
			{ID: "3", Amount: decimal.NewFromInt(999), Category: core.CategoryFood, Description: "c", Date: day(2024, 2, 5)},
		},
	}

	categories := reportTable(export.ReportCategories, snap, 6, now)
	require.Len(t, categories.Rows, 2)
	assert.Equal(t, []string{string(core.CategoryBills), "300", "75"}, categories.Rows[0])

	expenses := reportTable(export.ReportExpenses, snap, 6, now)
	require.Len(t, expenses.Rows, 3)
	assert.Equal(t, "b", expenses.Rows[0][2])

	monthly := reportTable(export.ReportMonthly, snap, 2, now)
	require.Len(t, monthly.Rows, 2)
}
