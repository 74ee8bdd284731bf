package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"chitieu/internal/analytics"
	"chitieu/internal/core"
	"chitieu/internal/dashboard"
)

func newReportCommand() *cobra.Command {
	var (
		owner     string
		rangeName string
		month     string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the dashboard overview of one owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := overviewQuery(rangeName, month)
			if err != nil {
				return err
			}

			cfg := loadConfig()
			logger := commandLogger(cmd, cfg)
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			res, err := openBackend(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeBackend(res, cmd.ErrOrStderr())

			overview, err := dashboard.NewService(res.Store, nil, logger).Overview(ctx, owner, q)
			if err != nil {
				return err
			}
			return printOverview(cmd.OutOrStdout(), owner, overview)
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "owner id (required)")
	_ = cmd.MarkFlagRequired("owner")
	cmd.Flags().StringVar(&rangeName, "range", "month", "week, month or year")
	cmd.Flags().StringVar(&month, "month", "", "reference month as YYYY-MM (default current)")

	return cmd
}

func overviewQuery(rangeName, month string) (dashboard.Query, error) {
	r, err := analytics.ParseRange(rangeName)
	if err != nil {
		return dashboard.Query{}, err
	}
	q := dashboard.Query{Range: r}
	if month != "" {
		t, err := time.Parse("2006-01", month)
		if err != nil {
			return dashboard.Query{}, fmt.Errorf("invalid month %q: want YYYY-MM", month)
		}
		q.Month = t
	}
	return q, nil
}

func printOverview(out io.Writer, owner string, o dashboard.Overview) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Chủ sở hữu:\t%s\n", owner)
	fmt.Fprintf(tw, "Khoảng:\t%s (%s - %s)\n", o.Range, o.Window.Start, o.Window.End)
	fmt.Fprintf(tw, "Chi tiêu:\t%s\t%d giao dịch, trung bình %s\n",
		core.FormatAmount(o.Expenses.Total), o.Expenses.Count, core.FormatAmount(o.Expenses.Average))
	fmt.Fprintf(tw, "Thu nhập:\t%s\n", core.FormatAmount(o.IncomeTotal))
	fmt.Fprintf(tw, "Số dư:\t%s\n", core.FormatAmount(o.Balance))

	if len(o.Breakdown) > 0 {
		fmt.Fprintln(tw, "\nDanh mục\tSố tiền\tTỷ lệ")
		for _, row := range o.Breakdown {
			fmt.Fprintf(tw, "%s\t%s\t%d%%\n", row.Category, core.FormatAmount(row.Amount), row.Percent)
		}
	}

	if len(o.Budgets) > 0 {
		fmt.Fprintln(tw, "\nNgân sách\tĐã chi\tHạn mức\tTrạng thái")
		for _, b := range o.Budgets {
			status := fmt.Sprintf("%d%%", b.Percentage)
			if b.IsOver {
				status = "VƯỢT " + core.FormatAmount(b.Overage)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", b.Budget.Category,
				core.FormatAmount(b.CurrentSpending), core.FormatAmount(b.Budget.Amount), status)
		}
	}

	if len(o.Upcoming) > 0 || len(o.Overdue) > 0 {
		fmt.Fprintln(tw, "\nNhắc nhở\tHạn\tSố tiền")
		for _, r := range o.Overdue {
			fmt.Fprintf(tw, "%s (quá hạn)\t%s\t%s\n", r.Title, r.DueDate, core.FormatAmount(r.Amount))
		}
		for _, r := range o.Upcoming {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Title, r.DueDate, core.FormatAmount(r.Amount))
		}
	}

	return tw.Flush()
}
