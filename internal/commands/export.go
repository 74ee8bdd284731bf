package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"chitieu/internal/analytics"
	"chitieu/internal/dashboard"
	"chitieu/internal/export"
	"chitieu/internal/export/sheets"
	"chitieu/internal/worker"
)

func newExportCommand() *cobra.Command {
	var (
		owner    string
		report   string
		months   int
		output   string
		toSheets bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export one owner's report as CSV, or refresh their spreadsheet tabs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if months < 1 || months > dashboard.MaxProfitMonths {
				return fmt.Errorf("--months must be between 1 and %d", dashboard.MaxProfitMonths)
			}
			r, err := export.ParseReport(report)
			if err != nil && !toSheets {
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
			dash := dashboard.NewService(res.Store, nil, logger)

			if toSheets {
				if !cfg.SheetsEnabled() {
					return fmt.Errorf("GOOGLE_SPREADSHEET_ID is not set")
				}
				client, err := sheets.NewClient(ctx, sheets.Options{
					SpreadsheetID:   cfg.GoogleSpreadsheetID,
					CredentialsJSON: cfg.GoogleServiceAccountJSON,
					CredentialsFile: cfg.GoogleServiceAccountFile,
				}, logger)
				if err != nil {
					return err
				}
				if err := worker.NewExportWorker(dash, client, months, logger).ExportOwner(ctx, owner); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "exported %s to spreadsheet %s\n", owner, cfg.GoogleSpreadsheetID)
				return nil
			}

			snap, err := dash.Snapshot(ctx, owner)
			if err != nil {
				return err
			}
			table := reportTable(r, snap, months, time.Now())

			out := cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating %s: %w", output, err)
				}
				defer f.Close()
				out = f
			}
			return export.WriteCSV(out, table)
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "owner id (required)")
	_ = cmd.MarkFlagRequired("owner")
	cmd.Flags().StringVar(&report, "report", string(export.ReportCategories), "expenses, categories, monthly or series")
	cmd.Flags().IntVar(&months, "months", dashboard.ProfitMonths, "months covered by the monthly report")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "output file, - for stdout")
	cmd.Flags().BoolVar(&toSheets, "sheets", false, "write all tables to the configured spreadsheet instead")

	return cmd
}

// reportTable builds the report over the current calendar month, except the
// monthly report which spans the trailing months and the expense list which
// covers every record.
func reportTable(r export.Report, snap dashboard.Snapshot, months int, now time.Time) export.Table {
	month := analytics.RangeWindow(analytics.RangeMonth, now, now)
	switch r {
	case export.ReportExpenses:
		return export.FromExpenses(analytics.SortByDate(snap.Expenses, analytics.Descending))
	case export.ReportMonthly:
		return export.FromMonthly(analytics.MonthlyProfit(snap.Expenses, snap.Incomes, months, now))
	case export.ReportSeries:
		current := analytics.Filter(snap.Expenses, month.Criteria())
		return export.FromSeries(analytics.Series(current, analytics.ChartGranularity(analytics.RangeMonth), month.Start.Time, month.End.Time))
	default:
		current := analytics.Filter(snap.Expenses, month.Criteria())
		return export.FromBreakdown(analytics.SortByAmountDesc(analytics.Breakdown(current)))
	}
}
