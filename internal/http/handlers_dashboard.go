package http

import (
	"fmt"
	"net/http"
	"strings"

	"chitieu/internal/analytics"
	"chitieu/internal/auth"
	"chitieu/internal/dashboard"
	"chitieu/internal/export"
	"chitieu/internal/log"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q, err := parseOverviewQuery(r.URL.Query())
	if err != nil {
		writeServiceError(w, r, log.OpAggregate, err)
		return
	}
	overview, err := s.dashboard.Overview(r.Context(), auth.OwnerFromContext(r.Context()), q)
	if err != nil {
		writeServiceError(w, r, log.OpAggregate, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (s *Server) handleProfit(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	q, err := dashboard.ParseTableQuery(query.Get("filter"), query.Get("sort"), query.Get("order"), parseIntDefault(query.Get("page"), 1))
	if err != nil {
		writeServiceError(w, r, log.OpAggregate, badRequest("%v", err))
		return
	}
	months := parseIntDefault(query.Get("months"), dashboard.ProfitPageSize)

	page, err := s.dashboard.Profit(r.Context(), auth.OwnerFromContext(r.Context()), months, q)
	if err != nil {
		writeServiceError(w, r, log.OpAggregate, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleBudgetStatus(w http.ResponseWriter, r *http.Request) {
	report, err := s.dashboard.BudgetStatus(r.Context(), auth.OwnerFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, log.OpAggregate, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleUpcomingReminders(w http.ResponseWriter, r *http.Request) {
	days := parseIntDefault(r.URL.Query().Get("days"), dashboard.UpcomingDays)
	if days < 1 || days > 366 {
		writeServiceError(w, r, log.OpList, badRequest("days must be between 1 and 366"))
		return
	}
	reminders, err := s.dashboard.Reminders(r.Context(), auth.OwnerFromContext(r.Context()), days)
	if err != nil {
		writeServiceError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": nonNil(reminders), "days": days})
}

// handleExport streams one report as CSV. The path is /api/v1/export/{report}.csv.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	name, ok := strings.CutSuffix(r.PathValue("file"), ".csv")
	if !ok {
		writeError(w, r, http.StatusNotFound, "not found")
		return
	}
	report, err := export.ParseReport(name)
	if err != nil {
		writeError(w, r, http.StatusNotFound, "not found")
		return
	}

	table, err := s.exportTable(r, report)
	if err != nil {
		writeServiceError(w, r, log.OpExport, err)
		return
	}

	filename := fmt.Sprintf("chitieu-%s-%s.csv", report, s.now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := export.WriteCSV(w, table); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "CSV export failed",
			log.FieldOperation, log.OpExport,
			log.FieldError, err.Error())
	}
}

func (s *Server) exportTable(r *http.Request, report export.Report) (export.Table, error) {
	ctx := r.Context()
	owner := auth.OwnerFromContext(ctx)
	query := r.URL.Query()

	switch report {
	case export.ReportExpenses:
		snap, err := s.dashboard.Snapshot(ctx, owner)
		if err != nil {
			return export.Table{}, err
		}
		q := parseListQuery(query, "category")
		matched := analytics.SortByDate(analytics.Filter(snap.Expenses, q.Criteria), analytics.Descending)
		return export.FromExpenses(matched), nil

	case export.ReportMonthly:
		months := parseIntDefault(query.Get("months"), dashboard.ProfitMonths)
		if months < 1 || months > dashboard.MaxProfitMonths {
			return export.Table{}, badRequest("months must be between 1 and %d", dashboard.MaxProfitMonths)
		}
		snap, err := s.dashboard.Snapshot(ctx, owner)
		if err != nil {
			return export.Table{}, err
		}
		return export.FromMonthly(analytics.MonthlyProfit(snap.Expenses, snap.Incomes, months, s.now())), nil

	default:
		q, err := parseOverviewQuery(query)
		if err != nil {
			return export.Table{}, err
		}
		overview, err := s.dashboard.Overview(ctx, owner, q)
		if err != nil {
			return export.Table{}, err
		}
		if report == export.ReportSeries {
			return export.FromSeries(overview.Chart), nil
		}
		return export.FromBreakdown(overview.Breakdown), nil
	}
}
