package http

import (
	"net/http"

	"chitieu/internal/auth"
	"chitieu/internal/log"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	owner := auth.OwnerFromContext(r.Context())
	page, err := s.dashboard.ExpenseList(r.Context(), owner, parseListQuery(r.URL.Query(), "category"))
	if err != nil {
		writeServiceError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var in expenseInput
	if err := decodeJSON(r, &in); err != nil {
		writeServiceError(w, r, log.OpCreate, err)
		return
	}
	e, err := s.records.CreateExpense(r.Context(), auth.OwnerFromContext(r.Context()), in.toExpense())
	if err != nil {
		writeServiceError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var in expensePatchInput
	if err := decodeJSON(r, &in); err != nil {
		writeServiceError(w, r, log.OpUpdate, err)
		return
	}
	e, err := s.records.UpdateExpense(r.Context(), auth.OwnerFromContext(r.Context()), r.PathValue("id"), in.toPatch())
	if err != nil {
		writeServiceError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.records.DeleteExpense(r.Context(), auth.OwnerFromContext(r.Context()), r.PathValue("id")); err != nil {
		writeServiceError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListIncomes(w http.ResponseWriter, r *http.Request) {
	owner := auth.OwnerFromContext(r.Context())
	page, err := s.dashboard.IncomeList(r.Context(), owner, parseListQuery(r.URL.Query(), "source"))
	if err != nil {
		writeServiceError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	var in incomeInput
	if err := decodeJSON(r, &in); err != nil {
		writeServiceError(w, r, log.OpCreate, err)
		return
	}
	income, err := s.records.CreateIncome(r.Context(), auth.OwnerFromContext(r.Context()), in.toIncome())
	if err != nil {
		writeServiceError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, income)
}

func (s *Server) handleUpdateIncome(w http.ResponseWriter, r *http.Request) {
	var in incomePatchInput
	if err := decodeJSON(r, &in); err != nil {
		writeServiceError(w, r, log.OpUpdate, err)
		return
	}
	income, err := s.records.UpdateIncome(r.Context(), auth.OwnerFromContext(r.Context()), r.PathValue("id"), in.toPatch())
	if err != nil {
		writeServiceError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, income)
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	if err := s.records.DeleteIncome(r.Context(), auth.OwnerFromContext(r.Context()), r.PathValue("id")); err != nil {
		writeServiceError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.dashboard.Budgets(r.Context(), auth.OwnerFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": nonNil(budgets)})
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var in budgetInput
	if err := decodeJSON(r, &in); err != nil {
		writeServiceError(w, r, log.OpCreate, err)
		return
	}
	b, err := s.records.CreateBudget(r.Context(), auth.OwnerFromContext(r.Context()), in.toBudget())
	if err != nil {
		writeServiceError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	var in budgetPatchInput
	if err := decodeJSON(r, &in); err != nil {
		writeServiceError(w, r, log.OpUpdate, err)
		return
	}
	b, err := s.records.UpdateBudget(r.Context(), auth.OwnerFromContext(r.Context()), r.PathValue("id"), in.toPatch())
	if err != nil {
		writeServiceError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.records.DeleteBudget(r.Context(), auth.OwnerFromContext(r.Context()), r.PathValue("id")); err != nil {
		writeServiceError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListReminders(w http.ResponseWriter, r *http.Request) {
	reminders, err := s.dashboard.Reminders(r.Context(), auth.OwnerFromContext(r.Context()), 0)
	if err != nil {
		writeServiceError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": nonNil(reminders)})
}

func (s *Server) handleCreateReminder(w http.ResponseWriter, r *http.Request) {
	var in reminderInput
	if err := decodeJSON(r, &in); err != nil {
		writeServiceError(w, r, log.OpCreate, err)
		return
	}
	rem, err := s.records.CreateReminder(r.Context(), auth.OwnerFromContext(r.Context()), in.toReminder())
	if err != nil {
		writeServiceError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, rem)
}

func (s *Server) handleUpdateReminder(w http.ResponseWriter, r *http.Request) {
	var in reminderPatchInput
	if err := decodeJSON(r, &in); err != nil {
		writeServiceError(w, r, log.OpUpdate, err)
		return
	}
	rem, err := s.records.UpdateReminder(r.Context(), auth.OwnerFromContext(r.Context()), r.PathValue("id"), in.toPatch())
	if err != nil {
		writeServiceError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, rem)
}

func (s *Server) handleMarkReminderPaid(w http.ResponseWriter, r *http.Request) {
	rem, err := s.records.MarkReminderPaid(r.Context(), auth.OwnerFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, rem)
}

func (s *Server) handleDeleteReminder(w http.ResponseWriter, r *http.Request) {
	if err := s.records.DeleteReminder(r.Context(), auth.OwnerFromContext(r.Context()), r.PathValue("id")); err != nil {
		writeServiceError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// nonNil makes empty lists encode as [] instead of null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
