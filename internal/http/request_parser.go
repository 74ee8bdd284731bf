package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"chitieu/internal/analytics"
	"chitieu/internal/core"
	"chitieu/internal/dashboard"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// errBadRequest marks malformed input that is not a domain validation error.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// amount accepts a JSON number or a string such as "50000" or "12,5".
type amount struct {
	decimal.Decimal
}

func (a *amount) UnmarshalJSON(b []byte) error {
	s := string(bytes.TrimSpace(b))
	if s == "null" {
		return core.ErrInvalidAmount
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}
	d, err := core.ParseAmount(s)
	if err != nil {
		return err
	}
	a.Decimal = d
	return nil
}

// decodeJSON reads a single JSON object into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if core.IsValidationError(err) {
			return err
		}
		return badRequest("invalid JSON body: %v", err)
	}
	if dec.More() {
		return badRequest("unexpected data after JSON body")
	}
	return nil
}

type expenseInput struct {
	Amount      amount        `json:"amount"`
	Category    core.Category `json:"category"`
	Description string        `json:"description"`
	Date        core.Date     `json:"date"`
}

func (in expenseInput) toExpense() core.Expense {
	return core.Expense{
		Amount:      in.Amount.Decimal,
		Category:    in.Category,
		Description: sanitizeInput(in.Description),
		Date:        in.Date,
	}
}

type incomeInput struct {
	Amount      amount    `json:"amount"`
	Source      string    `json:"source"`
	Date        core.Date `json:"date"`
	Description string    `json:"description"`
}

func (in incomeInput) toIncome() core.Income {
	return core.Income{
		Amount:      in.Amount.Decimal,
		Source:      sanitizeInput(in.Source),
		Date:        in.Date,
		Description: sanitizeInput(in.Description),
	}
}

type budgetInput struct {
	Category core.Category `json:"category"`
	Amount   amount        `json:"amount"`
	Period   core.Period   `json:"period"`
}

func (in budgetInput) toBudget() core.Budget {
	return core.Budget{Category: in.Category, Amount: in.Amount.Decimal, Period: in.Period}
}

type reminderInput struct {
	Title    string        `json:"title"`
	Amount   amount        `json:"amount"`
	Category core.Category `json:"category"`
	DueDate  core.Date     `json:"dueDate"`
	Paid     bool          `json:"isPaid"`
}

func (in reminderInput) toReminder() core.Reminder {
	return core.Reminder{
		Title:    sanitizeInput(in.Title),
		Amount:   in.Amount.Decimal,
		Category: in.Category,
		DueDate:  in.DueDate,
		Paid:     in.Paid,
	}
}

type expensePatchInput struct {
	Amount      *amount        `json:"amount"`
	Category    *core.Category `json:"category"`
	Description *string        `json:"description"`
	Date        *core.Date     `json:"date"`
}

func (in expensePatchInput) toPatch() core.ExpensePatch {
	return core.ExpensePatch{
		Amount:      decimalPtr(in.Amount),
		Category:    in.Category,
		Description: sanitizedPtr(in.Description),
		Date:        in.Date,
	}
}

type incomePatchInput struct {
	Amount      *amount    `json:"amount"`
	Source      *string    `json:"source"`
	Date        *core.Date `json:"date"`
	Description *string    `json:"description"`
}

func (in incomePatchInput) toPatch() core.IncomePatch {
	return core.IncomePatch{
		Amount:      decimalPtr(in.Amount),
		Source:      sanitizedPtr(in.Source),
		Date:        in.Date,
		Description: sanitizedPtr(in.Description),
	}
}

type budgetPatchInput struct {
	Category *core.Category `json:"category"`
	Amount   *amount        `json:"amount"`
	Period   *core.Period   `json:"period"`
}

func (in budgetPatchInput) toPatch() core.BudgetPatch {
	return core.BudgetPatch{Category: in.Category, Amount: decimalPtr(in.Amount), Period: in.Period}
}

type reminderPatchInput struct {
	Title    *string        `json:"title"`
	Amount   *amount        `json:"amount"`
	Category *core.Category `json:"category"`
	DueDate  *core.Date     `json:"dueDate"`
	Paid     *bool          `json:"isPaid"`
}

func (in reminderPatchInput) toPatch() core.ReminderPatch {
	return core.ReminderPatch{
		Title:    sanitizedPtr(in.Title),
		Amount:   decimalPtr(in.Amount),
		Category: in.Category,
		DueDate:  in.DueDate,
		Paid:     in.Paid,
	}
}

func decimalPtr(a *amount) *decimal.Decimal {
	if a == nil {
		return nil
	}
	d := a.Decimal
	return &d
}

func sanitizedPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := sanitizeInput(*s)
	return &v
}

// parseListQuery reads filter and page parameters. labelKey is "category"
// for expenses and "source" for incomes.
func parseListQuery(q url.Values, labelKey string) dashboard.ListQuery {
	return dashboard.ListQuery{
		Criteria: analytics.ParseCriteria(analytics.RawCriteria{
			Label:  q.Get(labelKey),
			Start:  q.Get("start"),
			End:    q.Get("end"),
			Min:    q.Get("min"),
			Max:    q.Get("max"),
			Search: sanitizeInput(q.Get("q")),
		}),
		Page: parseIntDefault(q.Get("page"), 1),
	}
}

// parseOverviewQuery reads range (week|month|year) and month (YYYY-MM).
func parseOverviewQuery(q url.Values) (dashboard.Query, error) {
	var out dashboard.Query
	if v := strings.TrimSpace(q.Get("range")); v != "" {
		r, err := analytics.ParseRange(v)
		if err != nil {
			return out, badRequest("%v", err)
		}
		out.Range = r
	}
	if v := strings.TrimSpace(q.Get("month")); v != "" {
		t, err := time.Parse("2006-01", v)
		if err != nil {
			return out, badRequest("invalid month %q: want YYYY-MM", v)
		}
		out.Month = t
	}
	return out, nil
}

func parseIntDefault(s string, def int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return v
	}
	return def
}
