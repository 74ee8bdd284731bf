package dashboard

import (
	"context"

	"github.com/shopspring/decimal"

	"chitieu/internal/analytics"
	"chitieu/internal/core"
)

// ListPageSize is the number of records per page of the record lists.
const ListPageSize = 10

// ListQuery filters and pages a record list. Page is 1-based; out of range
// pages are clamped.
type ListQuery struct {
	Criteria analytics.Criteria
	Page     int
}

// Pagination describes the page that was returned.
type Pagination struct {
	Page    int `json:"page"`
	Pages   int `json:"pages"`
	PerPage int `json:"perPage"`
	Count   int `json:"count"`
}

type ExpensePage struct {
	Items      []core.Expense  `json:"items"`
	Total      decimal.Decimal `json:"total"`
	Filters    int             `json:"activeFilters"`
	Pagination Pagination      `json:"pagination"`
}

type IncomePage struct {
	Items         []core.Income   `json:"items"`
	Total         decimal.Decimal `json:"total"`
	MeanPerRecord decimal.Decimal `json:"meanPerRecord"`
	Filters       int             `json:"activeFilters"`
	Pagination    Pagination      `json:"pagination"`
}

// paginate returns the slice of page (1-based) and the clamped pagination.
func paginate[T any](items []T, page, perPage int) ([]T, Pagination) {
	pages := (len(items) + perPage - 1) / perPage
	if pages == 0 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	from := (page - 1) * perPage
	to := min(from+perPage, len(items))
	return items[from:to], Pagination{Page: page, Pages: pages, PerPage: perPage, Count: len(items)}
}

// ExpenseList returns the owner's expenses matching the query, most recent
// first, with the total of every match (not only the page).
func (s *Service) ExpenseList(ctx context.Context, owner string, q ListQuery) (ExpensePage, error) {
	snap, err := s.Snapshot(ctx, owner)
	if err != nil {
		return ExpensePage{}, err
	}

	matched := analytics.SortByDate(analytics.Filter(snap.Expenses, q.Criteria), analytics.Descending)
	items, pagination := paginate(matched, q.Page, ListPageSize)
	return ExpensePage{
		Items:      items,
		Total:      analytics.Total(matched),
		Filters:    q.Criteria.ActiveCount(),
		Pagination: pagination,
	}, nil
}

// IncomeList is ExpenseList for incomes, also reporting the mean income.
func (s *Service) IncomeList(ctx context.Context, owner string, q ListQuery) (IncomePage, error) {
	snap, err := s.Snapshot(ctx, owner)
	if err != nil {
		return IncomePage{}, err
	}

	matched := analytics.SortByDate(analytics.Filter(snap.Incomes, q.Criteria), analytics.Descending)
	items, pagination := paginate(matched, q.Page, ListPageSize)
	return IncomePage{
		Items:         items,
		Total:         analytics.Total(matched),
		MeanPerRecord: analytics.MeanPerRecord(matched),
		Filters:       q.Criteria.ActiveCount(),
		Pagination:    pagination,
	}, nil
}

// Budgets returns the owner's budgets in stored order.
func (s *Service) Budgets(ctx context.Context, owner string) ([]core.Budget, error) {
	snap, err := s.Snapshot(ctx, owner)
	if err != nil {
		return nil, err
	}
	return snap.Budgets, nil
}
