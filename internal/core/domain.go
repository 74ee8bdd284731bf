package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire and storage layout of calendar dates.
const DateLayout = "2006-01-02"

const (
	Daily   Period = "daily"
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
	Yearly  Period = "yearly"
)

const (
	CategoryFood          Category = "Ăn uống"
	CategoryHousing       Category = "Nhà ở"
	CategoryTransport     Category = "Đi lại"
	CategoryEntertainment Category = "Giải trí"
	CategoryShopping      Category = "Mua sắm"
	CategoryHealth        Category = "Y tế"
	CategoryEducation     Category = "Giáo dục"
	CategorySavings       Category = "Tiết kiệm"
	CategoryBills         Category = "Hóa đơn"
	CategoryBanking       Category = "Ngân hàng"
	CategoryOther         Category = "Khác"
)

// categoryOrder is the canonical display order. Breakdowns iterate it.
var categoryOrder = []Category{
	CategoryFood,
	CategoryHousing,
	CategoryTransport,
	CategoryEntertainment,
	CategoryShopping,
	CategoryHealth,
	CategoryEducation,
	CategorySavings,
	CategoryBills,
	CategoryBanking,
	CategoryOther,
}

var commonIncomeSources = []string{"Lương", "Kinh doanh", "Đầu tư", "Thưởng", "Khác"}

type (
	// Category is the closed set of expense categories.
	Category string

	// Period is the recurrence window of a budget.
	Period string

	Date struct {
		time.Time
	}

	Expense struct {
		ID          string          `json:"id"`
		OwnerID     string          `json:"ownerId"`
		Amount      decimal.Decimal `json:"amount"`
		Category    Category        `json:"category"`
		Description string          `json:"description"`
		Date        Date            `json:"date"`
		CreatedAt   time.Time       `json:"createdAt"`
	}

	Income struct {
		ID          string          `json:"id"`
		OwnerID     string          `json:"ownerId"`
		Amount      decimal.Decimal `json:"amount"`
		Source      string          `json:"source"`
		Date        Date            `json:"date"`
		Description string          `json:"description,omitempty"`
		CreatedAt   time.Time       `json:"createdAt"`
	}

	Budget struct {
		ID        string          `json:"id"`
		OwnerID   string          `json:"ownerId"`
		Category  Category        `json:"category"`
		Amount    decimal.Decimal `json:"amount"`
		Period    Period          `json:"period"`
		CreatedAt time.Time       `json:"createdAt"`
	}

	Reminder struct {
		ID        string          `json:"id"`
		OwnerID   string          `json:"ownerId"`
		Title     string          `json:"title"`
		Amount    decimal.Decimal `json:"amount"`
		Category  Category        `json:"category"`
		DueDate   Date            `json:"dueDate"`
		Paid      bool            `json:"isPaid"`
		CreatedAt time.Time       `json:"createdAt"`
		UpdatedAt time.Time       `json:"updatedAt"`
	}
)

var (
	ErrInvalidDay       = errors.New("invalid day")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrInvalidPeriod    = errors.New("invalid period")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptySource      = errors.New("empty income source")
	ErrEmptyTitle       = errors.New("empty title")
	ErrMissingOwner     = errors.New("missing owner")
	ErrTextTooLong      = errors.New("text too long (max 200 characters)")
)

const maxTextLen = 200

// Categories returns the expense categories in display order.
func Categories() []Category {
	return append([]Category(nil), categoryOrder...)
}

// CommonIncomeSources lists the suggested income source labels.
func CommonIncomeSources() []string {
	return append([]string(nil), commonIncomeSources...)
}

func (c Category) IsValid() bool {
	for _, known := range categoryOrder {
		if c == known {
			return true
		}
	}
	return false
}

func (c Category) String() string {
	return string(c)
}

// ParseCategory validates a raw category label.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.TrimSpace(s))
	if !c.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
	return c, nil
}

func (p Period) IsValid() bool {
	switch p {
	case Daily, Weekly, Monthly, Yearly:
		return true
	default:
		return false
	}
}

// Periods returns every budget period.
func Periods() []Period {
	return []Period{Daily, Weekly, Monthly, Yearly}
}

func ParsePeriod(s string) (Period, error) {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return p, nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's location and returns it as a UTC date.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// AddDays returns the date n calendar days later (earlier when n < 0).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.AddDate(0, 0, n)}
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(DateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func validateText(s string, empty error) error {
	if strings.TrimSpace(s) == "" {
		return empty
	}
	if len(s) > maxTextLen {
		return ErrTextTooLong
	}
	return nil
}

func validateAmount(a decimal.Decimal) error {
	if a.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.OwnerID) == "" {
		return ErrMissingOwner
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if err := validateAmount(e.Amount); err != nil {
		return err
	}
	if !e.Category.IsValid() {
		return ErrInvalidCategory
	}
	return validateText(e.Description, ErrEmptyDescription)
}

func (i Income) Validate() error {
	if strings.TrimSpace(i.OwnerID) == "" {
		return ErrMissingOwner
	}
	if err := i.Date.Validate(); err != nil {
		return err
	}
	if err := validateAmount(i.Amount); err != nil {
		return err
	}
	if err := validateText(i.Source, ErrEmptySource); err != nil {
		return err
	}
	if len(i.Description) > maxTextLen {
		return ErrTextTooLong
	}
	return nil
}

// Validate checks a budget for creation. The ceiling must be positive here;
// stored zero ceilings are still tolerated by the evaluator.
func (b Budget) Validate() error {
	if strings.TrimSpace(b.OwnerID) == "" {
		return ErrMissingOwner
	}
	if !b.Category.IsValid() {
		return ErrInvalidCategory
	}
	if !b.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !b.Period.IsValid() {
		return ErrInvalidPeriod
	}
	return nil
}

func (r Reminder) Validate() error {
	if strings.TrimSpace(r.OwnerID) == "" {
		return ErrMissingOwner
	}
	if err := validateText(r.Title, ErrEmptyTitle); err != nil {
		return err
	}
	if err := validateAmount(r.Amount); err != nil {
		return err
	}
	if !r.Category.IsValid() {
		return ErrInvalidCategory
	}
	return r.DueDate.Validate()
}

// IsValidationError reports whether err is one of the domain validation errors.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrInvalidDay, ErrInvalidMonth, ErrInvalidDate, ErrInvalidAmount,
		ErrInvalidCategory, ErrInvalidPeriod, ErrEmptyDescription, ErrEmptySource,
		ErrEmptyTitle, ErrMissingOwner, ErrTextTooLong,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
