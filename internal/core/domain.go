package core

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultRecurringDescription is used for materialized expenses whose
// recurring template has no description.
const DefaultRecurringDescription = "Recurring"

const dateLayout = "2006-01-02"

type (
	Date struct {
		time.Time
	}

	ExpenseRecord struct {
		ID          int64
		Owner       int64
		Amount      decimal.Decimal
		Category    Category
		Date        Date
		Description string
		CreatedAt   time.Time
	}

	Budget struct {
		ID              int64
		Owner           int64
		Category        Category
		Amount          decimal.Decimal // Monthly amount
		RolloverEnabled bool
		RolloverBalance decimal.Decimal
	}

	RecurringTransaction struct {
		ID          int64
		Owner       int64
		Amount      decimal.Decimal
		Category    Category
		Description string
		DayOfMonth  int
		Active      bool
		LastRun     Date // zero when never run
	}

	SavingsGoal struct {
		ID            int64
		Owner         int64
		Name          string
		TargetAmount  decimal.Decimal
		CurrentAmount decimal.Decimal
	}

	// ExpenseFilter narrows a ledger query. Zero values mean "no filter".
	ExpenseFilter struct {
		Category Category
		From     Date // inclusive
		To       Date // inclusive
	}
)

var (
	ErrInvalidDay         = &ValidationError{Field: "day_of_month", Reason: "must be between 1 and 28"}
	ErrInvalidDate        = &ValidationError{Field: "date", Reason: "must be a valid YYYY-MM-DD date"}
	ErrInvalidAmount      = &ValidationError{Field: "amount", Reason: "must be a valid non-negative number"}
	ErrNonPositiveAmount  = &ValidationError{Field: "amount", Reason: "must be greater than zero"}
	ErrEmptyDescription   = &ValidationError{Field: "description", Reason: "cannot be empty"}
	ErrDescriptionTooLong = &ValidationError{Field: "description", Reason: "too long (max 200 characters)"}
	ErrEmptyName          = &ValidationError{Field: "name", Reason: "cannot be empty"}
	ErrInvalidOwner       = &ValidationError{Field: "owner", Reason: "must be a positive id"}
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's location, expressed at UTC midnight.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current calendar date.
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses a date string in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// IsEmpty returns true if the date is zero (used for optional dates)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// Period returns the calendar month containing d.
func (d Date) Period() Period {
	return PeriodOf(d)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
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

// Value implements driver.Valuer. Dates are stored as YYYY-MM-DD text, NULL when empty.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

// Scan implements sql.Scanner.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = DateOf(v)
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	default:
		return fmt.Errorf("cannot scan %T into core.Date", src)
	}
}

func (d *Date) scanString(s string) error {
	if s == "" {
		*d = Date{}
		return nil
	}
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return fmt.Errorf("parse stored date %q: %w", s, err)
	}
	*d = Date{Time: t}
	return nil
}

func validateDescription(desc string, required bool) error {
	if required && len(strings.TrimSpace(desc)) == 0 {
		return ErrEmptyDescription
	}
	if len(desc) > 200 {
		return ErrDescriptionTooLong
	}
	return nil
}

func (e ExpenseRecord) Validate() error {
	if e.Owner <= 0 {
		return ErrInvalidOwner
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if err := validateDescription(e.Description, true); err != nil {
		return err
	}
	if e.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if !e.Category.IsLedger() {
		return ErrInvalidCategory
	}
	return nil
}

func (b Budget) Validate() error {
	if b.Owner <= 0 {
		return ErrInvalidOwner
	}
	if !b.Category.IsExpense() {
		return ErrInvalidCategory
	}
	if b.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if b.RolloverBalance.IsNegative() {
		return &ValidationError{Field: "rollover_balance", Reason: "cannot be negative"}
	}
	return nil
}

func (r RecurringTransaction) Validate() error {
	if r.Owner <= 0 {
		return ErrInvalidOwner
	}
	if r.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if !r.Category.IsRecurring() {
		return ErrInvalidCategory
	}
	if err := validateDescription(r.Description, false); err != nil {
		return err
	}
	if r.DayOfMonth < 1 || r.DayOfMonth > 28 {
		return ErrInvalidDay
	}
	return nil
}

// EffectiveDescription returns the description used for materialized expenses.
func (r RecurringTransaction) EffectiveDescription() string {
	if strings.TrimSpace(r.Description) == "" {
		return DefaultRecurringDescription
	}
	return r.Description
}

func (g SavingsGoal) Validate() error {
	if g.Owner <= 0 {
		return ErrInvalidOwner
	}
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if len(g.Name) > 120 {
		return &ValidationError{Field: "name", Reason: "too long (max 120 characters)"}
	}
	if !g.TargetAmount.IsPositive() {
		return &ValidationError{Field: "target_amount", Reason: "must be greater than zero"}
	}
	if g.CurrentAmount.IsNegative() {
		return &ValidationError{Field: "current_amount", Reason: "cannot be negative"}
	}
	return nil
}

// Matches reports whether e passes the filter.
func (f ExpenseFilter) Matches(e ExpenseRecord) bool {
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	if !f.From.IsEmpty() && e.Date.Before(f.From.Time) {
		return false
	}
	if !f.To.IsEmpty() && e.Date.After(f.To.Time) {
		return false
	}
	return true
}
