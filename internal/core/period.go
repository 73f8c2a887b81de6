package core

import (
	"fmt"
	"time"
)

// Period is a calendar month.
type Period struct {
	Year  int
	Month time.Month
}

func PeriodOf(d Date) Period {
	return Period{Year: d.Time.Year(), Month: d.Time.Month()}
}

// ParsePeriod parses YYYY-MM.
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, &ValidationError{Field: "month", Reason: "must be YYYY-MM"}
	}
	return Period{Year: t.Year(), Month: t.Month()}, nil
}

// Start returns the first day of the period.
func (p Period) Start() Date {
	return Date{Time: time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)}
}

// End returns the last day of the period.
func (p Period) End() Date {
	return Date{Time: p.Start().AddDate(0, 1, -1)}
}

func (p Period) Contains(d Date) bool {
	return d.Time.Year() == p.Year && d.Time.Month() == p.Month
}

func (p Period) Next() Period {
	return PeriodOf(Date{Time: p.Start().AddDate(0, 1, 0)})
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// Filter returns an ExpenseFilter restricted to the period and category.
func (p Period) Filter(c Category) ExpenseFilter {
	return ExpenseFilter{Category: c, From: p.Start(), To: p.End()}
}
