package services

import "spendwise/internal/core"

// DuenessChecker decides whether a recurring transaction materializes on a given day.
type DuenessChecker interface {
	IsDue(rt core.RecurringTransaction, today core.Date) bool
}

// MonthlyDayChecker materializes once per calendar month on the template's day.
// Templates scheduled past the 28th fire on any day from the 28th onward so
// they still run in short months.
type MonthlyDayChecker struct{}

func (MonthlyDayChecker) IsDue(rt core.RecurringTransaction, today core.Date) bool {
	if !rt.Active {
		return false
	}
	if !rt.LastRun.IsEmpty() {
		// Already processed this month?
		if rt.LastRun.Period() == today.Period() {
			return false
		}
		// Last run never moves backwards
		if today.Before(rt.LastRun.Time) {
			return false
		}
	}
	day := today.Day()
	return rt.DayOfMonth == day || (rt.DayOfMonth > 28 && day >= 28)
}
