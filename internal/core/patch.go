package core

import (
	"strconv"
	"strings"
)

// Patches carry raw user input. Nil fields are left untouched, malformed
// fields are skipped and reported while the remaining fields still apply.
type (
	BudgetPatch struct {
		Amount   *string
		Rollover *bool
	}

	RecurringPatch struct {
		Amount      *string
		Description *string
		DayOfMonth  *string
		Active      *bool
	}

	GoalPatch struct {
		Name         *string
		TargetAmount *string
	}
)

// Apply updates b in place and returns the skipped fields.
func (p BudgetPatch) Apply(b *Budget) []*ValidationError {
	var skipped []*ValidationError
	if p.Amount != nil {
		if amt, err := ParseAmount(*p.Amount); err == nil {
			b.Amount = amt
		} else {
			skipped = append(skipped, ErrInvalidAmount)
		}
	}
	if p.Rollover != nil {
		b.RolloverEnabled = *p.Rollover
	}
	return skipped
}

func (p RecurringPatch) Apply(r *RecurringTransaction) []*ValidationError {
	var skipped []*ValidationError
	if p.Amount != nil {
		if amt, err := ParseAmount(*p.Amount); err == nil {
			r.Amount = amt
		} else {
			skipped = append(skipped, ErrInvalidAmount)
		}
	}
	if p.Description != nil {
		if len(*p.Description) <= 200 {
			r.Description = strings.TrimSpace(*p.Description)
		} else {
			skipped = append(skipped, ErrDescriptionTooLong)
		}
	}
	if p.DayOfMonth != nil {
		if day, err := strconv.Atoi(strings.TrimSpace(*p.DayOfMonth)); err == nil && day >= 1 && day <= 28 {
			r.DayOfMonth = day
		} else {
			skipped = append(skipped, ErrInvalidDay)
		}
	}
	if p.Active != nil {
		r.Active = *p.Active
	}
	return skipped
}

func (p GoalPatch) Apply(g *SavingsGoal) []*ValidationError {
	var skipped []*ValidationError
	if p.Name != nil {
		if name := strings.TrimSpace(*p.Name); name != "" && len(name) <= 120 {
			g.Name = name
		} else {
			skipped = append(skipped, ErrEmptyName)
		}
	}
	if p.TargetAmount != nil {
		if amt, err := ParsePositiveAmount(*p.TargetAmount); err == nil {
			g.TargetAmount = amt
		} else {
			skipped = append(skipped, &ValidationError{Field: "target_amount", Reason: "must be greater than zero"})
		}
	}
	return skipped
}
