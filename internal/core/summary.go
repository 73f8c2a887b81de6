package core

import "github.com/shopspring/decimal"

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	Category Category
	Amount   decimal.Decimal
}

// BudgetStatus is a budget evaluated against one period.
type BudgetStatus struct {
	Budget       Budget
	Spent        decimal.Decimal
	Availability decimal.Decimal
	Percent      decimal.Decimal
}

type GoalStatus struct {
	Goal    SavingsGoal
	Percent decimal.Decimal
}

// Dashboard is the read model for one owner at a reference date.
// TotalSpent and CategoryBreakdown cover every expense; budget spend covers Period.
type Dashboard struct {
	Owner             int64
	Period            Period
	TotalSpent        decimal.Decimal
	CategoryBreakdown []CategoryAmount
	BudgetStatuses    []BudgetStatus
	Recurring         []RecurringTransaction
	Goals             []GoalStatus
}
