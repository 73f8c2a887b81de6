// Package repository defines the storage ports of the accounting engine.
package repository

import (
	"context"

	"spendwise/internal/core"
)

// Ports implemented by storage adapters. Get* methods return *core.NotFoundError
// for unknown ids; ownership checks belong to the services.
type (
	Ledger interface {
		CreateExpense(ctx context.Context, e core.ExpenseRecord) (core.ExpenseRecord, error)
		GetExpense(ctx context.Context, id int64) (core.ExpenseRecord, error)
		UpdateExpense(ctx context.Context, e core.ExpenseRecord) error
		DeleteExpense(ctx context.Context, id int64) error
		// QueryExpenses returns the owner's expenses matching f, newest first (date desc, id desc).
		QueryExpenses(ctx context.Context, owner int64, f core.ExpenseFilter) ([]core.ExpenseRecord, error)
	}

	BudgetStore interface {
		CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
		GetBudget(ctx context.Context, id int64) (core.Budget, error)
		ListBudgets(ctx context.Context, owner int64) ([]core.Budget, error)
		UpdateBudget(ctx context.Context, b core.Budget) error
		DeleteBudget(ctx context.Context, id int64) error
	}

	RecurringStore interface {
		CreateRecurring(ctx context.Context, r core.RecurringTransaction) (core.RecurringTransaction, error)
		GetRecurring(ctx context.Context, id int64) (core.RecurringTransaction, error)
		ListRecurring(ctx context.Context, owner int64, activeOnly bool) ([]core.RecurringTransaction, error)
		UpdateRecurring(ctx context.Context, r core.RecurringTransaction) error
		DeleteRecurring(ctx context.Context, id int64) error
		// OwnersWithActiveRecurring lists owners having at least one active template, ascending.
		OwnersWithActiveRecurring(ctx context.Context) ([]int64, error)
	}

	GoalStore interface {
		CreateGoal(ctx context.Context, g core.SavingsGoal) (core.SavingsGoal, error)
		GetGoal(ctx context.Context, id int64) (core.SavingsGoal, error)
		ListGoals(ctx context.Context, owner int64) ([]core.SavingsGoal, error)
		UpdateGoal(ctx context.Context, g core.SavingsGoal) error
		DeleteGoal(ctx context.Context, id int64) error
	}

	// Tx is the view of the store available inside a unit of work.
	Tx interface {
		Ledger
		BudgetStore
		RecurringStore
		GoalStore
	}

	// Store is a Tx outside of any transaction plus the unit-of-work entry point.
	// WithTx commits when fn returns nil and rolls back every mutation otherwise.
	Store interface {
		Tx
		WithTx(ctx context.Context, fn func(tx Tx) error) error
		Ping(ctx context.Context) error
		Close() error
	}
)
