package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/core"
	"spendwise/internal/repository"
	"spendwise/internal/storage/memory"
)

func newSQLite(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

// stores runs the same contract against both repository implementations.
func stores(t *testing.T) map[string]repository.Store {
	return map[string]repository.Store{
		"sqlite": newSQLite(t),
		"memory": memory.New(),
	}
}

func expense(owner int64, amount string, cat core.Category, d core.Date) core.ExpenseRecord {
	return core.ExpenseRecord{
		Owner:       owner,
		Amount:      decimal.RequireFromString(amount),
		Category:    cat,
		Date:        d,
		Description: "test",
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	v, err := MigrateUp(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)

	v, err = MigrateUp(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)
}

func TestLedgerContract(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			a, err := s.CreateExpense(ctx, expense(1, "10.50", core.CategoryFood, core.NewDate(2024, 5, 1)))
			require.NoError(t, err)
			b, err := s.CreateExpense(ctx, expense(1, "3", core.CategoryTravel, core.NewDate(2024, 5, 20)))
			require.NoError(t, err)
			c, err := s.CreateExpense(ctx, expense(1, "7", core.CategoryFood, core.NewDate(2024, 5, 20)))
			require.NoError(t, err)
			_, err = s.CreateExpense(ctx, expense(2, "99", core.CategoryFood, core.NewDate(2024, 5, 20)))
			require.NoError(t, err)

			all, err := s.QueryExpenses(ctx, 1, core.ExpenseFilter{})
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, []int64{c.ID, b.ID, a.ID}, []int64{all[0].ID, all[1].ID, all[2].ID})

			food, err := s.QueryExpenses(ctx, 1, core.ExpenseFilter{Category: core.CategoryFood, From: core.NewDate(2024, 5, 1), To: core.NewDate(2024, 5, 1)})
			require.NoError(t, err)
			require.Len(t, food, 1)
			assert.True(t, food[0].Amount.Equal(decimal.RequireFromString("10.5")))
			assert.Equal(t, "2024-05-01", food[0].Date.String())

			got, err := s.GetExpense(ctx, a.ID)
			require.NoError(t, err)
			got.Description = "updated"
			require.NoError(t, s.UpdateExpense(ctx, got))
			got, err = s.GetExpense(ctx, a.ID)
			require.NoError(t, err)
			assert.Equal(t, "updated", got.Description)

			require.NoError(t, s.DeleteExpense(ctx, a.ID))
			_, err = s.GetExpense(ctx, a.ID)
			assert.True(t, errors.Is(err, core.ErrNotFound))
			assert.True(t, errors.Is(s.DeleteExpense(ctx, a.ID), core.ErrNotFound))

			_, err = s.CreateExpense(ctx, expense(1, "-1", core.CategoryFood, core.NewDate(2024, 5, 1)))
			assert.True(t, errors.Is(err, core.ErrValidation))
		})
	}
}

func TestBudgetRecurringGoalContract(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			b, err := s.CreateBudget(ctx, core.Budget{Owner: 1, Category: core.CategoryFood, Amount: decimal.NewFromInt(1000), RolloverEnabled: true})
			require.NoError(t, err)
			b.RolloverBalance = decimal.NewFromInt(400)
			require.NoError(t, s.UpdateBudget(ctx, b))
			budgets, err := s.ListBudgets(ctx, 1)
			require.NoError(t, err)
			require.Len(t, budgets, 1)
			assert.True(t, budgets[0].RolloverEnabled)
			assert.True(t, budgets[0].RolloverBalance.Equal(decimal.NewFromInt(400)))

			r, err := s.CreateRecurring(ctx, core.RecurringTransaction{Owner: 3, Amount: decimal.NewFromInt(15), Category: core.CategorySubscription, DayOfMonth: 15, Active: true})
			require.NoError(t, err)
			assert.True(t, r.LastRun.IsEmpty())
			r.LastRun = core.NewDate(2024, 6, 15)
			require.NoError(t, s.UpdateRecurring(ctx, r))
			got, err := s.GetRecurring(ctx, r.ID)
			require.NoError(t, err)
			assert.Equal(t, "2024-06-15", got.LastRun.String())
			assert.True(t, got.Active)

			_, err = s.CreateRecurring(ctx, core.RecurringTransaction{Owner: 2, Amount: decimal.NewFromInt(5), Category: core.CategoryOther, DayOfMonth: 1})
			require.NoError(t, err)
			owners, err := s.OwnersWithActiveRecurring(ctx)
			require.NoError(t, err)
			assert.Equal(t, []int64{3}, owners)
			active, err := s.ListRecurring(ctx, 2, true)
			require.NoError(t, err)
			assert.Empty(t, active)

			g, err := s.CreateGoal(ctx, core.SavingsGoal{Owner: 1, Name: "Car", TargetAmount: decimal.NewFromInt(5000)})
			require.NoError(t, err)
			g.CurrentAmount = decimal.RequireFromString("2000.25")
			require.NoError(t, s.UpdateGoal(ctx, g))
			g, err = s.GetGoal(ctx, g.ID)
			require.NoError(t, err)
			assert.Equal(t, "2000.25", g.CurrentAmount.String())

			require.NoError(t, s.DeleteGoal(ctx, g.ID))
			_, err = s.GetGoal(ctx, g.ID)
			assert.True(t, errors.Is(err, core.ErrNotFound))
		})
	}
}

func TestWithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			err := s.WithTx(ctx, func(tx repository.Tx) error {
				if _, err := tx.CreateExpense(ctx, expense(1, "5", core.CategoryFood, core.NewDate(2024, 1, 1))); err != nil {
					return err
				}
				return boom
			})
			require.ErrorIs(t, err, boom)

			all, err := s.QueryExpenses(ctx, 1, core.ExpenseFilter{})
			require.NoError(t, err)
			assert.Empty(t, all)

			err = s.WithTx(ctx, func(tx repository.Tx) error {
				_, err := tx.CreateExpense(ctx, expense(1, "5", core.CategoryFood, core.NewDate(2024, 1, 1)))
				return err
			})
			require.NoError(t, err)
			all, err = s.QueryExpenses(ctx, 1, core.ExpenseFilter{})
			require.NoError(t, err)
			assert.Len(t, all, 1)
		})
	}
}
