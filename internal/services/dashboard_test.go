package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/core"
)

func TestComputeDashboard(t *testing.T) {
	eng, store, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.Budgets.CreateBudget(ctx, 1, BudgetInput{Category: "food", Amount: "200"})
	require.NoError(t, err)
	createRecurring(t, eng, 1, "50", "subscription", "Music", 4)
	g, err := eng.Goals.CreateGoal(ctx, 1, GoalInput{Name: "Fund", TargetAmount: "1000"})
	require.NoError(t, err)
	_, err = eng.ContributeToGoal(ctx, g.ID, 1, dec("250"))
	require.NoError(t, err)

	addExpense(t, store, 1, "30", core.CategoryFood, core.NewDate(2024, 4, 30))
	addExpense(t, store, 1, "50", core.CategoryFood, core.NewDate(2024, 5, 2))
	addExpense(t, store, 1, "70", core.CategoryTravel, core.NewDate(2024, 5, 3))
	addExpense(t, store, 2, "999", core.CategoryFood, core.NewDate(2024, 5, 3))

	d, err := eng.ComputeDashboard(ctx, 1, core.NewDate(2024, 5, 20))
	require.NoError(t, err)

	assert.Equal(t, int64(1), d.Owner)
	assert.Equal(t, "2024-05", d.Period.String())
	assert.True(t, d.TotalSpent.Equal(dec("150")), "total = %s", d.TotalSpent)

	require.Len(t, d.CategoryBreakdown, 2)
	assert.Equal(t, core.CategoryFood, d.CategoryBreakdown[0].Category)
	assert.True(t, d.CategoryBreakdown[0].Amount.Equal(dec("80")))
	assert.Equal(t, core.CategoryTravel, d.CategoryBreakdown[1].Category)

	require.Len(t, d.BudgetStatuses, 1)
	assert.True(t, d.BudgetStatuses[0].Spent.Equal(dec("50")), "only the reference month counts")
	assert.True(t, d.BudgetStatuses[0].Percent.Equal(dec("25")))

	require.Len(t, d.Recurring, 1)
	require.Len(t, d.Goals, 1)
	assert.True(t, d.Goals[0].Percent.Equal(dec("25")))
}

func TestComputeDashboardEmpty(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	d, err := eng.ComputeDashboard(context.Background(), 7, core.NewDate(2024, 1, 1))
	require.NoError(t, err)
	assert.True(t, d.TotalSpent.IsZero())
	assert.Empty(t, d.CategoryBreakdown)
	assert.Empty(t, d.BudgetStatuses)
	assert.Empty(t, d.Goals)

	_, err = eng.ComputeDashboard(context.Background(), 7, core.Date{})
	assert.Error(t, err)
}
