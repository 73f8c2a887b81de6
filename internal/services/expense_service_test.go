package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/amqp"
	"spendwise/internal/core"
)

func TestExpenseService_Create(t *testing.T) {
	eng, _, pub := newTestEngine(t)
	ctx := context.Background()

	e, err := eng.Ledger.Create(ctx, 1, ExpenseInput{Amount: "12,50", Category: " Food ", Date: "2024-05-02", Description: " Lunch "})
	require.NoError(t, err)
	assert.NotZero(t, e.ID)
	assert.True(t, e.Amount.Equal(dec("12.5")))
	assert.Equal(t, core.CategoryFood, e.Category)
	assert.Equal(t, "Lunch", e.Description)

	require.Len(t, pub.events, 1)
	assert.Equal(t, amqp.EventExpenseCreated, pub.events[0].Type)
	assert.Equal(t, e.ID, pub.events[0].EntityID)
	assert.Equal(t, "12.50", pub.events[0].Amount)
	assert.Equal(t, "user", pub.events[0].Source)
}

func TestExpenseService_CreateValidation(t *testing.T) {
	eng, _, pub := newTestEngine(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   ExpenseInput
		want error
	}{
		{"zero amount", ExpenseInput{Amount: "0", Category: "food", Date: "2024-01-01", Description: "x"}, core.ErrNonPositiveAmount},
		{"negative amount", ExpenseInput{Amount: "-5", Category: "food", Date: "2024-01-01", Description: "x"}, core.ErrInvalidAmount},
		{"bad date", ExpenseInput{Amount: "5", Category: "food", Date: "01/02/2024", Description: "x"}, core.ErrInvalidDate},
		{"empty description", ExpenseInput{Amount: "5", Category: "food", Date: "2024-01-01", Description: "  "}, core.ErrEmptyDescription},
		{"unknown category", ExpenseInput{Amount: "5", Category: "gadgets", Date: "2024-01-01", Description: "x"}, core.ErrInvalidCategory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := eng.Ledger.Create(ctx, 1, tt.in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrValidation), "got %v", err)
			assert.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)
		})
	}
	assert.Empty(t, pub.events)
}

func TestExpenseService_PublishFailureDoesNotFailCreate(t *testing.T) {
	eng, store, pub := newTestEngine(t)
	pub.err = errors.New("broker down")

	_, err := eng.Ledger.Create(context.Background(), 1, ExpenseInput{Amount: "3", Category: "other", Date: "2024-01-01", Description: "x"})
	require.NoError(t, err)
	got, err := store.QueryExpenses(context.Background(), 1, core.ExpenseFilter{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("all", "", "")
	require.NoError(t, err)
	assert.Equal(t, core.ExpenseFilter{}, f)

	f, err = ParseFilter("Travel", "2024-01-01", "2024-01-31")
	require.NoError(t, err)
	assert.Equal(t, core.CategoryTravel, f.Category)
	assert.Equal(t, "2024-01-01", f.From.String())
	assert.Equal(t, "2024-01-31", f.To.String())

	_, err = ParseFilter("nope", "", "")
	assert.True(t, errors.Is(err, core.ErrInvalidCategory))
	_, err = ParseFilter("", "yesterday", "")
	assert.True(t, errors.Is(err, core.ErrValidation))
}

func TestExpenseService_Query(t *testing.T) {
	eng, store, _ := newTestEngine(t)
	ctx := context.Background()
	addExpense(t, store, 1, "1", core.CategoryFood, core.NewDate(2024, 1, 5))
	addExpense(t, store, 1, "2", core.CategoryTravel, core.NewDate(2024, 1, 20))
	addExpense(t, store, 1, "3", core.CategoryFood, core.NewDate(2024, 2, 1))
	addExpense(t, store, 2, "4", core.CategoryFood, core.NewDate(2024, 1, 10))

	all, err := eng.Ledger.Query(ctx, 1, core.ExpenseFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "2024-02-01", all[0].Date.String(), "newest first")

	f, err := ParseFilter("food", "2024-01-01", "2024-01-31")
	require.NoError(t, err)
	jan, err := eng.Ledger.Query(ctx, 1, f)
	require.NoError(t, err)
	require.Len(t, jan, 1)
	assert.True(t, jan[0].Amount.Equal(dec("1")))
}

func TestExpenseService_UpdateDelete(t *testing.T) {
	eng, _, pub := newTestEngine(t)
	ctx := context.Background()
	e, err := eng.Ledger.Create(ctx, 1, ExpenseInput{Amount: "10", Category: "food", Date: "2024-01-01", Description: "a"})
	require.NoError(t, err)

	in := ExpenseInput{Amount: "11", Category: "travel", Date: "2024-01-02", Description: "b"}
	_, err = eng.Ledger.Update(ctx, 2, e.ID, in)
	assert.True(t, errors.Is(err, core.ErrUnauthorized))

	up, err := eng.Ledger.Update(ctx, 1, e.ID, in)
	require.NoError(t, err)
	assert.Equal(t, core.CategoryTravel, up.Category)

	got, err := eng.Ledger.Get(ctx, 1, e.ID)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(dec("11")))
	_, err = eng.Ledger.Get(ctx, 2, e.ID)
	assert.True(t, errors.Is(err, core.ErrUnauthorized))

	assert.True(t, errors.Is(eng.Ledger.Delete(ctx, 2, e.ID), core.ErrUnauthorized))
	require.NoError(t, eng.Ledger.Delete(ctx, 1, e.ID))
	assert.True(t, errors.Is(eng.Ledger.Delete(ctx, 1, e.ID), core.ErrNotFound))

	assert.Equal(t, []amqp.EventType{amqp.EventExpenseCreated, amqp.EventExpenseDeleted}, pub.types())
}
