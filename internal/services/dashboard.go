package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/metrics"
	"spendwise/internal/repository"
)

// DashboardService builds the per-owner read model.
type DashboardService struct {
	store   repository.Store
	metrics *metrics.Registry
}

func NewDashboardService(d Deps) *DashboardService {
	return &DashboardService{store: d.Store, metrics: d.Metrics}
}

// ComputeDashboard reads everything inside one unit of work so the figures are consistent.
func (s *DashboardService) ComputeDashboard(ctx context.Context, owner int64, ref core.Date) (d core.Dashboard, err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveOperation(log.OpDashboard, start, err) }()

	if err := ref.Validate(); err != nil {
		return core.Dashboard{}, err
	}
	period := ref.Period()

	err = s.store.WithTx(ctx, func(tx repository.Tx) error {
		expenses, err := tx.QueryExpenses(ctx, owner, core.ExpenseFilter{})
		if err != nil {
			return fmt.Errorf("query expenses: %w", err)
		}
		budgets, err := tx.ListBudgets(ctx, owner)
		if err != nil {
			return fmt.Errorf("list budgets: %w", err)
		}
		recurring, err := tx.ListRecurring(ctx, owner, false)
		if err != nil {
			return fmt.Errorf("list recurring: %w", err)
		}
		goals, err := tx.ListGoals(ctx, owner)
		if err != nil {
			return fmt.Errorf("list goals: %w", err)
		}

		d = core.Dashboard{Owner: owner, Period: period, Recurring: recurring}
		d.TotalSpent, d.CategoryBreakdown = breakdown(expenses)
		d.BudgetStatuses = make([]core.BudgetStatus, len(budgets))
		for i, b := range budgets {
			spent := decimal.Zero
			for _, e := range expenses {
				if e.Category == b.Category && period.Contains(e.Date) {
					spent = spent.Add(e.Amount)
				}
			}
			avail := Availability(b)
			d.BudgetStatuses[i] = core.BudgetStatus{
				Budget:       b,
				Spent:        spent,
				Availability: avail,
				Percent:      PercentConsumed(spent, avail),
			}
		}
		d.Goals = make([]core.GoalStatus, len(goals))
		for i, g := range goals {
			d.Goals[i] = goalStatus(g)
		}
		return nil
	})
	if err != nil {
		return core.Dashboard{}, fmt.Errorf("compute dashboard: %w", err)
	}
	return d, nil
}

// breakdown totals all expenses and per category, largest category first.
func breakdown(expenses []core.ExpenseRecord) (decimal.Decimal, []core.CategoryAmount) {
	total := decimal.Zero
	sums := map[core.Category]decimal.Decimal{}
	for _, e := range expenses {
		total = total.Add(e.Amount)
		sums[e.Category] = sums[e.Category].Add(e.Amount)
	}
	out := make([]core.CategoryAmount, 0, len(sums))
	for c, amt := range sums {
		out = append(out, core.CategoryAmount{Category: c, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Amount.Equal(out[j].Amount) {
			return out[i].Amount.GreaterThan(out[j].Amount)
		}
		return out[i].Category < out[j].Category
	})
	return total, out
}
