package http

import (
	"github.com/shopspring/decimal"

	"spendwise/internal/core"
	"spendwise/internal/display"
	"spendwise/internal/services"
)

// money carries the exact value next to its localized rendering.
type money struct {
	Value   string `json:"value"`
	Display string `json:"display"`
}

func newMoney(dc display.Context, d decimal.Decimal) money {
	return money{Value: d.StringFixed(2), Display: dc.Amount(d)}
}

type percent struct {
	Value   string `json:"value"`
	Display string `json:"display"`
}

func newPercent(dc display.Context, d decimal.Decimal) percent {
	return percent{Value: d.StringFixed(2), Display: dc.Percent(d)}
}

type expenseView struct {
	ID            int64  `json:"id"`
	Amount        money  `json:"amount"`
	Category      string `json:"category"`
	CategoryLabel string `json:"category_label"`
	Date          string `json:"date"`
	Description   string `json:"description"`
}

func toExpenseView(dc display.Context, e core.ExpenseRecord) expenseView {
	return expenseView{
		ID:            e.ID,
		Amount:        newMoney(dc, e.Amount),
		Category:      e.Category.String(),
		CategoryLabel: e.Category.Label(),
		Date:          e.Date.String(),
		Description:   e.Description,
	}
}

type budgetView struct {
	ID              int64   `json:"id"`
	Category        string  `json:"category"`
	Amount          money   `json:"amount"`
	Rollover        bool    `json:"rollover"`
	RolloverBalance money   `json:"rollover_balance"`
	Spent           money   `json:"spent"`
	Available       money   `json:"available"`
	Percent         percent `json:"percent"`
}

func toBudgetView(dc display.Context, st core.BudgetStatus) budgetView {
	b := st.Budget
	return budgetView{
		ID:              b.ID,
		Category:        b.Category.String(),
		Amount:          newMoney(dc, b.Amount),
		Rollover:        b.RolloverEnabled,
		RolloverBalance: newMoney(dc, b.RolloverBalance),
		Spent:           newMoney(dc, st.Spent),
		Available:       newMoney(dc, st.Availability),
		Percent:         newPercent(dc, st.Percent),
	}
}

type recurringView struct {
	ID          int64  `json:"id"`
	Amount      money  `json:"amount"`
	Category    string `json:"category"`
	Description string `json:"description"`
	DayOfMonth  int    `json:"day_of_month"`
	Active      bool   `json:"active"`
	LastRun     string `json:"last_run,omitempty"`
}

func toRecurringView(dc display.Context, rt core.RecurringTransaction) recurringView {
	v := recurringView{
		ID:          rt.ID,
		Amount:      newMoney(dc, rt.Amount),
		Category:    rt.Category.String(),
		Description: rt.EffectiveDescription(),
		DayOfMonth:  rt.DayOfMonth,
		Active:      rt.Active,
	}
	if !rt.LastRun.IsEmpty() {
		v.LastRun = rt.LastRun.String()
	}
	return v
}

type goalView struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Target  money   `json:"target_amount"`
	Current money   `json:"current_amount"`
	Percent percent `json:"percent"`
}

func toGoalView(dc display.Context, st core.GoalStatus) goalView {
	g := st.Goal
	return goalView{
		ID:      g.ID,
		Name:    g.Name,
		Target:  newMoney(dc, g.TargetAmount),
		Current: newMoney(dc, g.CurrentAmount),
		Percent: newPercent(dc, st.Percent),
	}
}

func goalStatusOf(g core.SavingsGoal) core.GoalStatus {
	return core.GoalStatus{Goal: g, Percent: services.ProgressPercent(g)}
}

type categoryView struct {
	Category string `json:"category"`
	Label    string `json:"label"`
	Amount   money  `json:"amount"`
}

type dashboardView struct {
	Owner      int64           `json:"owner"`
	Period     string          `json:"period"`
	Currency   string          `json:"currency"`
	TotalSpent money           `json:"total_spent"`
	Categories []categoryView  `json:"category_breakdown"`
	Budgets    []budgetView    `json:"budgets"`
	Recurring  []recurringView `json:"recurring"`
	Goals      []goalView      `json:"goals"`
}

func toDashboardView(dc display.Context, d core.Dashboard) dashboardView {
	v := dashboardView{
		Owner:      d.Owner,
		Period:     d.Period.String(),
		Currency:   dc.Currency.String(),
		TotalSpent: newMoney(dc, d.TotalSpent),
		Categories: make([]categoryView, 0, len(d.CategoryBreakdown)),
		Budgets:    make([]budgetView, 0, len(d.BudgetStatuses)),
		Recurring:  make([]recurringView, 0, len(d.Recurring)),
		Goals:      make([]goalView, 0, len(d.Goals)),
	}
	for _, c := range d.CategoryBreakdown {
		v.Categories = append(v.Categories, categoryView{
			Category: c.Category.String(),
			Label:    c.Category.Label(),
			Amount:   newMoney(dc, c.Amount),
		})
	}
	for _, b := range d.BudgetStatuses {
		v.Budgets = append(v.Budgets, toBudgetView(dc, b))
	}
	for _, rt := range d.Recurring {
		v.Recurring = append(v.Recurring, toRecurringView(dc, rt))
	}
	for _, g := range d.Goals {
		v.Goals = append(v.Goals, toGoalView(dc, g))
	}
	return v
}
