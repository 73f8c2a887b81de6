// Package services provides the accounting engine: ledger, budgets, recurrence,
// goals and the dashboard read model.
package services

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"spendwise/internal/amqp"
	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/metrics"
	"spendwise/internal/repository"
)

// EventPublisher is implemented by *amqp.Client.
type EventPublisher interface {
	Publish(ctx context.Context, ev *amqp.LedgerEvent) error
}

// Deps are the collaborators shared by every service. Publisher and Metrics may be nil.
type Deps struct {
	Store     repository.Store
	Publisher EventPublisher
	Metrics   *metrics.Registry
}

// events publishes committed mutations. Failures never fail the caller: the
// data is already stored and the broker is a best-effort side channel.
type events struct {
	pub     EventPublisher
	metrics *metrics.Registry
}

func (e events) emit(ctx context.Context, ev *amqp.LedgerEvent) {
	if e.pub == nil {
		slog.DebugContext(ctx, "No event publisher configured, skipping event", log.FieldEventType, ev.Type)
		return
	}
	err := e.pub.Publish(ctx, ev)
	e.metrics.IncPublished(string(ev.Type), err)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			log.FieldEventID, ev.ID,
			log.FieldEventType, ev.Type,
			log.FieldOwnerID, ev.OwnerID,
			log.FieldError, err)
	}
}

// Engine groups the services behind the operations exposed to the outer surfaces.
type Engine struct {
	Ledger     *ExpenseService
	Budgets    *BudgetAccounting
	Recurrence *RecurringProcessor
	Recurring  *RecurringService
	Goals      *GoalTracker
	Dashboards *DashboardService
}

func NewEngine(d Deps) *Engine {
	return &Engine{
		Ledger:     NewExpenseService(d),
		Budgets:    NewBudgetAccounting(d),
		Recurrence: NewRecurringProcessor(d),
		Recurring:  NewRecurringService(d),
		Goals:      NewGoalTracker(d),
		Dashboards: NewDashboardService(d),
	}
}

func (e *Engine) ComputeDashboard(ctx context.Context, owner int64, ref core.Date) (core.Dashboard, error) {
	return e.Dashboards.ComputeDashboard(ctx, owner, ref)
}

func (e *Engine) RunRecurrence(ctx context.Context, owner int64, ref core.Date) (int, error) {
	return e.Recurrence.RunRecurrence(ctx, owner, ref)
}

func (e *Engine) CloseMonth(ctx context.Context, owner int64, ref core.Date) (CloseMonthResult, error) {
	return e.Budgets.CloseMonth(ctx, owner, ref)
}

// ContributeToGoal records a contribution with the default source.
func (e *Engine) ContributeToGoal(ctx context.Context, goalID, owner int64, amount decimal.Decimal) (core.SavingsGoal, error) {
	return e.Goals.Contribute(ctx, owner, goalID, amount, core.SourceOther)
}
