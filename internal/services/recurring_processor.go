package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"spendwise/internal/amqp"
	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/metrics"
	"spendwise/internal/repository"
)

// RecurringProcessor materializes due recurring transactions into ledger entries
type RecurringProcessor struct {
	store   repository.Store
	checker DuenessChecker
	events  events
	metrics *metrics.Registry
}

func NewRecurringProcessor(d Deps) *RecurringProcessor {
	return &RecurringProcessor{
		store:   d.Store,
		checker: MonthlyDayChecker{},
		events:  events{pub: d.Publisher, metrics: d.Metrics},
		metrics: d.Metrics,
	}
}

// WithChecker replaces the dueness rule.
func (p *RecurringProcessor) WithChecker(c DuenessChecker) *RecurringProcessor {
	p.checker = c
	return p
}

// RunRecurrence creates one expense dated today for every due template of owner
// and advances its last run. Either every due template materializes or none does.
func (p *RecurringProcessor) RunRecurrence(ctx context.Context, owner int64, today core.Date) (n int, err error) {
	start := time.Now()
	defer func() { p.metrics.ObserveOperation(log.OpRunRecurrence, start, err) }()

	if owner <= 0 {
		return 0, core.ErrInvalidOwner
	}
	if err := today.Validate(); err != nil {
		return 0, err
	}

	var created []core.ExpenseRecord
	var checked int
	err = p.store.WithTx(ctx, func(tx repository.Tx) error {
		created, checked = nil, 0
		templates, err := tx.ListRecurring(ctx, owner, true)
		if err != nil {
			return fmt.Errorf("list active recurring: %w", err)
		}
		checked = len(templates)

		for _, rt := range templates {
			if !p.checker.IsDue(rt, today) {
				continue
			}
			e, err := tx.CreateExpense(ctx, core.ExpenseRecord{
				Owner:       owner,
				Amount:      rt.Amount,
				Category:    rt.Category,
				Date:        today,
				Description: rt.EffectiveDescription(),
			})
			if err != nil {
				return fmt.Errorf("materialize recurring %d: %w", rt.ID, err)
			}
			rt.LastRun = today
			if err := tx.UpdateRecurring(ctx, rt); err != nil {
				return fmt.Errorf("advance last run of recurring %d: %w", rt.ID, err)
			}
			created = append(created, e)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("run recurrence for owner %d: %w", owner, err)
	}

	p.metrics.AddMaterialized(len(created))
	slog.InfoContext(ctx, "Recurring processing complete",
		log.FieldOwnerID, owner,
		log.FieldDate, today.String(),
		log.FieldCreated, len(created),
		"total_checked", checked)

	for _, e := range created {
		ev := amqp.NewLedgerEvent(amqp.EventExpenseCreated, owner, e.ID)
		ev.Amount = e.Amount.StringFixed(2)
		ev.Period = e.Date.Period().String()
		ev.Source = "recurring"
		p.events.emit(ctx, ev)
	}
	return len(created), nil
}

// RunAll runs recurrence for every owner with active templates, one transaction
// per owner. A failing owner does not stop the others; failures are joined.
func (p *RecurringProcessor) RunAll(ctx context.Context, today core.Date) (int, error) {
	owners, err := p.store.OwnersWithActiveRecurring(ctx)
	if err != nil {
		return 0, fmt.Errorf("list owners with recurring transactions: %w", err)
	}

	total := 0
	var errs []error
	for _, owner := range owners {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		n, err := p.RunRecurrence(ctx, owner, today)
		if err != nil {
			slog.ErrorContext(ctx, "Recurring processing failed for owner",
				log.FieldOwnerID, owner,
				log.FieldError, err)
			errs = append(errs, err)
			continue
		}
		total += n
	}

	slog.InfoContext(ctx, "Recurring run finished",
		"owners", len(owners),
		log.FieldCreated, total,
		"failed", len(errs))
	return total, errors.Join(errs...)
}
