package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"spendwise/internal/amqp"
	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/metrics"
	"spendwise/internal/repository"
)

// BudgetAccounting attributes spend to budgets and carries unused amounts
// across month boundaries.
type BudgetAccounting struct {
	store   repository.Store
	events  events
	metrics *metrics.Registry
}

type (
	BudgetInput struct {
		Category string
		Amount   string
		Rollover bool
	}

	// BudgetUpdate is the budget after a permissive edit, evaluated for the reference month.
	BudgetUpdate struct {
		Status  core.BudgetStatus
		Skipped []*core.ValidationError
	}

	RolloverEntry struct {
		BudgetID int64
		Category core.Category
		Unused   decimal.Decimal
		Balance  decimal.Decimal
	}

	CloseMonthResult struct {
		Period  core.Period
		Checked int // rollover-enabled budgets evaluated
		Rolled  []RolloverEntry
	}
)

func NewBudgetAccounting(d Deps) *BudgetAccounting {
	return &BudgetAccounting{
		store:   d.Store,
		events:  events{pub: d.Publisher, metrics: d.Metrics},
		metrics: d.Metrics,
	}
}

// Availability is the monthly amount plus the carried balance when rollover is on.
func Availability(b core.Budget) decimal.Decimal {
	if b.RolloverEnabled {
		return b.Amount.Add(b.RolloverBalance)
	}
	return b.Amount
}

// PercentConsumed is spent/availability as a percentage clamped to [0,100].
func PercentConsumed(spent, availability decimal.Decimal) decimal.Decimal {
	return core.ClampedPercent(spent, availability)
}

func spentInPeriod(ctx context.Context, l repository.Ledger, owner int64, cat core.Category, p core.Period) (decimal.Decimal, error) {
	records, err := l.QueryExpenses(ctx, owner, p.Filter(cat))
	if err != nil {
		return decimal.Zero, fmt.Errorf("query %s spend for %s: %w", cat, p, err)
	}
	total := decimal.Zero
	for _, e := range records {
		total = total.Add(e.Amount)
	}
	return total, nil
}

func budgetStatus(ctx context.Context, l repository.Ledger, b core.Budget, p core.Period) (core.BudgetStatus, error) {
	spent, err := spentInPeriod(ctx, l, b.Owner, b.Category, p)
	if err != nil {
		return core.BudgetStatus{}, err
	}
	avail := Availability(b)
	return core.BudgetStatus{
		Budget:       b,
		Spent:        spent,
		Availability: avail,
		Percent:      PercentConsumed(spent, avail),
	}, nil
}

// SpentInPeriod sums the owner's spend in category during p.
func (a *BudgetAccounting) SpentInPeriod(ctx context.Context, owner int64, cat core.Category, p core.Period) (decimal.Decimal, error) {
	return spentInPeriod(ctx, a.store, owner, cat, p)
}

// Status evaluates one owned budget against the month containing ref.
func (a *BudgetAccounting) Status(ctx context.Context, owner, id int64, ref core.Date) (core.BudgetStatus, error) {
	b, err := a.store.GetBudget(ctx, id)
	if err != nil {
		return core.BudgetStatus{}, err
	}
	if err := core.CheckOwner("budget", id, b.Owner, owner); err != nil {
		return core.BudgetStatus{}, err
	}
	return budgetStatus(ctx, a.store, b, ref.Period())
}

// CloseMonth adds max(0, amount - spent) to the rollover balance of every
// rollover-enabled budget of owner, for the month containing ref. All updates
// commit together. Calling it twice for the same month counts the unused
// amount twice.
func (a *BudgetAccounting) CloseMonth(ctx context.Context, owner int64, ref core.Date) (res CloseMonthResult, err error) {
	start := time.Now()
	defer func() { a.metrics.ObserveOperation(log.OpCloseMonth, start, err) }()

	if owner <= 0 {
		return CloseMonthResult{}, core.ErrInvalidOwner
	}
	if err := ref.Validate(); err != nil {
		return CloseMonthResult{}, err
	}
	period := ref.Period()

	var out CloseMonthResult
	err = a.store.WithTx(ctx, func(tx repository.Tx) error {
		out = CloseMonthResult{Period: period}
		budgets, err := tx.ListBudgets(ctx, owner)
		if err != nil {
			return fmt.Errorf("list budgets: %w", err)
		}
		for _, b := range budgets {
			if !b.RolloverEnabled {
				continue
			}
			out.Checked++
			spent, err := spentInPeriod(ctx, tx, owner, b.Category, period)
			if err != nil {
				return err
			}
			unused := core.MaxZero(b.Amount.Sub(spent))
			if !unused.IsPositive() {
				continue
			}
			b.RolloverBalance = b.RolloverBalance.Add(unused)
			if err := tx.UpdateBudget(ctx, b); err != nil {
				return fmt.Errorf("update budget %d: %w", b.ID, err)
			}
			out.Rolled = append(out.Rolled, RolloverEntry{
				BudgetID: b.ID,
				Category: b.Category,
				Unused:   unused,
				Balance:  b.RolloverBalance,
			})
		}
		return nil
	})
	if err != nil {
		return CloseMonthResult{}, fmt.Errorf("close month %s: %w", period, err)
	}

	a.metrics.AddRollovers(len(out.Rolled))
	slog.InfoContext(ctx, "Month closed",
		log.FieldOwnerID, owner,
		log.FieldPeriod, period.String(),
		"checked", out.Checked,
		log.FieldUpdated, len(out.Rolled))

	ev := amqp.NewLedgerEvent(amqp.EventMonthClosed, owner, 0)
	ev.Period = period.String()
	ev.Count = len(out.Rolled)
	a.events.emit(ctx, ev)

	return out, nil
}

func (a *BudgetAccounting) CreateBudget(ctx context.Context, owner int64, in BudgetInput) (core.Budget, error) {
	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.Budget{}, err
	}
	cat := core.ParseCategory(in.Category)
	if !cat.IsExpense() {
		return core.Budget{}, core.ErrInvalidCategory
	}
	b, err := a.store.CreateBudget(ctx, core.Budget{
		Owner:           owner,
		Category:        cat,
		Amount:          amount,
		RolloverEnabled: in.Rollover,
		RolloverBalance: decimal.Zero,
	})
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	slog.InfoContext(ctx, "Budget created", log.FieldOwnerID, owner, log.FieldBudgetID, b.ID, log.FieldCategory, cat)
	return b, nil
}

// UpdateBudget applies a permissive edit. A malformed amount keeps the previous
// value and is reported in Skipped; the rollover balance is never touched here.
func (a *BudgetAccounting) UpdateBudget(ctx context.Context, owner, id int64, patch core.BudgetPatch, ref core.Date) (BudgetUpdate, error) {
	var out BudgetUpdate
	err := a.store.WithTx(ctx, func(tx repository.Tx) error {
		b, err := tx.GetBudget(ctx, id)
		if err != nil {
			return err
		}
		if err := core.CheckOwner("budget", id, b.Owner, owner); err != nil {
			return err
		}
		out.Skipped = patch.Apply(&b)
		if err := tx.UpdateBudget(ctx, b); err != nil {
			return fmt.Errorf("update budget %d: %w", id, err)
		}
		out.Status, err = budgetStatus(ctx, tx, b, ref.Period())
		return err
	})
	if err != nil {
		return BudgetUpdate{}, err
	}
	return out, nil
}

func (a *BudgetAccounting) DeleteBudget(ctx context.Context, owner, id int64) error {
	return a.store.WithTx(ctx, func(tx repository.Tx) error {
		b, err := tx.GetBudget(ctx, id)
		if err != nil {
			return err
		}
		if err := core.CheckOwner("budget", id, b.Owner, owner); err != nil {
			return err
		}
		return tx.DeleteBudget(ctx, id)
	})
}

func (a *BudgetAccounting) ListBudgets(ctx context.Context, owner int64) ([]core.Budget, error) {
	return a.store.ListBudgets(ctx, owner)
}
