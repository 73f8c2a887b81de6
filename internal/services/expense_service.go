package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"spendwise/internal/amqp"
	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/repository"
)

// ExpenseService records user expenses in the ledger and announces them on the broker
type ExpenseService struct {
	store  repository.Store
	events events
}

// ExpenseInput is raw user input for creating or replacing an expense.
type ExpenseInput struct {
	Amount      string
	Category    string
	Date        string
	Description string
}

func NewExpenseService(d Deps) *ExpenseService {
	return &ExpenseService{
		store:  d.Store,
		events: events{pub: d.Publisher, metrics: d.Metrics},
	}
}

func (in ExpenseInput) record(owner int64) (core.ExpenseRecord, error) {
	amount, err := core.ParsePositiveAmount(in.Amount)
	if err != nil {
		return core.ExpenseRecord{}, err
	}
	date, err := core.ParseDate(in.Date)
	if err != nil {
		return core.ExpenseRecord{}, err
	}
	e := core.ExpenseRecord{
		Owner:       owner,
		Amount:      amount,
		Category:    core.ParseCategory(in.Category),
		Date:        date,
		Description: strings.TrimSpace(in.Description),
	}
	return e, e.Validate()
}

// ParseFilter builds a ledger filter from query values. Category "all" or empty
// disables the category filter; dates are inclusive YYYY-MM-DD.
func ParseFilter(category, from, to string) (core.ExpenseFilter, error) {
	var f core.ExpenseFilter
	if c := core.ParseCategory(category); c != "" && c != core.CategoryAll {
		if !c.IsLedger() {
			return f, core.ErrInvalidCategory
		}
		f.Category = c
	}
	var err error
	if strings.TrimSpace(from) != "" {
		if f.From, err = core.ParseDate(from); err != nil {
			return f, &core.ValidationError{Field: "start_date", Reason: "must be YYYY-MM-DD"}
		}
	}
	if strings.TrimSpace(to) != "" {
		if f.To, err = core.ParseDate(to); err != nil {
			return f, &core.ValidationError{Field: "end_date", Reason: "must be YYYY-MM-DD"}
		}
	}
	return f, nil
}

// Create saves an expense and publishes an expense.created event
func (s *ExpenseService) Create(ctx context.Context, owner int64, in ExpenseInput) (core.ExpenseRecord, error) {
	e, err := in.record(owner)
	if err != nil {
		return core.ExpenseRecord{}, err
	}
	e, err = s.store.CreateExpense(ctx, e)
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("save expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		log.NewFields().
			WithOwner(owner).
			WithExpense(e.ID, e.Amount.StringFixed(2), string(e.Category)).
			WithOperation(log.OpCreate).
			ToSlice()...)

	ev := amqp.NewLedgerEvent(amqp.EventExpenseCreated, owner, e.ID)
	ev.Amount = e.Amount.StringFixed(2)
	ev.Period = e.Date.Period().String()
	ev.Source = "user"
	s.events.emit(ctx, ev)
	return e, nil
}

// Update replaces an owned expense.
func (s *ExpenseService) Update(ctx context.Context, owner, id int64, in ExpenseInput) (core.ExpenseRecord, error) {
	e, err := in.record(owner)
	if err != nil {
		return core.ExpenseRecord{}, err
	}
	e.ID = id
	err = s.store.WithTx(ctx, func(tx repository.Tx) error {
		old, err := tx.GetExpense(ctx, id)
		if err != nil {
			return err
		}
		if err := core.CheckOwner("expense", id, old.Owner, owner); err != nil {
			return err
		}
		e.CreatedAt = old.CreatedAt
		return tx.UpdateExpense(ctx, e)
	})
	if err != nil {
		return core.ExpenseRecord{}, err
	}
	return e, nil
}

// Delete removes an owned expense and publishes an expense.deleted event
func (s *ExpenseService) Delete(ctx context.Context, owner, id int64) error {
	var deleted core.ExpenseRecord
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		e, err := tx.GetExpense(ctx, id)
		if err != nil {
			return err
		}
		if err := core.CheckOwner("expense", id, e.Owner, owner); err != nil {
			return err
		}
		deleted = e
		return tx.DeleteExpense(ctx, id)
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Expense deleted",
		log.NewFields().
			WithOwner(owner).
			WithExpense(id, deleted.Amount.StringFixed(2), string(deleted.Category)).
			WithOperation(log.OpDelete).
			ToSlice()...)

	ev := amqp.NewLedgerEvent(amqp.EventExpenseDeleted, owner, id)
	ev.Amount = deleted.Amount.StringFixed(2)
	ev.Period = deleted.Date.Period().String()
	s.events.emit(ctx, ev)
	return nil
}

func (s *ExpenseService) Get(ctx context.Context, owner, id int64) (core.ExpenseRecord, error) {
	e, err := s.store.GetExpense(ctx, id)
	if err != nil {
		return core.ExpenseRecord{}, err
	}
	if err := core.CheckOwner("expense", id, e.Owner, owner); err != nil {
		return core.ExpenseRecord{}, err
	}
	return e, nil
}

// Query returns the owner's expenses matching f, newest first.
func (s *ExpenseService) Query(ctx context.Context, owner int64, f core.ExpenseFilter) ([]core.ExpenseRecord, error) {
	return s.store.QueryExpenses(ctx, owner, f)
}
