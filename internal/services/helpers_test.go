package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"spendwise/internal/amqp"
	"spendwise/internal/core"
	"spendwise/internal/repository"
	"spendwise/internal/storage/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.LedgerEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev *amqp.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []amqp.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]amqp.EventType, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

func newTestEngine(t *testing.T) (*Engine, *memory.Store, *recordingPublisher) {
	t.Helper()
	store := memory.New()
	pub := &recordingPublisher{}
	return NewEngine(Deps{Store: store, Publisher: pub}), store, pub
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func addExpense(t *testing.T, s repository.Store, owner int64, amount string, cat core.Category, d core.Date) core.ExpenseRecord {
	t.Helper()
	e, err := s.CreateExpense(context.Background(), core.ExpenseRecord{
		Owner: owner, Amount: dec(amount), Category: cat, Date: d, Description: "seed",
	})
	require.NoError(t, err)
	return e
}

// failingStore fails the n-th expense creation inside a transaction.
type failingStore struct {
	repository.Store
	failAt int
}

type failingTx struct {
	repository.Tx
	remaining *int
}

var errInjected = errors.New("injected failure")

func (f *failingTx) CreateExpense(ctx context.Context, e core.ExpenseRecord) (core.ExpenseRecord, error) {
	*f.remaining--
	if *f.remaining == 0 {
		return core.ExpenseRecord{}, errInjected
	}
	return f.Tx.CreateExpense(ctx, e)
}

func (f *failingStore) WithTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	remaining := f.failAt
	return f.Store.WithTx(ctx, func(tx repository.Tx) error {
		return fn(&failingTx{Tx: tx, remaining: &remaining})
	})
}

// budgetFailStore fails updates of one budget inside transactions.
type budgetFailStore struct {
	repository.Store
	failID int64
}

type budgetFailTx struct {
	repository.Tx
	failID int64
}

func (f *budgetFailTx) UpdateBudget(ctx context.Context, b core.Budget) error {
	if b.ID == f.failID {
		return errInjected
	}
	return f.Tx.UpdateBudget(ctx, b)
}

func (f *budgetFailStore) WithTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	return f.Store.WithTx(ctx, func(tx repository.Tx) error {
		return fn(&budgetFailTx{Tx: tx, failID: f.failID})
	})
}
