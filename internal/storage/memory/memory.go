// Package memory is an in-process repository.Store used for development and tests.
package memory

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"spendwise/internal/core"
	"spendwise/internal/repository"
)

type state struct {
	nextID    int64
	expenses  map[int64]core.ExpenseRecord
	budgets   map[int64]core.Budget
	recurring map[int64]core.RecurringTransaction
	goals     map[int64]core.SavingsGoal
}

func newState() *state {
	return &state{
		expenses:  map[int64]core.ExpenseRecord{},
		budgets:   map[int64]core.Budget{},
		recurring: map[int64]core.RecurringTransaction{},
		goals:     map[int64]core.SavingsGoal{},
	}
}

func (s *state) clone() *state {
	return &state{
		nextID:    s.nextID,
		expenses:  maps.Clone(s.expenses),
		budgets:   maps.Clone(s.budgets),
		recurring: maps.Clone(s.recurring),
		goals:     maps.Clone(s.goals),
	}
}

func (s *state) id() int64 {
	s.nextID++
	return s.nextID
}

// Store guards a state with a mutex. Transactions run on a copy that replaces
// the live state only when the callback succeeds.
type Store struct {
	mu sync.Mutex
	st *state
}

var _ repository.Store = (*Store)(nil)

func New() *Store {
	return &Store{st: newState()}
}

func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.st.clone()
	if err := fn(&view{st: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

func (s *Store) locked(fn func(v *view) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&view{st: s.st})
}

func (s *Store) CreateExpense(ctx context.Context, e core.ExpenseRecord) (out core.ExpenseRecord, err error) {
	err = s.locked(func(v *view) error { out, err = v.CreateExpense(ctx, e); return err })
	return out, err
}

func (s *Store) GetExpense(ctx context.Context, id int64) (out core.ExpenseRecord, err error) {
	err = s.locked(func(v *view) error { out, err = v.GetExpense(ctx, id); return err })
	return out, err
}

func (s *Store) UpdateExpense(ctx context.Context, e core.ExpenseRecord) error {
	return s.locked(func(v *view) error { return v.UpdateExpense(ctx, e) })
}

func (s *Store) DeleteExpense(ctx context.Context, id int64) error {
	return s.locked(func(v *view) error { return v.DeleteExpense(ctx, id) })
}

func (s *Store) QueryExpenses(ctx context.Context, owner int64, f core.ExpenseFilter) (out []core.ExpenseRecord, err error) {
	err = s.locked(func(v *view) error { out, err = v.QueryExpenses(ctx, owner, f); return err })
	return out, err
}

func (s *Store) CreateBudget(ctx context.Context, b core.Budget) (out core.Budget, err error) {
	err = s.locked(func(v *view) error { out, err = v.CreateBudget(ctx, b); return err })
	return out, err
}

func (s *Store) GetBudget(ctx context.Context, id int64) (out core.Budget, err error) {
	err = s.locked(func(v *view) error { out, err = v.GetBudget(ctx, id); return err })
	return out, err
}

func (s *Store) ListBudgets(ctx context.Context, owner int64) (out []core.Budget, err error) {
	err = s.locked(func(v *view) error { out, err = v.ListBudgets(ctx, owner); return err })
	return out, err
}

func (s *Store) UpdateBudget(ctx context.Context, b core.Budget) error {
	return s.locked(func(v *view) error { return v.UpdateBudget(ctx, b) })
}

func (s *Store) DeleteBudget(ctx context.Context, id int64) error {
	return s.locked(func(v *view) error { return v.DeleteBudget(ctx, id) })
}

func (s *Store) CreateRecurring(ctx context.Context, r core.RecurringTransaction) (out core.RecurringTransaction, err error) {
	err = s.locked(func(v *view) error { out, err = v.CreateRecurring(ctx, r); return err })
	return out, err
}

func (s *Store) GetRecurring(ctx context.Context, id int64) (out core.RecurringTransaction, err error) {
	err = s.locked(func(v *view) error { out, err = v.GetRecurring(ctx, id); return err })
	return out, err
}

func (s *Store) ListRecurring(ctx context.Context, owner int64, activeOnly bool) (out []core.RecurringTransaction, err error) {
	err = s.locked(func(v *view) error { out, err = v.ListRecurring(ctx, owner, activeOnly); return err })
	return out, err
}

func (s *Store) UpdateRecurring(ctx context.Context, r core.RecurringTransaction) error {
	return s.locked(func(v *view) error { return v.UpdateRecurring(ctx, r) })
}

func (s *Store) DeleteRecurring(ctx context.Context, id int64) error {
	return s.locked(func(v *view) error { return v.DeleteRecurring(ctx, id) })
}

func (s *Store) OwnersWithActiveRecurring(ctx context.Context) (out []int64, err error) {
	err = s.locked(func(v *view) error { out, err = v.OwnersWithActiveRecurring(ctx); return err })
	return out, err
}

func (s *Store) CreateGoal(ctx context.Context, g core.SavingsGoal) (out core.SavingsGoal, err error) {
	err = s.locked(func(v *view) error { out, err = v.CreateGoal(ctx, g); return err })
	return out, err
}

func (s *Store) GetGoal(ctx context.Context, id int64) (out core.SavingsGoal, err error) {
	err = s.locked(func(v *view) error { out, err = v.GetGoal(ctx, id); return err })
	return out, err
}

func (s *Store) ListGoals(ctx context.Context, owner int64) (out []core.SavingsGoal, err error) {
	err = s.locked(func(v *view) error { out, err = v.ListGoals(ctx, owner); return err })
	return out, err
}

func (s *Store) UpdateGoal(ctx context.Context, g core.SavingsGoal) error {
	return s.locked(func(v *view) error { return v.UpdateGoal(ctx, g) })
}

func (s *Store) DeleteGoal(ctx context.Context, id int64) error {
	return s.locked(func(v *view) error { return v.DeleteGoal(ctx, id) })
}

// view implements repository.Tx over a state without locking.
type view struct {
	st *state
}

func (v *view) CreateExpense(_ context.Context, e core.ExpenseRecord) (core.ExpenseRecord, error) {
	if err := e.Validate(); err != nil {
		return core.ExpenseRecord{}, err
	}
	e.ID = v.st.id()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	v.st.expenses[e.ID] = e
	return e, nil
}

func (v *view) GetExpense(_ context.Context, id int64) (core.ExpenseRecord, error) {
	e, ok := v.st.expenses[id]
	if !ok {
		return core.ExpenseRecord{}, &core.NotFoundError{Entity: "expense", ID: id}
	}
	return e, nil
}

func (v *view) UpdateExpense(_ context.Context, e core.ExpenseRecord) error {
	old, ok := v.st.expenses[e.ID]
	if !ok {
		return &core.NotFoundError{Entity: "expense", ID: e.ID}
	}
	if err := e.Validate(); err != nil {
		return err
	}
	e.CreatedAt = old.CreatedAt
	v.st.expenses[e.ID] = e
	return nil
}

func (v *view) DeleteExpense(_ context.Context, id int64) error {
	if _, ok := v.st.expenses[id]; !ok {
		return &core.NotFoundError{Entity: "expense", ID: id}
	}
	delete(v.st.expenses, id)
	return nil
}

func (v *view) QueryExpenses(_ context.Context, owner int64, f core.ExpenseFilter) ([]core.ExpenseRecord, error) {
	var out []core.ExpenseRecord
	for _, e := range v.st.expenses {
		if e.Owner == owner && f.Matches(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (v *view) CreateBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	b.ID = v.st.id()
	v.st.budgets[b.ID] = b
	return b, nil
}

func (v *view) GetBudget(_ context.Context, id int64) (core.Budget, error) {
	b, ok := v.st.budgets[id]
	if !ok {
		return core.Budget{}, &core.NotFoundError{Entity: "budget", ID: id}
	}
	return b, nil
}

func (v *view) ListBudgets(_ context.Context, owner int64) ([]core.Budget, error) {
	return ownedSorted(v.st.budgets, owner, func(b core.Budget) (int64, int64) { return b.Owner, b.ID }), nil
}

func (v *view) UpdateBudget(_ context.Context, b core.Budget) error {
	if _, ok := v.st.budgets[b.ID]; !ok {
		return &core.NotFoundError{Entity: "budget", ID: b.ID}
	}
	if err := b.Validate(); err != nil {
		return err
	}
	v.st.budgets[b.ID] = b
	return nil
}

func (v *view) DeleteBudget(_ context.Context, id int64) error {
	if _, ok := v.st.budgets[id]; !ok {
		return &core.NotFoundError{Entity: "budget", ID: id}
	}
	delete(v.st.budgets, id)
	return nil
}

func (v *view) CreateRecurring(_ context.Context, r core.RecurringTransaction) (core.RecurringTransaction, error) {
	if err := r.Validate(); err != nil {
		return core.RecurringTransaction{}, err
	}
	r.ID = v.st.id()
	v.st.recurring[r.ID] = r
	return r, nil
}

func (v *view) GetRecurring(_ context.Context, id int64) (core.RecurringTransaction, error) {
	r, ok := v.st.recurring[id]
	if !ok {
		return core.RecurringTransaction{}, &core.NotFoundError{Entity: "recurring", ID: id}
	}
	return r, nil
}

func (v *view) ListRecurring(_ context.Context, owner int64, activeOnly bool) ([]core.RecurringTransaction, error) {
	all := ownedSorted(v.st.recurring, owner, func(r core.RecurringTransaction) (int64, int64) { return r.Owner, r.ID })
	if !activeOnly {
		return all, nil
	}
	out := all[:0]
	for _, r := range all {
		if r.Active {
			out = append(out, r)
		}
	}
	return out, nil
}

// UpdateRecurring stores r without re-validating the day of month, so legacy
// templates scheduled past the 28th can still advance their last run.
func (v *view) UpdateRecurring(_ context.Context, r core.RecurringTransaction) error {
	if _, ok := v.st.recurring[r.ID]; !ok {
		return &core.NotFoundError{Entity: "recurring", ID: r.ID}
	}
	v.st.recurring[r.ID] = r
	return nil
}

func (v *view) DeleteRecurring(_ context.Context, id int64) error {
	if _, ok := v.st.recurring[id]; !ok {
		return &core.NotFoundError{Entity: "recurring", ID: id}
	}
	delete(v.st.recurring, id)
	return nil
}

func (v *view) OwnersWithActiveRecurring(context.Context) ([]int64, error) {
	seen := map[int64]bool{}
	var out []int64
	for _, r := range v.st.recurring {
		if r.Active && !seen[r.Owner] {
			seen[r.Owner] = true
			out = append(out, r.Owner)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (v *view) CreateGoal(_ context.Context, g core.SavingsGoal) (core.SavingsGoal, error) {
	if err := g.Validate(); err != nil {
		return core.SavingsGoal{}, err
	}
	g.ID = v.st.id()
	v.st.goals[g.ID] = g
	return g, nil
}

func (v *view) GetGoal(_ context.Context, id int64) (core.SavingsGoal, error) {
	g, ok := v.st.goals[id]
	if !ok {
		return core.SavingsGoal{}, &core.NotFoundError{Entity: "goal", ID: id}
	}
	return g, nil
}

func (v *view) ListGoals(_ context.Context, owner int64) ([]core.SavingsGoal, error) {
	return ownedSorted(v.st.goals, owner, func(g core.SavingsGoal) (int64, int64) { return g.Owner, g.ID }), nil
}

func (v *view) UpdateGoal(_ context.Context, g core.SavingsGoal) error {
	if _, ok := v.st.goals[g.ID]; !ok {
		return &core.NotFoundError{Entity: "goal", ID: g.ID}
	}
	if err := g.Validate(); err != nil {
		return err
	}
	v.st.goals[g.ID] = g
	return nil
}

func (v *view) DeleteGoal(_ context.Context, id int64) error {
	if _, ok := v.st.goals[id]; !ok {
		return &core.NotFoundError{Entity: "goal", ID: id}
	}
	delete(v.st.goals, id)
	return nil
}

// ownedSorted returns the owner's entities ordered by id.
func ownedSorted[T any](m map[int64]T, owner int64, key func(T) (owner, id int64)) []T {
	var out []T
	for _, v := range m {
		if o, _ := key(v); o == owner {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		_, a := key(out[i])
		_, b := key(out[j])
		return a < b
	})
	return out
}
