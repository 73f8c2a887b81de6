// Package memory is an in-process ledger mirror used in development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"spendwise/internal/core"
	ports "spendwise/internal/sheets"
)

var _ ports.Mirror = (*Store)(nil)

type Store struct {
	mu    sync.Mutex
	seq   int
	items map[int64]core.ExpenseRecord
}

func New() *Store {
	return &Store{items: map[int64]core.ExpenseRecord{}}
}

// Append stores the entry and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, e core.ExpenseRecord) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.items[e.ID] = e
	return fmt.Sprintf("mem:%d", s.seq), nil
}

func (s *Store) Remove(_ context.Context, id int64, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

// Rows returns a copy of the mirrored entries keyed by ledger id.
func (s *Store) Rows() map[int64]core.ExpenseRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]core.ExpenseRecord, len(s.items))
	for k, v := range s.items {
		out[k] = v
	}
	return out
}
