package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"spendwise/internal/core"
)

func TestMemoryMirrorAppendAndRemove(t *testing.T) {
	s := New()
	e := core.ExpenseRecord{
		ID: 3, Owner: 1, Amount: decimal.NewFromInt(5), Category: core.CategoryFood,
		Date: core.NewDate(2024, 1, 1), Description: "t",
	}

	ref, err := s.Append(context.Background(), e)
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}
	if _, ok := s.Rows()[3]; !ok {
		t.Fatal("expected mirrored row for id 3")
	}

	if err := s.Remove(context.Background(), 3, "2024-01"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := s.Remove(context.Background(), 3, "2024-01"); err != nil {
		t.Fatalf("Remove of unknown id: %v", err)
	}
	if len(s.Rows()) != 0 {
		t.Fatal("expected empty mirror")
	}
}

func TestMemoryMirrorRejectsInvalid(t *testing.T) {
	if _, err := New().Append(context.Background(), core.ExpenseRecord{}); err == nil {
		t.Fatal("expected validation error")
	}
}
