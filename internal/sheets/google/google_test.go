package google

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"spendwise/internal/core"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{})
	if err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_UnreadableCredentialsFile(t *testing.T) {
	_, err := New(context.Background(), Options{
		SpreadsheetID:   "sheet",
		CredentialsFile: t.TempDir() + "/missing.json",
	})
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestClient_AppendValidates(t *testing.T) {
	c := &Client{spreadsheetID: "test", sheetBase: "Ledger"}

	_, err := c.Append(context.Background(), core.ExpenseRecord{Owner: 1, Description: "x", Category: core.CategoryFood})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "validation failed") {
		t.Errorf("unexpected error: %v", err)
	}

	_, err = c.Append(context.Background(), core.ExpenseRecord{
		Owner: 1, Description: "x", Category: core.CategoryFood,
		Date: core.NewDate(2024, 1, 1), Amount: decimal.NewFromInt(1),
	})
	if err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Fatalf("expected uninitialized service error, got %v", err)
	}
}

func TestExpenseRow(t *testing.T) {
	e := core.ExpenseRecord{
		ID:          42,
		Owner:       7,
		Amount:      decimal.RequireFromString("12.5"),
		Category:    core.CategoryHealthcare,
		Date:        core.NewDate(2024, 3, 9),
		Description: "Pharmacy",
	}
	row := expenseRow(e)
	want := []any{"2024-03-09", int64(7), "Healthcare", "Pharmacy", "12.50", "42"}
	if len(row) != len(want) {
		t.Fatalf("row has %d columns, want %d", len(row), len(want))
	}
	for i := range want {
		if row[i] != want[i] {
			t.Errorf("column %d = %v, want %v", i, row[i], want[i])
		}
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		year int
		want string
	}{
		{"Ledger", 2024, "2024 Ledger"},
		{"2023 Ledger", 2024, "2023 Ledger"},
		{"  ", 2024, ""},
		{"1800 Old", 2024, "2024 1800 Old"},
	}
	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			if got := yearPrefixedName(tt.base, tt.year); got != tt.want {
				t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tt.base, tt.year, got, tt.want)
			}
		})
	}
}

func TestPeriodYear(t *testing.T) {
	y, err := periodYear("2023-11")
	if err != nil || y != 2023 {
		t.Fatalf("periodYear = %d, %v", y, err)
	}
	if _, err := periodYear("2023/11"); err == nil {
		t.Fatal("expected error for malformed period")
	}
}

func TestFindRow(t *testing.T) {
	values := [][]interface{}{
		{"Date", "Owner", "Category", "Description", "Amount", "ID"},
		{"2024-01-01", "1", "Food", "a", "1.00", "10"},
		{"2024-01-02", "1", "Food", "b", "2.00"},
		{"2024-01-03", "1", "Food", "c", "3.00", " 11 "},
	}
	if got := findRow(values, 10); got != 2 {
		t.Errorf("findRow(10) = %d, want 2", got)
	}
	if got := findRow(values, 11); got != 4 {
		t.Errorf("findRow(11) = %d, want 4", got)
	}
	if got := findRow(values, 99); got != 0 {
		t.Errorf("findRow(99) = %d, want 0", got)
	}
}
