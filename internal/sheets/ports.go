// Package sheets defines the spreadsheet mirror of the ledger.
package sheets

import (
	"context"

	"spendwise/internal/core"
)

// Ports for outbound adapters.
type (
	// ExpenseMirror appends committed ledger entries to an external sheet.
	ExpenseMirror interface {
		Append(ctx context.Context, e core.ExpenseRecord) (rowRef string, err error)
	}

	// ExpenseRemover clears the mirrored row of a deleted entry. period is the
	// YYYY-MM month the entry was dated in. Removing an unknown id is not an error.
	ExpenseRemover interface {
		Remove(ctx context.Context, id int64, period string) error
	}

	Mirror interface {
		ExpenseMirror
		ExpenseRemover
	}
)
