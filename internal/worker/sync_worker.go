// Package worker mirrors ledger events into the spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"spendwise/internal/amqp"
	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/repository"
	"spendwise/internal/sheets"
)

// SyncWorker handles synchronization of ledger entries to Google Sheets
type SyncWorker struct {
	ledger repository.Ledger
	mirror sheets.Mirror
}

func NewSyncWorker(ledger repository.Ledger, mirror sheets.Mirror) *SyncWorker {
	return &SyncWorker{ledger: ledger, mirror: mirror}
}

// HandleEvent dispatches one ledger event. A returned error requeues the message.
func (w *SyncWorker) HandleEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	switch ev.Type {
	case amqp.EventExpenseCreated:
		return w.handleCreated(ctx, ev)
	case amqp.EventExpenseDeleted:
		return w.handleDeleted(ctx, ev)
	default:
		slog.DebugContext(ctx, "Ignoring event",
			log.FieldEventID, ev.ID,
			log.FieldEventType, ev.Type)
		return nil
	}
}

func (w *SyncWorker) handleCreated(ctx context.Context, ev *amqp.LedgerEvent) error {
	slog.InfoContext(ctx, "Processing sync message",
		log.FieldEventID, ev.ID,
		log.FieldExpenseID, ev.EntityID,
		"source", ev.Source)

	e, err := w.ledger.GetExpense(ctx, ev.EntityID)
	if errors.Is(err, core.ErrNotFound) {
		// Deleted before the mirror caught up; the delete event clears nothing.
		slog.WarnContext(ctx, "Expense no longer exists, skipping sync",
			log.FieldExpenseID, ev.EntityID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get expense from storage: %w", err)
	}
	if e.Owner != ev.OwnerID {
		slog.WarnContext(ctx, "Event owner does not match stored expense, skipping",
			log.FieldExpenseID, e.ID,
			log.FieldOwnerID, ev.OwnerID)
		return nil
	}

	ref, err := w.mirror.Append(ctx, e)
	if err != nil {
		return fmt.Errorf("append to sheets: %w", err)
	}

	slog.InfoContext(ctx, "Successfully synced expense",
		log.FieldExpenseID, e.ID,
		log.FieldSheetsRef, ref,
		log.FieldAmount, e.Amount.StringFixed(2))
	return nil
}

func (w *SyncWorker) handleDeleted(ctx context.Context, ev *amqp.LedgerEvent) error {
	slog.InfoContext(ctx, "Processing delete message",
		log.FieldEventID, ev.ID,
		log.FieldExpenseID, ev.EntityID)

	if err := w.mirror.Remove(ctx, ev.EntityID, ev.Period); err != nil {
		slog.ErrorContext(ctx, "Failed to delete expense from Google Sheets",
			log.FieldExpenseID, ev.EntityID,
			log.FieldError, err)
		return fmt.Errorf("delete expense from sheets: %w", err)
	}
	return nil
}
