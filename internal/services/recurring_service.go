package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/repository"
)

// RecurringService manages recurring transaction templates.
type RecurringService struct {
	store repository.Store
}

type (
	RecurringInput struct {
		Amount      string
		Category    string
		Description string
		DayOfMonth  int
	}

	RecurringUpdate struct {
		Recurring core.RecurringTransaction
		Skipped   []*core.ValidationError
	}
)

func NewRecurringService(d Deps) *RecurringService {
	return &RecurringService{store: d.Store}
}

// CreateRecurring stores an active template that has never run.
func (s *RecurringService) CreateRecurring(ctx context.Context, owner int64, in RecurringInput) (core.RecurringTransaction, error) {
	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.RecurringTransaction{}, err
	}
	rt, err := s.store.CreateRecurring(ctx, core.RecurringTransaction{
		Owner:       owner,
		Amount:      amount,
		Category:    core.ParseCategory(in.Category),
		Description: strings.TrimSpace(in.Description),
		DayOfMonth:  in.DayOfMonth,
		Active:      true,
	})
	if err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("create recurring: %w", err)
	}
	slog.InfoContext(ctx, "Recurring transaction created",
		log.FieldOwnerID, owner,
		log.FieldRecurringID, rt.ID,
		"day_of_month", rt.DayOfMonth)
	return rt, nil
}

// UpdateRecurring applies a permissive edit; malformed fields are skipped.
// Setting Active to false stops materialization until it is set back.
func (s *RecurringService) UpdateRecurring(ctx context.Context, owner, id int64, patch core.RecurringPatch) (RecurringUpdate, error) {
	var out RecurringUpdate
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		rt, err := tx.GetRecurring(ctx, id)
		if err != nil {
			return err
		}
		if err := core.CheckOwner("recurring", id, rt.Owner, owner); err != nil {
			return err
		}
		out.Skipped = patch.Apply(&rt)
		if err := tx.UpdateRecurring(ctx, rt); err != nil {
			return fmt.Errorf("update recurring %d: %w", id, err)
		}
		out.Recurring = rt
		return nil
	})
	if err != nil {
		return RecurringUpdate{}, err
	}
	return out, nil
}

func (s *RecurringService) DeleteRecurring(ctx context.Context, owner, id int64) error {
	return s.store.WithTx(ctx, func(tx repository.Tx) error {
		rt, err := tx.GetRecurring(ctx, id)
		if err != nil {
			return err
		}
		if err := core.CheckOwner("recurring", id, rt.Owner, owner); err != nil {
			return err
		}
		return tx.DeleteRecurring(ctx, id)
	})
}

func (s *RecurringService) ListRecurring(ctx context.Context, owner int64) ([]core.RecurringTransaction, error) {
	return s.store.ListRecurring(ctx, owner, false)
}
