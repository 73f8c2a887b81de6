package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"spendwise/internal/amqp"
	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/metrics"
	"spendwise/internal/repository"
)

// GoalTracker accumulates contributions toward savings targets.
type GoalTracker struct {
	store   repository.Store
	events  events
	metrics *metrics.Registry
}

type (
	GoalInput struct {
		Name         string
		TargetAmount string
	}

	GoalUpdate struct {
		Status  core.GoalStatus
		Skipped []*core.ValidationError
	}
)

func NewGoalTracker(d Deps) *GoalTracker {
	return &GoalTracker{
		store:   d.Store,
		events:  events{pub: d.Publisher, metrics: d.Metrics},
		metrics: d.Metrics,
	}
}

// ProgressPercent is current/target as a percentage capped at 100.
func ProgressPercent(g core.SavingsGoal) decimal.Decimal {
	return core.ClampedPercent(g.CurrentAmount, g.TargetAmount)
}

func goalStatus(g core.SavingsGoal) core.GoalStatus {
	return core.GoalStatus{Goal: g, Percent: ProgressPercent(g)}
}

// Contribute adds amount to the goal. The current amount may exceed the target.
func (t *GoalTracker) Contribute(ctx context.Context, owner, goalID int64, amount decimal.Decimal, source core.ContributionSource) (g core.SavingsGoal, err error) {
	start := time.Now()
	defer func() { t.metrics.ObserveOperation(log.OpContribute, start, err) }()

	amount = amount.Round(2)
	if !amount.IsPositive() {
		return core.SavingsGoal{}, core.ErrNonPositiveAmount
	}
	if source == "" {
		source = core.SourceOther
	}

	err = t.store.WithTx(ctx, func(tx repository.Tx) error {
		var err error
		g, err = tx.GetGoal(ctx, goalID)
		if err != nil {
			return err
		}
		if err := core.CheckOwner("goal", goalID, g.Owner, owner); err != nil {
			return err
		}
		g.CurrentAmount = g.CurrentAmount.Add(amount)
		return tx.UpdateGoal(ctx, g)
	})
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("contribute to goal %d: %w", goalID, err)
	}

	t.metrics.IncContribution(string(source))
	slog.InfoContext(ctx, "Goal contribution recorded",
		log.FieldOwnerID, owner,
		log.FieldGoalID, goalID,
		log.FieldAmount, amount.StringFixed(2),
		"source", source)

	ev := amqp.NewLedgerEvent(amqp.EventGoalContributed, owner, goalID)
	ev.Amount = amount.StringFixed(2)
	ev.Source = string(source)
	t.events.emit(ctx, ev)

	return g, nil
}

func (t *GoalTracker) CreateGoal(ctx context.Context, owner int64, in GoalInput) (core.SavingsGoal, error) {
	target, err := core.ParsePositiveAmount(in.TargetAmount)
	if err != nil {
		return core.SavingsGoal{}, &core.ValidationError{Field: "target_amount", Reason: "must be greater than zero"}
	}
	g, err := t.store.CreateGoal(ctx, core.SavingsGoal{
		Owner:         owner,
		Name:          strings.TrimSpace(in.Name),
		TargetAmount:  target,
		CurrentAmount: decimal.Zero,
	})
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("create goal: %w", err)
	}
	slog.InfoContext(ctx, "Savings goal created", log.FieldOwnerID, owner, log.FieldGoalID, g.ID)
	return g, nil
}

// UpdateGoal applies a permissive edit of name and target.
func (t *GoalTracker) UpdateGoal(ctx context.Context, owner, id int64, patch core.GoalPatch) (GoalUpdate, error) {
	var out GoalUpdate
	err := t.store.WithTx(ctx, func(tx repository.Tx) error {
		g, err := tx.GetGoal(ctx, id)
		if err != nil {
			return err
		}
		if err := core.CheckOwner("goal", id, g.Owner, owner); err != nil {
			return err
		}
		out.Skipped = patch.Apply(&g)
		if err := tx.UpdateGoal(ctx, g); err != nil {
			return fmt.Errorf("update goal %d: %w", id, err)
		}
		out.Status = goalStatus(g)
		return nil
	})
	if err != nil {
		return GoalUpdate{}, err
	}
	return out, nil
}

func (t *GoalTracker) DeleteGoal(ctx context.Context, owner, id int64) error {
	return t.store.WithTx(ctx, func(tx repository.Tx) error {
		g, err := tx.GetGoal(ctx, id)
		if err != nil {
			return err
		}
		if err := core.CheckOwner("goal", id, g.Owner, owner); err != nil {
			return err
		}
		return tx.DeleteGoal(ctx, id)
	})
}

func (t *GoalTracker) ListGoals(ctx context.Context, owner int64) ([]core.GoalStatus, error) {
	goals, err := t.store.ListGoals(ctx, owner)
	if err != nil {
		return nil, err
	}
	out := make([]core.GoalStatus, len(goals))
	for i, g := range goals {
		out[i] = goalStatus(g)
	}
	return out, nil
}
