package main

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"spendwise/internal/cli"
	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentRecurring)
	logger.Info("Starting recurring-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := cli.GracefulShutdown(logger, nil)
	defer cancel()

	storeRes := cli.OpenStore(ctx, logger, cfg)
	defer func() {
		if err := storeRes.Cleanup(); err != nil {
			logger.Error("Failed to close store", log.FieldError, err)
		}
	}()

	deps := services.Deps{Store: storeRes.Store}
	if pub := cli.OpenPublisher(logger, cfg); pub != nil {
		defer pub.Close()
		deps.Publisher = pub
	}
	processor := services.NewRecurringProcessor(deps)

	run := func(now time.Time) {
		runCtx, runCancel := context.WithTimeout(ctx, 5*time.Minute)
		defer runCancel()

		today := core.DateOf(now)
		count, err := processor.RunAll(runCtx, today)
		if err != nil {
			logger.Error("Recurring processing failed",
				log.FieldError, err,
				log.FieldOperation, log.OpRunRecurrence,
				"expenses_created", count)
			return
		}
		logger.Info("Recurring processing complete",
			log.FieldOperation, log.OpRunRecurrence,
			"date", today.String(),
			"expenses_created", count)
	}

	// Run once at startup, then on schedule.
	run(time.Now())

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(cfg.RecurringSchedule, func() { run(time.Now()) }); err != nil {
		logger.Error("Invalid recurring schedule", log.FieldError, err, "schedule", cfg.RecurringSchedule)
		return
	}
	c.Start()
	logger.Info("Recurring processor scheduled", "schedule", cfg.RecurringSchedule, "backend", cfg.DataBackend)

	<-ctx.Done()
	stopped := c.Stop()
	select {
	case <-stopped.Done():
	case <-time.After(30 * time.Second):
		logger.Warn("Timed out waiting for running job")
	}
	logger.Info("recurring-worker stopped")
}
