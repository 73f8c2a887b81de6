package main

import (
	"context"
	"errors"
	"os"

	"spendwise/internal/amqp"
	"spendwise/internal/backend"
	"spendwise/internal/cli"
	"spendwise/internal/log"
	"spendwise/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting ledger-sync")

	cfg := cli.LoadAndValidateConfig(logger)
	if !cfg.AMQPEnabled() {
		logger.Error("ledger-sync requires AMQP_URL")
		os.Exit(1)
	}

	ctx, cancel := cli.GracefulShutdown(logger, nil)
	defer cancel()

	storeRes := cli.OpenStore(ctx, logger, cfg)
	defer func() {
		if err := storeRes.Cleanup(); err != nil {
			logger.Error("Failed to close store", log.FieldError, err)
		}
	}()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	mirror, err := backend.NewFactory(logger.Logger).CreateMirror(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize ledger mirror", log.FieldError, err)
		os.Exit(1)
	}
	if cfg.SheetsEnabled() {
		logger.Info("Mirroring ledger to Google Sheets", log.FieldSheetsRef, cfg.GoogleSpreadsheetID)
	} else {
		logger.Warn("GOOGLE_SPREADSHEET_ID not set, mirroring to memory only")
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	syncWorker := worker.NewSyncWorker(storeRes.Store, mirror)
	logger.Info("Consuming ledger events", "queue", cfg.AMQPQueue, "exchange", cfg.AMQPExchange)
	if err := client.ConsumeWithReconnect(ctx, syncWorker.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Consumer stopped", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("ledger-sync stopped")
}
