package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"spendwise/internal/backend"
	"spendwise/internal/config"
	"spendwise/internal/core"
	"spendwise/internal/display"
	"spendwise/internal/log"
	"spendwise/internal/repository"
	"spendwise/internal/services"
)

// app holds the state shared by all subcommands.
type app struct {
	out    io.Writer
	logger *log.Logger

	cfg     *config.Config
	store   repository.Store
	cleanup func() error
	engine  *services.Engine

	owner    int64
	date     string
	currency string
	locale   string
	asJSON   bool
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "finctl",
		Short:         "Administer the spendwise accounting engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().Int64Var(&a.owner, "owner", 0, "owner id to act for")
	root.PersistentFlags().StringVar(&a.date, "date", "", "reference date YYYY-MM-DD (default today)")
	root.PersistentFlags().StringVar(&a.currency, "currency", "", "ISO 4217 display currency (default from config)")
	root.PersistentFlags().StringVar(&a.locale, "locale", "", "BCP 47 display locale (default from config)")
	root.PersistentFlags().BoolVar(&a.asJSON, "json", false, "print results as JSON")

	root.AddCommand(
		runRecurrenceCmd(a),
		closeMonthCmd(a),
		contributeCmd(a),
		dashboardCmd(a),
		migrateCmd(a),
	)
	return root
}

func (a *app) config() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a.cfg = cfg
	return cfg, nil
}

// open prepares the engine on first use. A preset store is kept as is.
func (a *app) open(ctx context.Context) error {
	if a.engine != nil {
		return nil
	}
	if a.store == nil {
		cfg, err := a.config()
		if err != nil {
			return err
		}
		bcfg, err := backend.FromAppConfig(cfg)
		if err != nil {
			return err
		}
		res, err := backend.NewFactory(a.logger.Logger).CreateBackend(ctx, bcfg)
		if err != nil {
			return err
		}
		a.store, a.cleanup = res.Store, res.Cleanup
	}
	a.engine = services.NewEngine(services.Deps{Store: a.store})
	return nil
}

func (a *app) close() {
	if a.cleanup == nil {
		return
	}
	if err := a.cleanup(); err != nil {
		a.logger.Error("Failed to close store", log.FieldError, err)
	}
	a.cleanup = nil
}

func (a *app) requireOwner() error {
	if a.owner <= 0 {
		return fmt.Errorf("--owner is required")
	}
	return nil
}

func (a *app) refDate() (core.Date, error) {
	if a.date == "" {
		return core.Today(), nil
	}
	return core.ParseDate(a.date)
}

func (a *app) display() (display.Context, error) {
	code, locale := a.currency, a.locale
	if a.cfg != nil {
		if code == "" {
			code = a.cfg.DefaultCurrency
		}
		if locale == "" {
			locale = a.cfg.DefaultLocale
		}
	}
	return display.NewContext(code, locale)
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
