package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"spendwise/internal/cache"
	"spendwise/internal/cli"
	apphttp "spendwise/internal/http"
	"spendwise/internal/log"
	"spendwise/internal/metrics"
	"spendwise/internal/middleware/ratelimit"
	"spendwise/internal/middleware/security"
	"spendwise/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentHTTP)
	logger.Info("Starting spendwise server")

	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := cli.GracefulShutdown(logger, nil)
	defer cancel()

	storeRes := cli.OpenStore(ctx, logger, cfg)
	defer func() {
		if err := storeRes.Cleanup(); err != nil {
			logger.Error("Failed to close store", log.FieldError, err)
		}
	}()

	reg := metrics.New()
	deps := services.Deps{Store: storeRes.Store, Metrics: reg}
	if pub := cli.OpenPublisher(logger, cfg); pub != nil {
		defer pub.Close()
		deps.Publisher = pub
	}
	engine := services.NewEngine(deps)

	dashboards := cache.NewDashboards(cfg.CacheSize, cfg.CacheTTL)
	caches := cache.NewManager()
	caches.Register(dashboards)

	limiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute})

	srv := apphttp.NewServer(apphttp.Options{
		Addr:            ":" + cfg.Port,
		Engine:          engine,
		Store:           storeRes.Store,
		Dashboards:      dashboards,
		Metrics:         reg,
		Limiter:         limiter,
		IPResolver:      security.NewClientIPResolver(),
		Logger:          logger,
		DefaultCurrency: cfg.DefaultCurrency,
		DefaultLocale:   cfg.DefaultLocale,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"currency", cfg.DefaultCurrency,
			"locale", cfg.DefaultLocale)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		caches.Run(gctx, cfg.CacheTTL)
		return nil
	})
	g.Go(func() error {
		limiter.Run(gctx, 5*time.Minute)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		logger.Info("Shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
