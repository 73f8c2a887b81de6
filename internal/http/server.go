// Package http exposes the accounting engine as a JSON API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"spendwise/internal/cache"
	"spendwise/internal/display"
	"spendwise/internal/log"
	"spendwise/internal/metrics"
	"spendwise/internal/middleware/ratelimit"
	"spendwise/internal/middleware/security"
	"spendwise/internal/middleware/trace"
	"spendwise/internal/repository"
	"spendwise/internal/services"
)

// Options wires the server. Dashboards, Metrics, Limiter and Logger may be nil.
type Options struct {
	Addr       string
	Engine     *services.Engine
	Store      repository.Store
	Dashboards *cache.Dashboards
	Metrics    *metrics.Registry
	Limiter    *ratelimit.Limiter
	IPResolver *security.ClientIPResolver
	Logger     *log.Logger

	DefaultCurrency string
	DefaultLocale   string

	// Now overrides the clock used for default reference dates.
	Now func() time.Time
}

type Server struct {
	http.Server

	engine     *services.Engine
	store      repository.Store
	dashboards *cache.Dashboards
	metrics    *metrics.Registry

	defaultCurrency string
	defaultLocale   string
	now             func() time.Time
	started         time.Time
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options) *Server {
	s := &Server{
		engine:          opts.Engine,
		store:           opts.Store,
		dashboards:      opts.Dashboards,
		metrics:         opts.Metrics,
		defaultCurrency: opts.DefaultCurrency,
		defaultLocale:   opts.DefaultLocale,
		now:             opts.Now,
	}
	if s.defaultCurrency == "" {
		s.defaultCurrency = display.DefaultCurrency
	}
	if s.defaultLocale == "" {
		s.defaultLocale = display.DefaultLocale
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.started = s.now()

	resolver := opts.IPResolver
	if resolver == nil {
		resolver = security.NewClientIPResolver()
	}

	api := http.NewServeMux()
	api.HandleFunc("GET /api/dashboard", s.owned(s.handleDashboard))

	api.HandleFunc("GET /api/expenses", s.owned(s.handleListExpenses))
	api.HandleFunc("POST /api/expenses", s.owned(s.handleCreateExpense))
	api.HandleFunc("PUT /api/expenses/{id}", s.owned(s.handleUpdateExpense))
	api.HandleFunc("DELETE /api/expenses/{id}", s.owned(s.handleDeleteExpense))

	api.HandleFunc("GET /api/budgets", s.owned(s.handleListBudgets))
	api.HandleFunc("POST /api/budgets", s.owned(s.handleCreateBudget))
	api.HandleFunc("PATCH /api/budgets/{id}", s.owned(s.handleUpdateBudget))
	api.HandleFunc("DELETE /api/budgets/{id}", s.owned(s.handleDeleteBudget))
	api.HandleFunc("POST /api/months/close", s.owned(s.handleCloseMonth))

	api.HandleFunc("GET /api/recurring", s.owned(s.handleListRecurring))
	api.HandleFunc("POST /api/recurring", s.owned(s.handleCreateRecurring))
	api.HandleFunc("POST /api/recurring/run", s.owned(s.handleRunRecurrence))
	api.HandleFunc("PATCH /api/recurring/{id}", s.owned(s.handleUpdateRecurring))
	api.HandleFunc("DELETE /api/recurring/{id}", s.owned(s.handleDeleteRecurring))

	api.HandleFunc("GET /api/goals", s.owned(s.handleListGoals))
	api.HandleFunc("POST /api/goals", s.owned(s.handleCreateGoal))
	api.HandleFunc("PATCH /api/goals/{id}", s.owned(s.handleUpdateGoal))
	api.HandleFunc("DELETE /api/goals/{id}", s.owned(s.handleDeleteGoal))
	api.HandleFunc("POST /api/goals/{id}/contributions", s.owned(s.handleContribute))

	var apiHandler http.Handler = api
	if opts.Limiter != nil {
		apiHandler = opts.Limiter.Middleware(resolver.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
			slog.WarnContext(r.Context(), "Rate limit exceeded",
				log.FieldComponent, log.ComponentRateLimit,
				log.FieldClientIP, resolver.ExtractClientIP(r))
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded"})
		})(api)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", s.metrics.Handler())
	mux.Handle("/api/", apiHandler)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(opts.Logger, opts.Metrics, resolver.ExtractClientIP)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           tracer.Middleware(headers.Middleware(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// ownerHandler handles a request on behalf of the owner named in X-Owner-ID.
type ownerHandler func(w http.ResponseWriter, r *http.Request, owner int64) error

func (s *Server) owned(h ownerHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := ownerID(r)
		if err == nil {
			ctx := log.IntoContext(r.Context(), log.FromContext(r.Context()).With(log.FieldOwnerID, owner))
			r = r.WithContext(ctx)
			err = h(w, r, owner)
		}
		if err != nil {
			writeError(w, r, err)
		}
	}
}

// invalidate drops cached dashboards after a write by owner.
func (s *Server) invalidate(ctx context.Context, owner int64) {
	if s.dashboards == nil {
		return
	}
	if n := s.dashboards.Invalidate(owner); n > 0 {
		slog.DebugContext(ctx, "Dashboard cache invalidated",
			log.FieldComponent, log.ComponentCache,
			log.FieldOwnerID, owner,
			"entries", n)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"uptime":    s.now().Sub(s.started).Round(time.Second).String(),
	})
}

// handleReady verifies the store answers within a short deadline.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{"store": "ok"}
	status, code := "ready", http.StatusOK
	if s.store == nil {
		checks["store"] = "failed: not configured"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else if err := s.store.Ping(ctx); err != nil {
		slog.WarnContext(ctx, "Readiness check failed", log.FieldError, err)
		checks["store"] = "failed: " + err.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{"status": status, "checks": checks})
}
