package http

import (
	"log/slog"
	"net/http"

	"spendwise/internal/log"
)

// handleDashboard serves the read model for the month of ?date=, cached per owner and month.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, owner int64) error {
	dc, err := s.displayContext(r)
	if err != nil {
		return err
	}
	ref, err := s.refDate(r)
	if err != nil {
		return err
	}

	if s.dashboards != nil {
		if d, ok := s.dashboards.Get(owner, ref.Period()); ok {
			slog.DebugContext(r.Context(), "Dashboard cache hit",
				log.FieldComponent, log.ComponentCache,
				log.FieldPeriod, ref.Period().String())
			writeJSON(w, http.StatusOK, toDashboardView(dc, d))
			return nil
		}
	}

	d, err := s.engine.ComputeDashboard(r.Context(), owner, ref)
	if err != nil {
		return err
	}
	if s.dashboards != nil {
		s.dashboards.Set(d)
	}
	writeJSON(w, http.StatusOK, toDashboardView(dc, d))
	return nil
}
