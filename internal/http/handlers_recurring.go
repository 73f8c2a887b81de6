package http

import (
	"net/http"

	"spendwise/internal/core"
	"spendwise/internal/services"
)

type recurringRequest struct {
	Amount      flexString `json:"amount"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	DayOfMonth  int        `json:"day_of_month"`
}

type recurringPatchRequest struct {
	Amount      *flexString `json:"amount"`
	Description *string     `json:"description"`
	DayOfMonth  *flexString `json:"day_of_month"`
	Active      *bool       `json:"active"`
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request, owner int64) error {
	dc, err := s.displayContext(r)
	if err != nil {
		return err
	}
	items, err := s.engine.Recurring.ListRecurring(r.Context(), owner)
	if err != nil {
		return err
	}
	out := make([]recurringView, 0, len(items))
	for _, rt := range items {
		out = append(out, toRecurringView(dc, rt))
	}
	writeJSON(w, http.StatusOK, map[string]any{"recurring": out})
	return nil
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request, owner int64) error {
	dc, err := s.displayContext(r)
	if err != nil {
		return err
	}
	var req recurringRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	rt, err := s.engine.Recurring.CreateRecurring(r.Context(), owner, services.RecurringInput{
		Amount:      string(req.Amount),
		Category:    req.Category,
		Description: req.Description,
		DayOfMonth:  req.DayOfMonth,
	})
	if err != nil {
		return err
	}
	s.invalidate(r.Context(), owner)
	writeJSON(w, http.StatusCreated, toRecurringView(dc, rt))
	return nil
}

func (s *Server) handleUpdateRecurring(w http.ResponseWriter, r *http.Request, owner int64) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	dc, err := s.displayContext(r)
	if err != nil {
		return err
	}
	var req recurringPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	up, err := s.engine.Recurring.UpdateRecurring(r.Context(), owner, id, core.RecurringPatch{
		Amount:      req.Amount.ptr(),
		Description: req.Description,
		DayOfMonth:  req.DayOfMonth.ptr(),
		Active:      req.Active,
	})
	if err != nil {
		return err
	}
	s.invalidate(r.Context(), owner)
	writeJSON(w, http.StatusOK, map[string]any{
		"recurring": toRecurringView(dc, up.Recurring),
		"skipped":   skippedFields(up.Skipped),
	})
	return nil
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request, owner int64) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	if err := s.engine.Recurring.DeleteRecurring(r.Context(), owner, id); err != nil {
		return err
	}
	s.invalidate(r.Context(), owner)
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// handleRunRecurrence materializes the owner's templates due on ?date=.
func (s *Server) handleRunRecurrence(w http.ResponseWriter, r *http.Request, owner int64) error {
	ref, err := s.refDate(r)
	if err != nil {
		return err
	}
	n, err := s.engine.RunRecurrence(r.Context(), owner, ref)
	if err != nil {
		return err
	}
	if n > 0 {
		s.invalidate(r.Context(), owner)
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": ref.String(), "created": n})
	return nil
}
