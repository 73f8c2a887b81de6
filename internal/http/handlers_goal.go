package http

import (
	"net/http"

	"spendwise/internal/core"
	"spendwise/internal/services"
)

type goalRequest struct {
	Name         string     `json:"name"`
	TargetAmount flexString `json:"target_amount"`
}

type goalPatchRequest struct {
	Name         *string     `json:"name"`
	TargetAmount *flexString `json:"target_amount"`
}

type contributionRequest struct {
	Amount flexString `json:"amount"`
	Source string     `json:"source_category"`
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request, owner int64) error {
	dc, err := s.displayContext(r)
	if err != nil {
		return err
	}
	goals, err := s.engine.Goals.ListGoals(r.Context(), owner)
	if err != nil {
		return err
	}
	out := make([]goalView, 0, len(goals))
	for _, g := range goals {
		out = append(out, toGoalView(dc, g))
	}
	writeJSON(w, http.StatusOK, map[string]any{"goals": out})
	return nil
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request, owner int64) error {
	dc, err := s.displayContext(r)
	if err != nil {
		return err
	}
	var req goalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	g, err := s.engine.Goals.CreateGoal(r.Context(), owner, services.GoalInput{
		Name:         req.Name,
		TargetAmount: string(req.TargetAmount),
	})
	if err != nil {
		return err
	}
	s.invalidate(r.Context(), owner)
	writeJSON(w, http.StatusCreated, toGoalView(dc, goalStatusOf(g)))
	return nil
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request, owner int64) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	dc, err := s.displayContext(r)
	if err != nil {
		return err
	}
	var req goalPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	up, err := s.engine.Goals.UpdateGoal(r.Context(), owner, id, core.GoalPatch{
		Name:         req.Name,
		TargetAmount: req.TargetAmount.ptr(),
	})
	if err != nil {
		return err
	}
	s.invalidate(r.Context(), owner)
	writeJSON(w, http.StatusOK, map[string]any{
		"goal":    toGoalView(dc, up.Status),
		"skipped": skippedFields(up.Skipped),
	})
	return nil
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request, owner int64) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	if err := s.engine.Goals.DeleteGoal(r.Context(), owner, id); err != nil {
		return err
	}
	s.invalidate(r.Context(), owner)
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Server) handleContribute(w http.ResponseWriter, r *http.Request, owner int64) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	dc, err := s.displayContext(r)
	if err != nil {
		return err
	}
	var req contributionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	amount, err := core.ParseAmount(string(req.Amount))
	if err != nil {
		return err
	}
	source, err := core.ParseContributionSource(req.Source)
	if err != nil {
		return err
	}
	g, err := s.engine.Goals.Contribute(r.Context(), owner, id, amount, source)
	if err != nil {
		return err
	}
	s.invalidate(r.Context(), owner)
	writeJSON(w, http.StatusOK, toGoalView(dc, goalStatusOf(g)))
	return nil
}
