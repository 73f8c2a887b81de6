package http

import (
	"net/http"

	"spendwise/internal/core"
	"spendwise/internal/services"
)

type budgetRequest struct {
	Category string     `json:"category"`
	Amount   flexString `json:"amount"`
	Rollover bool       `json:"rollover"`
}

type budgetPatchRequest struct {
	Amount   *flexString `json:"amount"`
	Rollover *bool       `json:"rollover"`
}

type rolloverView struct {
	BudgetID int64  `json:"budget_id"`
	Category string `json:"category"`
	Unused   money  `json:"unused"`
	Balance  money  `json:"rollover_balance"`
}

// handleListBudgets evaluates every budget against the month of ?date=.
func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request, owner int64) error {
	dc, err := s.displayContext(r)
	if err != nil {
		return err
	}
	ref, err := s.refDate(r)
	if err != nil {
		return err
	}
	budgets, err := s.engine.Budgets.ListBudgets(r.Context(), owner)
	if err != nil {
		return err
	}
	out := make([]budgetView, 0, len(budgets))
	for _, b := range budgets {
		st, err := s.engine.Budgets.Status(r.Context(), owner, b.ID, ref)
		if err != nil {
			return err
		}
		out = append(out, toBudgetView(dc, st))
	}
	writeJSON(w, http.StatusOK, map[string]any{"period": ref.Period().String(), "budgets": out})
	return nil
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request, owner int64) error {
	dc, err := s.displayContext(r)
	if err != nil {
		return err
	}
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	b, err := s.engine.Budgets.CreateBudget(r.Context(), owner, services.BudgetInput{
		Category: req.Category,
		Amount:   string(req.Amount),
		Rollover: req.Rollover,
	})
	if err != nil {
		return err
	}
	s.invalidate(r.Context(), owner)
	st, err := s.engine.Budgets.Status(r.Context(), owner, b.ID, core.DateOf(s.now()))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, toBudgetView(dc, st))
	return nil
}

// handleUpdateBudget applies a partial edit; malformed fields come back in "skipped".
func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request, owner int64) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	dc, err := s.displayContext(r)
	if err != nil {
		return err
	}
	ref, err := s.refDate(r)
	if err != nil {
		return err
	}
	var req budgetPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	up, err := s.engine.Budgets.UpdateBudget(r.Context(), owner, id, core.BudgetPatch{
		Amount:   req.Amount.ptr(),
		Rollover: req.Rollover,
	}, ref)
	if err != nil {
		return err
	}
	s.invalidate(r.Context(), owner)
	writeJSON(w, http.StatusOK, map[string]any{
		"budget":  toBudgetView(dc, up.Status),
		"skipped": skippedFields(up.Skipped),
	})
	return nil
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request, owner int64) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	if err := s.engine.Budgets.DeleteBudget(r.Context(), owner, id); err != nil {
		return err
	}
	s.invalidate(r.Context(), owner)
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// handleCloseMonth rolls unused amounts of the month containing ?date= forward.
// Closing the same month twice counts it twice.
func (s *Server) handleCloseMonth(w http.ResponseWriter, r *http.Request, owner int64) error {
	dc, err := s.displayContext(r)
	if err != nil {
		return err
	}
	ref, err := s.refDate(r)
	if err != nil {
		return err
	}
	res, err := s.engine.CloseMonth(r.Context(), owner, ref)
	if err != nil {
		return err
	}
	s.invalidate(r.Context(), owner)

	rolled := make([]rolloverView, 0, len(res.Rolled))
	for _, e := range res.Rolled {
		rolled = append(rolled, rolloverView{
			BudgetID: e.BudgetID,
			Category: e.Category.String(),
			Unused:   newMoney(dc, e.Unused),
			Balance:  newMoney(dc, e.Balance),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"period":  res.Period.String(),
		"checked": res.Checked,
		"rolled":  rolled,
	})
	return nil
}
