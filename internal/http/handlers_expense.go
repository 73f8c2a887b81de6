package http

import (
	"net/http"

	"spendwise/internal/services"
)

type expenseRequest struct {
	Amount      flexString `json:"amount"`
	Category    string     `json:"category"`
	Date        string     `json:"date"`
	Description string     `json:"description"`
}

func (req expenseRequest) input() services.ExpenseInput {
	return services.ExpenseInput{
		Amount:      string(req.Amount),
		Category:    req.Category,
		Date:        req.Date,
		Description: req.Description,
	}
}

// handleListExpenses filters by ?category=&from=&to=; category "all" means none.
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request, owner int64) error {
	dc, err := s.displayContext(r)
	if err != nil {
		return err
	}
	q := r.URL.Query()
	f, err := services.ParseFilter(q.Get("category"), q.Get("from"), q.Get("to"))
	if err != nil {
		return err
	}
	items, err := s.engine.Ledger.Query(r.Context(), owner, f)
	if err != nil {
		return err
	}
	out := make([]expenseView, 0, len(items))
	for _, e := range items {
		out = append(out, toExpenseView(dc, e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"expenses": out})
	return nil
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request, owner int64) error {
	dc, err := s.displayContext(r)
	if err != nil {
		return err
	}
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	e, err := s.engine.Ledger.Create(r.Context(), owner, req.input())
	if err != nil {
		return err
	}
	s.invalidate(r.Context(), owner)
	writeJSON(w, http.StatusCreated, toExpenseView(dc, e))
	return nil
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request, owner int64) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	dc, err := s.displayContext(r)
	if err != nil {
		return err
	}
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	e, err := s.engine.Ledger.Update(r.Context(), owner, id, req.input())
	if err != nil {
		return err
	}
	s.invalidate(r.Context(), owner)
	writeJSON(w, http.StatusOK, toExpenseView(dc, e))
	return nil
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request, owner int64) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	if err := s.engine.Ledger.Delete(r.Context(), owner, id); err != nil {
		return err
	}
	s.invalidate(r.Context(), owner)
	w.WriteHeader(http.StatusNoContent)
	return nil
}
