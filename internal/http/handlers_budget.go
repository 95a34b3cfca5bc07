package http

import (
	"net/http"
	"time"

	"tally/internal/core"
)

type budgetRequest struct {
	Category  string     `json:"category"`
	Amount    core.Money `json:"amount"`
	Period    string     `json:"period"`
	StartDate core.Date  `json:"start_date"`
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())

	budgets, err := s.stores.Budgets().ByUser(r.Context(), user.ID)
	if err != nil {
		writeStoreError(w, r, err, "budgets.by_user")
		return
	}
	writeJSON(w, http.StatusOK, budgets)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())

	var req budgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	b := core.Budget{
		Category:  sanitizeInput(req.Category),
		Amount:    req.Amount,
		Period:    req.Period,
		StartDate: req.StartDate,
		UserID:    user.ID,
	}
	if b.Period == "" {
		b.Period = core.PeriodMonthly
	}
	if b.StartDate.IsZero() {
		b.StartDate = core.DateOf(time.Now().UTC())
	}
	if err := b.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	saved, err := s.stores.Budgets().Append(r.Context(), b)
	if err != nil {
		writeStoreError(w, r, err, "budgets.append")
		return
	}

	s.invalidateDashboards()
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := s.stores.Budgets().FindByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, "budgets.find")
		return
	}

	var req budgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	existing.Category = sanitizeInput(req.Category)
	existing.Amount = req.Amount
	if req.Period != "" {
		existing.Period = req.Period
	}
	if !req.StartDate.IsZero() {
		existing.StartDate = req.StartDate
	}
	if err := existing.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.stores.Budgets().Update(r.Context(), existing); err != nil {
		writeStoreError(w, r, err, "budgets.update")
		return
	}

	s.invalidateDashboards()
	writeJSON(w, http.StatusOK, existing)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.stores.Budgets().Delete(r.Context(), id); err != nil {
		writeStoreError(w, r, err, "budgets.delete")
		return
	}

	s.invalidateDashboards()
	w.WriteHeader(http.StatusNoContent)
}
