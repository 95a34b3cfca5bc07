package http

import (
	"log/slog"
	"net/http"
	"time"

	"tally/internal/core"
)

type recurringRequest struct {
	ItemName      string         `json:"item_name"`
	Category      string         `json:"category"`
	Store         string         `json:"store"`
	Price         core.Money     `json:"price"`
	BankAccountID int64          `json:"bank_account_id"`
	Type          core.Kind      `json:"type"`
	Frequency     core.Frequency `json:"frequency"`
	NextDue       core.Date      `json:"next_date"`
	Active        *bool          `json:"active"`
	GroupID       int64          `json:"group_id"`
}

func (r recurringRequest) toDomain(id, userID int64) core.Recurring {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	kind := r.Type
	if kind == "" {
		kind = core.Expense
	}
	return core.Recurring{
		ID:            id,
		ItemName:      sanitizeInput(r.ItemName),
		Category:      sanitizeInput(r.Category),
		Store:         sanitizeInput(r.Store),
		Price:         r.Price,
		UserID:        userID,
		BankAccountID: r.BankAccountID,
		Kind:          kind,
		Frequency:     r.Frequency,
		NextDue:       r.NextDue,
		Active:        active,
		GroupID:       r.GroupID,
	}
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	defs, err := s.stores.Recurring().All(r.Context())
	if err != nil {
		writeStoreError(w, r, err, "recurring.all")
		return
	}
	writeJSON(w, http.StatusOK, defs)
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())

	var req recurringRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	def := req.toDomain(0, user.ID)
	if err := def.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	saved, err := s.stores.Recurring().Append(r.Context(), def)
	if err != nil {
		writeStoreError(w, r, err, "recurring.append")
		return
	}

	slog.InfoContext(r.Context(), "Recurring definition created",
		"recurring_id", saved.ID,
		"item_name", saved.ItemName,
		"frequency", saved.Frequency,
		"next_due", saved.NextDue.String())

	s.invalidateDashboards()
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleUpdateRecurring(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := s.stores.Recurring().FindByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, "recurring.find")
		return
	}

	var req recurringRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	def := req.toDomain(existing.ID, existing.UserID)
	if err := def.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.stores.Recurring().Update(r.Context(), def); err != nil {
		writeStoreError(w, r, err, "recurring.update")
		return
	}

	s.invalidateDashboards()
	writeJSON(w, http.StatusOK, def)
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.stores.Recurring().Delete(r.Context(), id); err != nil {
		writeStoreError(w, r, err, "recurring.delete")
		return
	}

	s.invalidateDashboards()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleRecurring(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	active, err := s.stores.Recurring().Toggle(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, "recurring.toggle")
		return
	}

	s.invalidateDashboards()
	writeJSON(w, http.StatusOK, map[string]bool{"active": active})
}

// handleProcessRecurring materializes every due occurrence immediately
// instead of waiting for the worker's next tick.
func (s *Server) handleProcessRecurring(w http.ResponseWriter, r *http.Request) {
	count, err := s.processor.ProcessDue(r.Context(), time.Now())
	if err != nil {
		slog.ErrorContext(r.Context(), "Recurring processing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "processing failed")
		return
	}

	if s.metrics != nil {
		s.metrics.RecurringProcessed.Add(float64(count))
	}
	s.invalidateDashboards()
	writeJSON(w, http.StatusOK, map[string]int{"created": count})
}
