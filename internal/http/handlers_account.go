package http

import (
	"net/http"

	"tally/internal/core"
)

type accountRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())

	accounts, err := s.stores.Accounts().ByUser(r.Context(), user.ID)
	if err != nil {
		writeStoreError(w, r, err, "accounts.by_user")
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())

	var req accountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	name := sanitizeInput(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "account name is required")
		return
	}

	saved, err := s.stores.Accounts().Append(r.Context(), core.Account{
		Name:   name,
		Type:   sanitizeInput(req.Type),
		UserID: user.ID,
	})
	if err != nil {
		writeStoreError(w, r, err, "accounts.append")
		return
	}

	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := s.stores.Accounts().FindByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, "accounts.find")
		return
	}
	if existing.UserID != user.ID && !user.Admin {
		writeError(w, http.StatusForbidden, "not your account")
		return
	}

	var req accountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	name := sanitizeInput(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "account name is required")
		return
	}
	existing.Name = name
	existing.Type = sanitizeInput(req.Type)

	if err := s.stores.Accounts().Update(r.Context(), existing); err != nil {
		writeStoreError(w, r, err, "accounts.update")
		return
	}

	writeJSON(w, http.StatusOK, existing)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := s.stores.Accounts().FindByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, "accounts.find")
		return
	}
	if existing.UserID != user.ID && !user.Admin {
		writeError(w, http.StatusForbidden, "not your account")
		return
	}

	if err := s.stores.Accounts().Delete(r.Context(), id); err != nil {
		writeStoreError(w, r, err, "accounts.delete")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
