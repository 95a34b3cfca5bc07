package http

import (
	"net/http"
	"slices"

	"tally/internal/core"
)

type groupRequest struct {
	Name    string  `json:"name"`
	Members []int64 `json:"members"`
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())

	groups, err := s.stores.Groups().ByMember(r.Context(), user.ID)
	if err != nil {
		writeStoreError(w, r, err, "groups.by_member")
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())

	var req groupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	g := core.Group{
		Name:    sanitizeInput(req.Name),
		Members: withMember(req.Members, user.ID),
	}
	if err := g.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	saved, err := s.stores.Groups().Append(r.Context(), g)
	if err != nil {
		writeStoreError(w, r, err, "groups.append")
		return
	}

	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleUpdateGroup(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := s.stores.Groups().FindByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, "groups.find")
		return
	}
	if !existing.HasMember(user.ID) {
		writeError(w, http.StatusForbidden, "not a member of this group")
		return
	}

	var req groupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	existing.Name = sanitizeInput(req.Name)
	existing.Members = withMember(req.Members, user.ID)
	if err := existing.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.stores.Groups().Update(r.Context(), existing); err != nil {
		writeStoreError(w, r, err, "groups.update")
		return
	}

	s.invalidateDashboards()
	writeJSON(w, http.StatusOK, existing)
}

func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := s.stores.Groups().FindByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, "groups.find")
		return
	}
	if !existing.HasMember(user.ID) {
		writeError(w, http.StatusForbidden, "not a member of this group")
		return
	}

	if err := s.stores.Groups().Delete(r.Context(), id); err != nil {
		writeStoreError(w, r, err, "groups.delete")
		return
	}

	s.invalidateDashboards()
	w.WriteHeader(http.StatusNoContent)
}

// withMember guarantees the acting user is always part of the member list.
func withMember(members []int64, userID int64) []int64 {
	if slices.Contains(members, userID) {
		return members
	}
	return append(members, userID)
}
