package http

import (
	"net/http"
	"strings"
)

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())

	unreadOnly := strings.EqualFold(r.URL.Query().Get("unread"), "true")
	notifications, err := s.stores.Notifications().ByUser(r.Context(), user.ID, unreadOnly)
	if err != nil {
		writeStoreError(w, r, err, "notifications.by_user")
		return
	}
	writeJSON(w, http.StatusOK, notifications)
}

func (s *Server) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())

	count, err := s.stores.Notifications().UnreadCount(r.Context(), user.ID)
	if err != nil {
		writeStoreError(w, r, err, "notifications.unread_count")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread": count})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.stores.Notifications().MarkRead(r.Context(), id); err != nil {
		writeStoreError(w, r, err, "notifications.mark_read")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())

	count, err := s.stores.Notifications().MarkAllRead(r.Context(), user.ID)
	if err != nil {
		writeStoreError(w, r, err, "notifications.mark_all_read")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"marked": count})
}
