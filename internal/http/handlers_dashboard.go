package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// handleDashboard serves the aggregated dashboard, cached per viewer and
// group filter. Writes invalidate the whole cache.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())

	groupID, err := queryInt64(r, "group_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := fmt.Sprintf("dashboard:%d:%d", user.ID, groupID)
	if cached, ok := s.dashCache.Get(key); ok {
		if s.metrics != nil {
			s.metrics.CacheHits.Inc()
		}
		writeJSON(w, http.StatusOK, cached)
		return
	}
	if s.metrics != nil {
		s.metrics.CacheMisses.Inc()
	}

	dash, err := s.analytics.Dashboard(r.Context(), user.ID, groupID, time.Now())
	if err != nil {
		slog.ErrorContext(r.Context(), "Dashboard aggregation failed", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.dashCache.Set(key, dash)
	writeJSON(w, http.StatusOK, dash)
}
