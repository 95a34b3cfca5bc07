package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"tally/internal/auth"
	"tally/internal/core"
)

type contextKey string

const userContextKey contextKey = "user"

// requireAuth validates the bearer token and injects the user into context.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		user, err := s.auth.Authenticate(r.Context(), strings.TrimSpace(token))
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrAccountDisabled):
				writeError(w, http.StatusForbidden, "account disabled")
			default:
				writeError(w, http.StatusUnauthorized, "invalid token")
			}
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next(w, r.WithContext(ctx))
	}
}

// requireAdmin restricts a handler to admin users. Must run inside requireAuth.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := userFrom(r.Context())
		if !ok || !user.Admin {
			writeError(w, http.StatusForbidden, "admin only")
			return
		}
		next(w, r)
	}
}

func userFrom(ctx context.Context) (core.User, bool) {
	user, ok := ctx.Value(userContextKey).(core.User)
	return user, ok
}
