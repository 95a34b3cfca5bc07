package http

import (
	"errors"
	"log/slog"
	"net/http"

	"tally/internal/auth"
	"tally/internal/core"
)

type registerRequest struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token string    `json:"token"`
	User  core.User `json:"user"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := s.auth.Register(r.Context(), sanitizeInput(req.Username), sanitizeInput(req.FullName), sanitizeInput(req.Email), req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUsernameTaken), errors.Is(err, auth.ErrEmailTaken):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, auth.ErrWeakPassword):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			slog.ErrorContext(r.Context(), "Registration failed", "error", err)
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	slog.InfoContext(r.Context(), "User registered", "user_id", user.ID, "username", user.Username)
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, token, err := s.auth.Login(r.Context(), sanitizeInput(req.Username), req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrAccountDisabled):
			writeError(w, http.StatusForbidden, "account disabled")
		default:
			writeError(w, http.StatusUnauthorized, "invalid credentials")
		}
		return
	}

	slog.InfoContext(r.Context(), "User logged in", "user_id", user.ID, "username", user.Username)
	writeJSON(w, http.StatusOK, sessionResponse{Token: token, User: user})
}

type changePasswordRequest struct {
	Password string `json:"password"`
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.auth.ChangePassword(r.Context(), user.ID, req.Password); err != nil {
		if errors.Is(err, auth.ErrWeakPassword) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeStoreError(w, r, err, "users.change_password")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "password changed"})
}

type forgotPasswordRequest struct {
	Username string `json:"username"`
}

// handleForgotPassword always answers the same way so usernames cannot
// be enumerated. When the account exists a code is recorded and mailed.
func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, code, err := s.auth.CreateResetCode(r.Context(), sanitizeInput(req.Username))
	switch {
	case err == nil:
		s.notifications.PasswordResetCode(r.Context(), user.ID, code)
	case errors.Is(err, core.ErrNotFound):
		// Fall through to the generic answer.
	default:
		writeStoreError(w, r, err, "users.forgot_password")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "if the username exists, a reset code has been sent",
	})
}

type resetPasswordRequest struct {
	Username string `json:"username"`
	Code     string `json:"code"`
	Password string `json:"password"`
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := s.auth.ResetPassword(r.Context(), sanitizeInput(req.Username), req.Code, req.Password)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "password reset"})
	case errors.Is(err, auth.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrInvalidResetCode):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeStoreError(w, r, err, "users.reset_password")
	}
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.stores.Users().All(r.Context())
	if err != nil {
		writeStoreError(w, r, err, "users.all")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

type updateUserRequest struct {
	Active *bool `json:"active"`
	Admin  *bool `json:"is_admin"`
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := s.stores.Users().FindByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, "users.find")
		return
	}

	if req.Active != nil {
		user.Active = *req.Active
	}
	if req.Admin != nil {
		user.Admin = *req.Admin
	}

	if err := s.stores.Users().Update(r.Context(), user); err != nil {
		writeStoreError(w, r, err, "users.update")
		return
	}

	writeJSON(w, http.StatusOK, user)
}
