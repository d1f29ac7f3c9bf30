package api

import (
	"database/sql"
	"net/http"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/orato-labs/speechcoach/internal/auth"
	"github.com/orato-labs/speechcoach/internal/httputil"
	"github.com/orato-labs/speechcoach/internal/models"
)

type registerRequest struct {
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	DeviceID *string `json:"device_id,omitempty"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	if req.Username == "" || req.Email == "" {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "username and email are required")
		return
	}
	if err := auth.ValidatePassword(req.Password, 8); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "WEAK_PASSWORD", "password does not meet requirements")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to hash password")
		return
	}

	role := models.RoleUser
	if count, err := s.userRepo.Count(); err == nil && count == 0 {
		role = models.RoleAdmin
	}

	user := &models.User{
		Username:     req.Username,
		Email:        auth.NormalizeEmail(req.Email),
		PasswordHash: hash,
		DeviceID:     req.DeviceID,
		Role:         role,
	}
	if err := s.userRepo.Create(user); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			httputil.WriteError(w, http.StatusConflict, "CONFLICT", "username or email already taken")
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to create user")
		return
	}

	token, err := auth.GenerateToken(s.config.JWTSecret, user)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to issue token")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}

	user, err := s.userRepo.GetByUsername(req.Username)
	if err == sql.ErrNoRows || (err == nil && !auth.CheckPassword(user.PasswordHash, req.Password)) {
		httputil.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid credentials")
		return
	}
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to load user")
		return
	}
	if !user.IsActive {
		httputil.WriteError(w, http.StatusForbidden, "FORBIDDEN", "account disabled")
		return
	}

	token, err := auth.GenerateToken(s.config.JWTSecret, user)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to issue token")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

func (s *Server) getUserID(r *http.Request) uuid.UUID {
	id, _ := uuid.Parse(r.Header.Get("X-User-ID"))
	return id
}

func (s *Server) isAdmin(r *http.Request) bool {
	return r.Header.Get("X-User-Role") == string(models.RoleAdmin)
}
