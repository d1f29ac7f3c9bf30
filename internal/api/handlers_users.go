package api

import (
	"database/sql"
	"net/http"

	"github.com/google/uuid"

	"github.com/orato-labs/speechcoach/internal/httputil"
	"github.com/orato-labs/speechcoach/internal/models"
)

// ingestAuth lets a registered transcription device push segments with its
// device id alone; everything else goes through the normal token check.
func (s *Server) ingestAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deviceID := r.Header.Get("X-Device-ID")
		if deviceID == "" || r.Header.Get("Authorization") != "" {
			s.authMiddleware(next, models.RoleUser)(w, r)
			return
		}

		user, err := s.userRepo.GetByDeviceID(deviceID)
		if err == sql.ErrNoRows {
			httputil.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "unknown device")
			return
		}
		if err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to resolve device")
			return
		}
		if !user.IsActive {
			httputil.WriteError(w, http.StatusForbidden, "FORBIDDEN", "account disabled")
			return
		}

		r.Header.Set("X-User-ID", user.ID.String())
		r.Header.Set("X-User-Role", string(user.Role))
		next(w, r)
	}
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.userRepo.GetByID(s.getUserID(r))
	if err == sql.ErrNoRows {
		httputil.WriteError(w, http.StatusNotFound, "NOT_FOUND", "user not found")
		return
	}
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to load user")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.userRepo.ListActive()
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to list users")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

// handleSetUserActive disables or re-enables an account. Disabled users keep
// their history but can no longer log in or push segments.
func (s *Server) handleSetUserActive(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid user id")
		return
	}
	var req setActiveRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	if err := s.userRepo.SetActive(id, req.Active); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to update user")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user_id": id,
		"active":  req.Active,
	})
}
