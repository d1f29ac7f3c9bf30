package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/orato-labs/speechcoach/internal/httputil"
	"github.com/orato-labs/speechcoach/internal/jobs"
)

// handleListBufferedSessions reports the sessions currently held in memory.
// Regular users see only their own; admins see everything.
func (s *Server) handleListBufferedSessions(w http.ResponseWriter, r *http.Request) {
	infos := s.buf.Sessions()
	if !s.isAdmin(r) {
		userID := s.getUserID(r)
		filtered := infos[:0]
		for _, info := range infos {
			if info.UserID == userID {
				filtered = append(filtered, info)
			}
		}
		infos = filtered
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"sessions": infos})
}

// handleFinalizeSession forces an explicit end to a buffered session instead
// of waiting for the silence timeout. Finalizing an unknown or already
// finalized key is a clean no-op.
func (s *Server) handleFinalizeSession(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if !s.isAdmin(r) {
		userID := s.getUserID(r)
		for _, info := range s.buf.Sessions() {
			if info.SessionKey == key && info.UserID != userID {
				httputil.WriteError(w, http.StatusForbidden, "FORBIDDEN", "cannot finalize another user's session")
				return
			}
		}
	}
	fin, ok := s.buf.Finalize(key)
	if !ok {
		httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"session_key": key,
			"finalized":   false,
		})
		return
	}

	payload := jobs.AnalyzePayload{
		SessionKey:      fin.SessionKey,
		UserID:          fin.UserID.String(),
		StartedAt:       fin.StartedAt,
		EndedAt:         fin.EndedAt,
		DurationSeconds: fin.DurationSeconds,
		Segments:        fin.Segments,
	}
	if _, err := s.jobQueue.Enqueue(jobs.TaskAnalyzeSession, payload); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to queue analysis")
		return
	}
	s.wsHub.BroadcastUser(fin.UserID, "session:finalized", map[string]interface{}{
		"session_key": fin.SessionKey,
		"user_id":     fin.UserID,
		"segments":    len(fin.Segments),
	})
	httputil.WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"session_key": key,
		"finalized":   true,
		"segments":    len(fin.Segments),
		"duration":    fin.DurationSeconds,
	})
}

// handleGetSession returns a persisted session with its segments and, when
// the analysis has completed, the result.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid session id")
		return
	}

	record, err := s.sessionRepo.GetByID(id)
	if err == sql.ErrNoRows {
		httputil.WriteError(w, http.StatusNotFound, "NOT_FOUND", "session not found")
		return
	}
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to load session")
		return
	}
	if record.UserID != s.getUserID(r) && !s.isAdmin(r) {
		httputil.WriteError(w, http.StatusForbidden, "FORBIDDEN", "cannot read another user's session")
		return
	}

	segments, err := s.sessionRepo.GetSegments(id)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to load segments")
		return
	}

	resp := map[string]interface{}{
		"session":  record,
		"segments": segments,
	}
	if result, err := s.analysisRepo.GetBySession(id); err == nil {
		resp["analysis"] = result
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// handleTriggerRollup queues the daily rollup for a specific date, for
// re-runs and backfills.
func (s *Server) handleTriggerRollup(w http.ResponseWriter, r *http.Request) {
	date := r.PathValue("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "date must be YYYY-MM-DD")
		return
	}
	if _, err := s.jobQueue.EnqueueUnique(jobs.TaskDailyRollup, jobs.RollupPayload{Date: date}, "rollup:"+date); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to queue rollup")
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"date": date, "status": "queued"})
}
