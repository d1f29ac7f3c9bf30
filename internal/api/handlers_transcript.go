package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/orato-labs/speechcoach/internal/aggregate"
	"github.com/orato-labs/speechcoach/internal/buffer"
	"github.com/orato-labs/speechcoach/internal/httputil"
	"github.com/orato-labs/speechcoach/internal/models"
)

type ingestRequest struct {
	SessionKey string           `json:"session_key"`
	Segments   []models.Segment `json:"segments"`
}

type ingestResponse struct {
	SessionKey string   `json:"session_key"`
	Accepted   int      `json:"accepted"`
	Rejected   int      `json:"rejected"`
	Errors     []string `json:"errors,omitempty"`
}

// handleIngestSegments feeds a batch of transcript segments into the session
// buffer. Invalid segments are rejected individually; the rest of the batch
// still lands.
func (s *Server) handleIngestSegments(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	if req.SessionKey == "" {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "session_key is required")
		return
	}
	if len(req.Segments) == 0 {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "segments must not be empty")
		return
	}

	userID := s.getUserID(r)
	resp := ingestResponse{SessionKey: req.SessionKey}
	for _, seg := range req.Segments {
		if err := s.buf.Append(req.SessionKey, userID, seg); err != nil {
			resp.Rejected++
			var vErr *buffer.ValidationError
			if errors.As(err, &vErr) {
				resp.Errors = append(resp.Errors, vErr.Reason)
			} else {
				resp.Errors = append(resp.Errors, err.Error())
			}
			continue
		}
		resp.Accepted++
	}
	httputil.WriteJSON(w, http.StatusAccepted, resp)
}

type analyzeRequest struct {
	Segments []models.Segment `json:"segments"`
}

type analyzeResponse struct {
	Metrics     *models.MetricsSnapshot `json:"metrics"`
	Suggestions []models.Suggestion     `json:"suggestions"`
}

// handleAnalyzeText runs the full analysis synchronously over the supplied
// segments without touching the buffer or the database. Useful for previews
// and for clients that manage their own session lifecycle.
func (s *Server) handleAnalyzeText(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	if len(req.Segments) == 0 {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "segments must not be empty")
		return
	}

	snapshot := s.analyzer.Analyze(req.Segments)
	suggestions := s.engine.Generate(snapshot, primarySource(req.Segments))
	httputil.WriteJSON(w, http.StatusOK, analyzeResponse{Metrics: snapshot, Suggestions: suggestions})
}

func primarySource(segments []models.Segment) string {
	var out string
	for _, seg := range segments {
		if seg.IsPrimarySpeaker {
			out += seg.Text + " "
		}
	}
	return out
}

// handleHistory lists a user's stored analysis results, newest first.
// Regular users can only read their own history.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	targetID, err := uuid.Parse(r.PathValue("userId"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid user id")
		return
	}
	if targetID != s.getUserID(r) && !s.isAdmin(r) {
		httputil.WriteError(w, http.StatusForbidden, "FORBIDDEN", "cannot read another user's history")
		return
	}

	limit := httputil.QueryInt(r, "limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	results, err := s.analysisRepo.ListByUser(targetID, limit)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to load history")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user_id": targetID,
		"results": results,
	})
}

type statisticsResponse struct {
	UserID         uuid.UUID           `json:"user_id"`
	Days           int                 `json:"days"`
	Trend          []models.TrendPoint `json:"trend"`
	AvgRating      float64             `json:"avg_rating"`
	AvgFillerPct   float64             `json:"avg_filler_percentage"`
	AvgWPM         float64             `json:"avg_wpm"`
	TotalSessions  int                 `json:"total_sessions"`
	DaysWithSpeech int                 `json:"days_with_speech"`
}

// handleStatistics summarizes a user's daily rollups over a trailing window.
// Responses are cached briefly; new analyses invalidate the cache.
func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	targetID, err := uuid.Parse(r.PathValue("userId"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid user id")
		return
	}
	if targetID != s.getUserID(r) && !s.isAdmin(r) {
		httputil.WriteError(w, http.StatusForbidden, "FORBIDDEN", "cannot read another user's statistics")
		return
	}

	days := httputil.QueryInt(r, "days", 7)
	if days < 1 || days > 365 {
		days = 7
	}

	if s.statsCache != nil {
		var cached statisticsResponse
		if s.statsCache.GetStats(r.Context(), targetID, days, &cached) {
			httputil.WriteJSON(w, http.StatusOK, cached)
			return
		}
	}

	rollups, err := s.analysisRepo.ListRollups(targetID, days)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to load statistics")
		return
	}

	resp := statisticsResponse{
		UserID: targetID,
		Days:   days,
		Trend:  aggregate.Trend(rollups),
	}
	for _, roll := range rollups {
		resp.TotalSessions += roll.SessionsCovered
		if roll.Metrics != nil && roll.Metrics.TotalWords > 0 {
			resp.DaysWithSpeech++
			resp.AvgRating += roll.Metrics.OverallRating
			resp.AvgFillerPct += roll.Metrics.FillerPercentage
			resp.AvgWPM += roll.Metrics.AvgWPM
		}
	}
	if resp.DaysWithSpeech > 0 {
		n := float64(resp.DaysWithSpeech)
		resp.AvgRating /= n
		resp.AvgFillerPct /= n
		resp.AvgWPM /= n
	}

	if s.statsCache != nil {
		s.statsCache.SetStats(r.Context(), targetID, days, resp)
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
