package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/orato-labs/speechcoach/internal/aggregate"
	"github.com/orato-labs/speechcoach/internal/analysis"
	"github.com/orato-labs/speechcoach/internal/cache"
	"github.com/orato-labs/speechcoach/internal/models"
	"github.com/orato-labs/speechcoach/internal/repository"
	"github.com/orato-labs/speechcoach/internal/suggest"
)

type AnalyzeHandler struct {
	analyzer     *analysis.Analyzer
	engine       *suggest.Engine
	sessionRepo  *repository.SessionRepository
	analysisRepo *repository.AnalysisRepository
	statsCache   *cache.Cache
	notifier     EventNotifier
}

func NewAnalyzeHandler(analyzer *analysis.Analyzer, engine *suggest.Engine,
	sessionRepo *repository.SessionRepository, analysisRepo *repository.AnalysisRepository,
	statsCache *cache.Cache, notifier EventNotifier) *AnalyzeHandler {
	return &AnalyzeHandler{
		analyzer:     analyzer,
		engine:       engine,
		sessionRepo:  sessionRepo,
		analysisRepo: analysisRepo,
		statsCache:   statsCache,
		notifier:     notifier,
	}
}

// ProcessTask persists the finalized session, runs the full analysis over
// its segments, and stores the result with suggestions. Segments arrive in
// the payload; nothing is re-read from the buffer.
func (h *AnalyzeHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p AnalyzePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	userID, err := uuid.Parse(p.UserID)
	if err != nil {
		return fmt.Errorf("parse user id: %w", err)
	}

	snapshot := h.analyzer.Analyze(p.Segments)

	record := &models.SessionRecord{
		SessionKey:      p.SessionKey,
		UserID:          userID,
		StartedAt:       p.StartedAt,
		EndedAt:         p.EndedAt,
		DurationSeconds: p.DurationSeconds,
		SegmentCount:    snapshot.SegmentCount,
		WordCount:       snapshot.TotalWords,
		Participants:    snapshot.ParticipantCount,
	}
	if err := h.sessionRepo.Create(record); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if err := h.sessionRepo.SaveSegments(record.ID, userID, p.Segments); err != nil {
		return fmt.Errorf("save segments: %w", err)
	}

	result := &models.AnalysisResult{
		UserID:    userID,
		SessionID: &record.ID,
		Date:      aggregate.Day(p.StartedAt),
		Metrics:   snapshot,
	}
	result.Suggestions = h.engine.Generate(snapshot, primaryText(p.Segments))
	if err := h.analysisRepo.Save(result); err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}

	if h.statsCache != nil {
		h.statsCache.InvalidateUser(ctx, userID)
	}

	log.Printf("[jobs] analyzed session %s for user %s: %d words, rating %.1f, %d suggestions",
		p.SessionKey, userID, snapshot.TotalWords, snapshot.OverallRating, len(result.Suggestions))

	if h.notifier != nil {
		h.notifier.Broadcast("session:analyzed", map[string]interface{}{
			"session_id":  record.ID,
			"session_key": p.SessionKey,
			"user_id":     userID,
			"rating":      snapshot.OverallRating,
			"suggestions": len(result.Suggestions),
		})
	}
	return nil
}

func primaryText(segments []models.Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		if seg.IsPrimarySpeaker {
			b.WriteString(seg.Text)
			b.WriteString(" ")
		}
	}
	return b.String()
}
