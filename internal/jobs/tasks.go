package jobs

import (
	"time"

	"github.com/orato-labs/speechcoach/internal/aggregate"
	"github.com/orato-labs/speechcoach/internal/analysis"
	"github.com/orato-labs/speechcoach/internal/cache"
	"github.com/orato-labs/speechcoach/internal/models"
	"github.com/orato-labs/speechcoach/internal/notifications"
	"github.com/orato-labs/speechcoach/internal/repository"
	"github.com/orato-labs/speechcoach/internal/suggest"
)

// ──────── Payloads ────────

// AnalyzePayload carries a finalized session from the buffer to the worker.
// Segments travel inline: by the time the task runs, the buffer entry is
// gone and Redis is the only copy.
type AnalyzePayload struct {
	SessionKey      string           `json:"session_key"`
	UserID          string           `json:"user_id"`
	StartedAt       time.Time        `json:"started_at"`
	EndedAt         time.Time        `json:"ended_at"`
	DurationSeconds float64          `json:"duration_seconds"`
	Segments        []models.Segment `json:"segments"`
}

type RollupPayload struct {
	Date string `json:"date"` // YYYY-MM-DD
}

type EventNotifier interface {
	Broadcast(event string, data interface{})
}

// ──────── Register all handlers ────────

func RegisterHandlers(q *Queue, analyzer *analysis.Analyzer, engine *suggest.Engine,
	agg *aggregate.DailyAggregator, sessionRepo *repository.SessionRepository,
	analysisRepo *repository.AnalysisRepository, statsCache *cache.Cache,
	notifier EventNotifier, webhook *notifications.WebhookSender) {

	q.RegisterHandler(TaskAnalyzeSession, NewAnalyzeHandler(analyzer, engine, sessionRepo, analysisRepo, statsCache, notifier))
	q.RegisterHandler(TaskDailyRollup, NewRollupHandler(agg, sessionRepo, analysisRepo, statsCache, notifier, webhook))
}
