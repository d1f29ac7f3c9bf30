package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/orato-labs/speechcoach/internal/aggregate"
	"github.com/orato-labs/speechcoach/internal/cache"
	"github.com/orato-labs/speechcoach/internal/notifications"
	"github.com/orato-labs/speechcoach/internal/repository"
)

type RollupHandler struct {
	agg          *aggregate.DailyAggregator
	sessionRepo  *repository.SessionRepository
	analysisRepo *repository.AnalysisRepository
	statsCache   *cache.Cache
	notifier     EventNotifier
	webhook      *notifications.WebhookSender
}

func NewRollupHandler(agg *aggregate.DailyAggregator, sessionRepo *repository.SessionRepository,
	analysisRepo *repository.AnalysisRepository, statsCache *cache.Cache,
	notifier EventNotifier, webhook *notifications.WebhookSender) *RollupHandler {
	return &RollupHandler{
		agg:          agg,
		sessionRepo:  sessionRepo,
		analysisRepo: analysisRepo,
		statsCache:   statsCache,
		notifier:     notifier,
		webhook:      webhook,
	}
}

// ProcessTask computes the daily rollup for every user who spoke on the
// payload's date. Re-running the task replaces prior rollups for that day.
// A failure for one user does not abort the rest; the task reports the
// first error after the sweep so asynq retries it.
func (h *RollupHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p RollupPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	day, err := time.ParseInLocation("2006-01-02", p.Date, time.Local)
	if err != nil {
		return fmt.Errorf("parse date: %w", err)
	}

	userIDs, err := h.sessionRepo.UsersWithSessionsOn(day)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	log.Printf("[jobs] daily rollup for %s: %d users", p.Date, len(userIDs))

	var firstErr error
	rolled := 0
	for _, userID := range userIDs {
		records, err := h.sessionRepo.ListByUserAndDay(userID, day)
		if err != nil {
			log.Printf("[jobs] rollup: list sessions for %s: %v", userID, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		var sessions []aggregate.SessionData
		for _, rec := range records {
			segments, err := h.sessionRepo.GetSegments(rec.ID)
			if err != nil {
				log.Printf("[jobs] rollup: load segments for session %s: %v", rec.ID, err)
				continue
			}
			sessions = append(sessions, aggregate.SessionData{Record: *rec, Segments: segments})
		}

		result := h.agg.Aggregate(userID, day, sessions)
		if err := h.analysisRepo.DeleteRollup(userID, day); err != nil {
			log.Printf("[jobs] rollup: clear prior rollup for %s: %v", userID, err)
		}
		if err := h.analysisRepo.Save(result); err != nil {
			log.Printf("[jobs] rollup: save for %s: %v", userID, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if h.statsCache != nil {
			h.statsCache.InvalidateUser(ctx, userID)
		}
		if h.webhook != nil {
			h.webhook.SendDailySummary(ctx, result)
		}
		rolled++
	}

	if h.notifier != nil {
		h.notifier.Broadcast("rollup:complete", map[string]interface{}{
			"date":  p.Date,
			"users": rolled,
		})
	}
	log.Printf("[jobs] daily rollup for %s done: %d/%d users", p.Date, rolled, len(userIDs))
	return firstErr
}
