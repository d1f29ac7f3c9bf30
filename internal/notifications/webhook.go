package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/orato-labs/speechcoach/internal/models"
)

// WebhookSender posts daily summaries to a configured endpoint. Delivery is
// best effort; the rollup never fails on a webhook error.
type WebhookSender struct {
	url    string
	client *http.Client
}

func NewWebhookSender(url string) *WebhookSender {
	return &WebhookSender{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// SendDailySummary posts one user's rollup result as a flat JSON payload.
func (w *WebhookSender) SendDailySummary(ctx context.Context, res *models.AnalysisResult) {
	if w.url == "" || res == nil || res.Metrics == nil {
		return
	}
	payload := map[string]interface{}{
		"event":            "daily_summary",
		"source":           "speechcoach",
		"user_id":          res.UserID,
		"date":             res.Date.Format("2006-01-02"),
		"sessions":         res.SessionsCovered,
		"total_words":      res.Metrics.TotalWords,
		"avg_wpm":          res.Metrics.AvgWPM,
		"filler_pct":       res.Metrics.FillerPercentage,
		"confidence":       res.Metrics.ConfidenceScore,
		"overall_rating":   res.Metrics.OverallRating,
		"suggestion_count": len(res.Suggestions),
		"timestamp":        time.Now().UTC().Format(time.RFC3339),
	}
	if err := w.postJSON(ctx, payload); err != nil {
		log.Printf("[webhook] daily summary for %s: %v", res.UserID, err)
	}
}

func (w *WebhookSender) postJSON(ctx context.Context, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()
	io.ReadAll(resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
