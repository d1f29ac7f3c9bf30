package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/orato-labs/speechcoach/internal/models"
)

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// ──────────────────── Results ────────────────────

// Save persists a result and its suggestions in one transaction. Filler
// counts travel as JSONB; every scalar metric gets its own column so trends
// can be queried without unpacking JSON.
func (r *AnalysisRepository) Save(res *models.AnalysisResult) error {
	res.ID = uuid.New()
	res.CreatedAt = time.Now()

	fillerJSON, err := json.Marshal(res.Metrics.FillerCounts)
	if err != nil {
		return err
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	m := res.Metrics
	query := `INSERT INTO analysis_results (id, user_id, session_id, date, is_daily_rollup, sessions_covered,
		total_words, speaking_seconds, filler_counts, total_fillers, filler_percentage,
		avg_wpm, pace_variability, vocabulary_diversity, hedge_count,
		confidence_score, structure_score, overall_rating, segment_count, participant_count, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)`
	if _, err := tx.Exec(query, res.ID, res.UserID, res.SessionID, res.Date, res.IsDailyRollup, res.SessionsCovered,
		m.TotalWords, m.SpeakingSeconds, fillerJSON, m.TotalFillers, m.FillerPercentage,
		m.AvgWPM, m.PaceVariability, m.VocabularyDiversity, m.HedgeCount,
		m.ConfidenceScore, m.StructureScore, m.OverallRating, m.SegmentCount, m.ParticipantCount, res.CreatedAt); err != nil {
		return err
	}

	for i, s := range res.Suggestions {
		if _, err := tx.Exec(`INSERT INTO improvement_suggestions (id, result_id, position, suggestion_type, priority, text, example, improved_example)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			uuid.New(), res.ID, i, s.Type, s.Priority, s.Text, s.Example, s.ImprovedExample); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *AnalysisRepository) GetBySession(sessionID uuid.UUID) (*models.AnalysisResult, error) {
	res, err := r.scanResult(r.db.QueryRow(resultColumns+` FROM analysis_results WHERE session_id = $1`, sessionID))
	if err != nil {
		return nil, err
	}
	res.Suggestions, err = r.loadSuggestions(res.ID)
	return res, err
}

// GetRollup returns the user's daily rollup for the given day, or
// sql.ErrNoRows when the day has none.
func (r *AnalysisRepository) GetRollup(userID uuid.UUID, day time.Time) (*models.AnalysisResult, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	res, err := r.scanResult(r.db.QueryRow(resultColumns+
		` FROM analysis_results WHERE user_id = $1 AND is_daily_rollup = true AND date = $2`, userID, dayStart))
	if err != nil {
		return nil, err
	}
	res.Suggestions, err = r.loadSuggestions(res.ID)
	return res, err
}

// DeleteRollup clears a prior rollup for the day so a re-run replaces it
// instead of stacking duplicates.
func (r *AnalysisRepository) DeleteRollup(userID uuid.UUID, day time.Time) error {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	_, err := r.db.Exec(`DELETE FROM analysis_results WHERE user_id = $1 AND is_daily_rollup = true AND date = $2`, userID, dayStart)
	return err
}

// ListByUser returns the user's results newest first, sessions and rollups
// interleaved. Suggestions are loaded per result.
func (r *AnalysisRepository) ListByUser(userID uuid.UUID, limit int) ([]*models.AnalysisResult, error) {
	rows, err := r.db.Query(resultColumns+
		` FROM analysis_results WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	results, err := r.scanResults(rows)
	if err != nil {
		return nil, err
	}
	for _, res := range results {
		if res.Suggestions, err = r.loadSuggestions(res.ID); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// ListRollups returns the user's daily rollups over the trailing N days,
// oldest first, without suggestions. This feeds the trend endpoint.
func (r *AnalysisRepository) ListRollups(userID uuid.UUID, days int) ([]*models.AnalysisResult, error) {
	since := time.Now().AddDate(0, 0, -days)
	rows, err := r.db.Query(resultColumns+
		` FROM analysis_results WHERE user_id = $1 AND is_daily_rollup = true AND date >= $2 ORDER BY date ASC`, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanResults(rows)
}

func (r *AnalysisRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM analysis_results`).Scan(&count)
	return count, err
}

// ──────────────────── Scanning ────────────────────

const resultColumns = `SELECT id, user_id, session_id, date, is_daily_rollup, sessions_covered,
	total_words, speaking_seconds, filler_counts, total_fillers, filler_percentage,
	avg_wpm, pace_variability, vocabulary_diversity, hedge_count,
	confidence_score, structure_score, overall_rating, segment_count, participant_count, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *AnalysisRepository) scanResult(row rowScanner) (*models.AnalysisResult, error) {
	res := &models.AnalysisResult{Metrics: &models.MetricsSnapshot{}}
	m := res.Metrics
	var fillerJSON []byte
	err := row.Scan(&res.ID, &res.UserID, &res.SessionID, &res.Date, &res.IsDailyRollup, &res.SessionsCovered,
		&m.TotalWords, &m.SpeakingSeconds, &fillerJSON, &m.TotalFillers, &m.FillerPercentage,
		&m.AvgWPM, &m.PaceVariability, &m.VocabularyDiversity, &m.HedgeCount,
		&m.ConfidenceScore, &m.StructureScore, &m.OverallRating, &m.SegmentCount, &m.ParticipantCount, &res.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(fillerJSON) > 0 {
		if err := json.Unmarshal(fillerJSON, &m.FillerCounts); err != nil {
			return nil, err
		}
	}
	if m.FillerCounts == nil {
		m.FillerCounts = map[string]int{}
	}
	return res, nil
}

func (r *AnalysisRepository) scanResults(rows *sql.Rows) ([]*models.AnalysisResult, error) {
	var results []*models.AnalysisResult
	for rows.Next() {
		res, err := r.scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

func (r *AnalysisRepository) loadSuggestions(resultID uuid.UUID) ([]models.Suggestion, error) {
	rows, err := r.db.Query(`SELECT suggestion_type, priority, text, example, improved_example
		FROM improvement_suggestions WHERE result_id = $1 ORDER BY position ASC`, resultID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var suggestions []models.Suggestion
	for rows.Next() {
		var s models.Suggestion
		if err := rows.Scan(&s.Type, &s.Priority, &s.Text, &s.Example, &s.ImprovedExample); err != nil {
			return nil, err
		}
		suggestions = append(suggestions, s)
	}
	return suggestions, rows.Err()
}
