package repository

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/orato-labs/speechcoach/internal/models"
)

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// ──────────────────── Sessions ────────────────────

func (r *SessionRepository) Create(s *models.SessionRecord) error {
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	query := `INSERT INTO sessions (id, session_key, user_id, started_at, ended_at, duration_seconds, segment_count, word_count, participants, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err := r.db.Exec(query, s.ID, s.SessionKey, s.UserID, s.StartedAt, s.EndedAt,
		s.DurationSeconds, s.SegmentCount, s.WordCount, s.Participants, s.CreatedAt)
	return err
}

func (r *SessionRepository) GetByID(id uuid.UUID) (*models.SessionRecord, error) {
	s := &models.SessionRecord{}
	err := r.db.QueryRow(`SELECT id, session_key, user_id, started_at, ended_at, duration_seconds, segment_count, word_count, participants, created_at
		FROM sessions WHERE id = $1`, id).
		Scan(&s.ID, &s.SessionKey, &s.UserID, &s.StartedAt, &s.EndedAt, &s.DurationSeconds,
			&s.SegmentCount, &s.WordCount, &s.Participants, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SessionRepository) ListByUser(userID uuid.UUID, limit int) ([]*models.SessionRecord, error) {
	rows, err := r.db.Query(`SELECT id, session_key, user_id, started_at, ended_at, duration_seconds, segment_count, word_count, participants, created_at
		FROM sessions WHERE user_id = $1 ORDER BY started_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSessions(rows)
}

// ListByUserAndDay returns the user's sessions that started inside the given
// calendar day, oldest first, as the rollup consumes them.
func (r *SessionRepository) ListByUserAndDay(userID uuid.UUID, day time.Time) ([]*models.SessionRecord, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)
	rows, err := r.db.Query(`SELECT id, session_key, user_id, started_at, ended_at, duration_seconds, segment_count, word_count, participants, created_at
		FROM sessions WHERE user_id = $1 AND started_at >= $2 AND started_at < $3 ORDER BY started_at ASC`,
		userID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSessions(rows)
}

// UsersWithSessionsOn lists the distinct users who spoke during the given
// day. The rollup walks this set.
func (r *SessionRepository) UsersWithSessionsOn(day time.Time) ([]uuid.UUID, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)
	rows, err := r.db.Query(`SELECT DISTINCT user_id FROM sessions WHERE started_at >= $1 AND started_at < $2`, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *SessionRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&count)
	return count, err
}

func scanSessions(rows *sql.Rows) ([]*models.SessionRecord, error) {
	var results []*models.SessionRecord
	for rows.Next() {
		s := &models.SessionRecord{}
		if err := rows.Scan(&s.ID, &s.SessionKey, &s.UserID, &s.StartedAt, &s.EndedAt, &s.DurationSeconds,
			&s.SegmentCount, &s.WordCount, &s.Participants, &s.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, s)
	}
	return results, rows.Err()
}

// ──────────────────── Segments ────────────────────

// SaveSegments persists a finalized session's segments in one transaction so
// a crash never leaves a half-written session behind.
func (r *SessionRepository) SaveSegments(sessionID, userID uuid.UUID, segments []models.Segment) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO speech_segments (id, session_id, user_id, text_content, speaker_label, is_primary_speaker, start_offset, end_offset, out_of_order, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, seg := range segments {
		if _, err := stmt.Exec(uuid.New(), sessionID, userID, seg.Text, seg.SpeakerLabel,
			seg.IsPrimarySpeaker, seg.StartOffset, seg.EndOffset, seg.OutOfOrder, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *SessionRepository) GetSegments(sessionID uuid.UUID) ([]models.Segment, error) {
	rows, err := r.db.Query(`SELECT text_content, speaker_label, is_primary_speaker, start_offset, end_offset, out_of_order
		FROM speech_segments WHERE session_id = $1 ORDER BY start_offset ASC, created_at ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var segments []models.Segment
	for rows.Next() {
		var seg models.Segment
		if err := rows.Scan(&seg.Text, &seg.SpeakerLabel, &seg.IsPrimarySpeaker,
			&seg.StartOffset, &seg.EndOffset, &seg.OutOfOrder); err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}
	return segments, rows.Err()
}
