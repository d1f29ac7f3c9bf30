package models

import (
	"time"

	"github.com/google/uuid"
)

// ──────────────────── Enums ────────────────────

type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
)

// SessionState is the lifecycle state of a buffered speaking session.
type SessionState string

const (
	SessionActive    SessionState = "active"
	SessionSilent    SessionState = "silent"
	SessionFinalized SessionState = "finalized"
)

// SuggestionType identifies the metric dimension a suggestion addresses.
type SuggestionType string

const (
	SuggestionFillerWords     SuggestionType = "filler_words"
	SuggestionConfidence      SuggestionType = "confidence"
	SuggestionPace            SuggestionType = "pace"
	SuggestionPaceConsistency SuggestionType = "pace_consistency"
	SuggestionVocabulary      SuggestionType = "vocabulary"
	SuggestionStructure       SuggestionType = "structure"
)

// ──────────────────── User ────────────────────

type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	DeviceID     *string   `json:"device_id,omitempty" db:"device_id"`
	Role         UserRole  `json:"role" db:"role"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// ──────────────────── Segments & Sessions ────────────────────

// Segment is one utterance fragment from a transcript stream. Offsets are
// seconds from the start of the session, monotonic per session.
type Segment struct {
	Text             string  `json:"text"`
	SpeakerLabel     string  `json:"speaker_label"`
	IsPrimarySpeaker bool    `json:"is_primary_speaker"`
	StartOffset      float64 `json:"start_offset"`
	EndOffset        float64 `json:"end_offset"`
	OutOfOrder       bool    `json:"out_of_order,omitempty"`
}

// Duration returns the segment's speaking time in seconds.
func (s Segment) Duration() float64 {
	return s.EndOffset - s.StartOffset
}

// SessionRecord is a persisted, finalized session envelope.
type SessionRecord struct {
	ID              uuid.UUID `json:"id" db:"id"`
	SessionKey      string    `json:"session_key" db:"session_key"`
	UserID          uuid.UUID `json:"user_id" db:"user_id"`
	StartedAt       time.Time `json:"started_at" db:"started_at"`
	EndedAt         time.Time `json:"ended_at" db:"ended_at"`
	DurationSeconds float64   `json:"duration_seconds" db:"duration_seconds"`
	SegmentCount    int       `json:"segment_count" db:"segment_count"`
	WordCount       int       `json:"word_count" db:"word_count"`
	Participants    int       `json:"participants" db:"participants"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// SegmentRecord is a persisted speech segment tied to a session.
type SegmentRecord struct {
	ID               uuid.UUID `json:"id" db:"id"`
	SessionID        uuid.UUID `json:"session_id" db:"session_id"`
	UserID           uuid.UUID `json:"user_id" db:"user_id"`
	Text             string    `json:"text" db:"text_content"`
	SpeakerLabel     string    `json:"speaker_label" db:"speaker_label"`
	IsPrimarySpeaker bool      `json:"is_primary_speaker" db:"is_primary_speaker"`
	StartOffset      float64   `json:"start_offset" db:"start_offset"`
	EndOffset        float64   `json:"end_offset" db:"end_offset"`
	OutOfOrder       bool      `json:"out_of_order" db:"out_of_order"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// ──────────────────── Metrics ────────────────────

// MetricsSnapshot is the write-once result of analyzing one block of timed
// speech (a session or a whole day). All ratio fields are zero-safe.
type MetricsSnapshot struct {
	TotalWords          int            `json:"total_words"`
	SpeakingSeconds     float64        `json:"speaking_seconds"`
	FillerCounts        map[string]int `json:"filler_words"`
	TotalFillers        int            `json:"total_filler_count"`
	FillerPercentage    float64        `json:"filler_percentage"`
	AvgWPM              float64        `json:"avg_wpm"`
	PaceVariability     float64        `json:"pace_variability"`
	VocabularyDiversity float64        `json:"vocabulary_diversity"`
	HedgeCount          int            `json:"hedge_count"`
	ConfidenceScore     float64        `json:"confidence_score"`
	StructureScore      float64        `json:"structure_score"`
	OverallRating       float64        `json:"overall_rating"`
	SegmentCount        int            `json:"segment_count"`
	ParticipantCount    int            `json:"participant_count"`
}

// Suggestion is one actionable piece of feedback derived from a snapshot.
type Suggestion struct {
	Type            SuggestionType `json:"type"`
	Priority        int            `json:"priority"`
	Text            string         `json:"text"`
	Example         string         `json:"example,omitempty"`
	ImprovedExample string         `json:"improved_example,omitempty"`
}

// AnalysisResult is a persisted snapshot + suggestions for a user, either for
// one session or for one day's aggregate.
type AnalysisResult struct {
	ID              uuid.UUID        `json:"id" db:"id"`
	UserID          uuid.UUID        `json:"user_id" db:"user_id"`
	SessionID       *uuid.UUID       `json:"session_id,omitempty" db:"session_id"`
	Date            time.Time        `json:"date" db:"date"`
	Metrics         *MetricsSnapshot `json:"metrics"`
	Suggestions     []Suggestion     `json:"suggestions"`
	IsDailyRollup   bool             `json:"is_daily_rollup" db:"is_daily_rollup"`
	SessionsCovered int              `json:"sessions_covered" db:"sessions_covered"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
}

// TrendPoint is one day's worth of tracked metrics in a user's history.
type TrendPoint struct {
	Date                time.Time `json:"date"`
	FillerPercentage    float64   `json:"filler_percentage"`
	AvgWPM              float64   `json:"avg_wpm"`
	VocabularyDiversity float64   `json:"vocabulary_diversity"`
	ConfidenceScore     float64   `json:"confidence_score"`
	StructureScore      float64   `json:"structure_score"`
	OverallRating       float64   `json:"overall_rating"`
}
