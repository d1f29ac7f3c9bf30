package buffer

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/orato-labs/speechcoach/internal/models"
)

// Tolerance for out-of-order detection: a segment may start up to this many
// seconds before the previous segment's end without being flagged.
const outOfOrderTolerance = 0.25

// Config holds the buffer's timing thresholds.
type Config struct {
	// SilenceTimeout moves an ACTIVE session to SILENT once no segment has
	// arrived for this long.
	SilenceTimeout time.Duration
	// FinalizeTimeout moves a SILENT session to FINALIZED once it has been
	// silent for this long beyond the silence threshold.
	FinalizeTimeout time.Duration
}

// DefaultConfig mirrors the documented thresholds.
func DefaultConfig() Config {
	return Config{
		SilenceTimeout:  90 * time.Second,
		FinalizeTimeout: 10 * time.Minute,
	}
}

// Finalized is the hand-off produced when a session closes: the ordered
// segment list plus its timing envelope. Ownership of the segments passes
// (read-only) to the caller.
type Finalized struct {
	SessionKey      string
	UserID          uuid.UUID
	Segments        []models.Segment
	StartedAt       time.Time
	EndedAt         time.Time
	DurationSeconds float64
}

// SessionInfo is a point-in-time view of one buffered session.
type SessionInfo struct {
	SessionKey   string              `json:"session_key"`
	UserID       uuid.UUID           `json:"user_id"`
	State        models.SessionState `json:"state"`
	SegmentCount int                 `json:"segment_count"`
	LastActivity time.Time           `json:"last_activity"`
}

// entry is one live session. Each entry has its own lock so unrelated
// sessions never contend; the Buffer's lock only guards the map itself.
type entry struct {
	mu           sync.Mutex
	userID       uuid.UUID
	state        models.SessionState
	segments     []models.Segment
	seen         map[uint64]struct{}
	lastOffset   float64
	lastActivity time.Time
	firstSeen    time.Time
	dupDropped   int
}

// Buffer accumulates transcript segments per session id and applies the
// silence-based lifecycle. It owns no timers: state advances only when a
// caller invokes Tick (or an explicit finalize), so tests drive a virtual
// clock and the concurrency surface stays small.
type Buffer struct {
	mu      sync.RWMutex
	entries map[string]*entry
	cfg     Config
	now     func() time.Time
}

func New(cfg Config) *Buffer {
	return &Buffer{
		entries: make(map[string]*entry),
		cfg:     cfg,
		now:     time.Now,
	}
}

// SetClock overrides the time source. Test hook.
func (b *Buffer) SetClock(now func() time.Time) {
	b.now = now
}

// Append adds one segment to the session, creating the session on first
// contact. Malformed segments are rejected with a *ValidationError, and a
// segment whose userID does not match the session's owner is rejected with
// ErrInvariantViolation, leaving the session untouched. A segment arriving
// out of chronological order is flagged and kept, not dropped: completeness
// wins over strict ordering. Exact redeliveries of a segment already
// buffered (webhook retries) are dropped silently.
func (b *Buffer) Append(sessionKey string, userID uuid.UUID, seg models.Segment) error {
	if seg.Text == "" {
		return &ValidationError{SessionKey: sessionKey, Reason: "empty text"}
	}
	if seg.EndOffset <= seg.StartOffset {
		return &ValidationError{
			SessionKey: sessionKey,
			Reason:     fmt.Sprintf("non-positive duration (start=%.2f end=%.2f)", seg.StartOffset, seg.EndOffset),
		}
	}

	e := b.entryFor(sessionKey, userID)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.userID != userID {
		return fmt.Errorf("session %s belongs to another user: %w", sessionKey, ErrInvariantViolation)
	}
	if e.state == models.SessionFinalized {
		return ErrSessionFinalized
	}

	fp := segmentFingerprint(seg)
	if _, dup := e.seen[fp]; dup {
		e.dupDropped++
		return nil
	}
	e.seen[fp] = struct{}{}

	if seg.StartOffset < e.lastOffset-outOfOrderTolerance {
		seg.OutOfOrder = true
		log.Printf("buffer: out-of-order segment in session %s (start=%.2f, last end=%.2f)",
			sessionKey, seg.StartOffset, e.lastOffset)
	}
	if seg.EndOffset > e.lastOffset {
		e.lastOffset = seg.EndOffset
	}

	e.segments = append(e.segments, seg)
	e.state = models.SessionActive
	e.lastActivity = b.now()
	return nil
}

// entryFor returns the live entry for the session, creating it if needed.
func (b *Buffer) entryFor(sessionKey string, userID uuid.UUID) *entry {
	b.mu.RLock()
	e, ok := b.entries[sessionKey]
	b.mu.RUnlock()
	if ok {
		return e
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if e, ok = b.entries[sessionKey]; ok {
		return e
	}
	now := b.now()
	e = &entry{
		userID:       userID,
		state:        models.SessionActive,
		seen:         make(map[uint64]struct{}),
		lastActivity: now,
		firstSeen:    now,
	}
	b.entries[sessionKey] = e
	return e
}

// Finalize closes a session immediately, regardless of its state, and
// removes it from the buffer. The second return is false when the session
// id is unknown or was already finalized: finalize is idempotent, never a
// fault.
func (b *Buffer) Finalize(sessionKey string) (*Finalized, bool) {
	b.mu.Lock()
	e, ok := b.entries[sessionKey]
	if ok {
		delete(b.entries, sessionKey)
	}
	b.mu.Unlock()
	if !ok {
		return nil, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == models.SessionFinalized {
		return nil, false
	}
	return b.finalizeLocked(sessionKey, e), true
}

// finalizeLocked builds the hand-off. Duration is measured across segment
// offsets, not wall-clock receipt time.
func (b *Buffer) finalizeLocked(sessionKey string, e *entry) *Finalized {
	e.state = models.SessionFinalized

	var minStart, maxEnd float64
	if len(e.segments) > 0 {
		minStart = e.segments[0].StartOffset
		maxEnd = e.segments[0].EndOffset
		for _, seg := range e.segments {
			if seg.StartOffset < minStart {
				minStart = seg.StartOffset
			}
			if seg.EndOffset > maxEnd {
				maxEnd = seg.EndOffset
			}
		}
	}

	if e.dupDropped > 0 {
		log.Printf("buffer: session %s dropped %d redelivered segment(s)", sessionKey, e.dupDropped)
	}

	return &Finalized{
		SessionKey:      sessionKey,
		UserID:          e.userID,
		Segments:        e.segments,
		StartedAt:       e.firstSeen,
		EndedAt:         b.now(),
		DurationSeconds: maxEnd - minStart,
	}
}

// Tick applies time-based transitions across all buffered sessions and
// returns those that crossed into FINALIZED. It is driven by an external
// scheduler; promptness is only as good as the tick cadence.
func (b *Buffer) Tick() []*Finalized {
	now := b.now()

	b.mu.RLock()
	keys := make([]string, 0, len(b.entries))
	for k := range b.entries {
		keys = append(keys, k)
	}
	b.mu.RUnlock()

	var done []*Finalized
	for _, key := range keys {
		b.mu.RLock()
		e, ok := b.entries[key]
		b.mu.RUnlock()
		if !ok {
			continue
		}

		e.mu.Lock()
		idle := now.Sub(e.lastActivity)
		switch e.state {
		case models.SessionActive:
			if idle > b.cfg.SilenceTimeout {
				e.state = models.SessionSilent
				log.Printf("buffer: session %s silent after %s idle", key, idle.Truncate(time.Second))
			}
			e.mu.Unlock()
		case models.SessionSilent:
			if idle > b.cfg.SilenceTimeout+b.cfg.FinalizeTimeout {
				fin := b.finalizeLocked(key, e)
				e.mu.Unlock()
				b.remove(key, e)
				done = append(done, fin)
			} else {
				e.mu.Unlock()
			}
		default:
			e.mu.Unlock()
		}
	}
	return done
}

// FinalizeAll closes every buffered session, silence timers notwithstanding.
// Used for the end-of-day batch closeout.
func (b *Buffer) FinalizeAll() []*Finalized {
	b.mu.RLock()
	keys := make([]string, 0, len(b.entries))
	for k := range b.entries {
		keys = append(keys, k)
	}
	b.mu.RUnlock()

	var done []*Finalized
	for _, key := range keys {
		if fin, ok := b.Finalize(key); ok {
			done = append(done, fin)
		}
	}
	return done
}

// Sessions lists the live buffer contents for inspection.
func (b *Buffer) Sessions() []SessionInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()
	infos := make([]SessionInfo, 0, len(b.entries))
	for key, e := range b.entries {
		e.mu.Lock()
		infos = append(infos, SessionInfo{
			SessionKey:   key,
			UserID:       e.userID,
			State:        e.state,
			SegmentCount: len(e.segments),
			LastActivity: e.lastActivity,
		})
		e.mu.Unlock()
	}
	return infos
}

// Len reports the number of live sessions.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// remove deletes an entry only if it is still the one we finalized;
// a new session may have reused the key in the meantime.
func (b *Buffer) remove(key string, e *entry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cur, ok := b.entries[key]; ok && cur == e {
		delete(b.entries, key)
	}
}

// segmentFingerprint hashes a segment's identity for redelivery detection.
func segmentFingerprint(seg models.Segment) uint64 {
	h := xxhash.New()
	fmt.Fprintf(h, "%s|%t|%.3f|%.3f|%s", seg.SpeakerLabel, seg.IsPrimarySpeaker, seg.StartOffset, seg.EndOffset, seg.Text)
	return h.Sum64()
}
