package buffer

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionFinalized is returned when a segment arrives for a session
	// id that has already been finalized and removed from the buffer.
	ErrSessionFinalized = errors.New("session already finalized")

	// ErrInvariantViolation reports a segment that would cross session
	// ownership. The session is left intact; callers should log and drop
	// the offending segment.
	ErrInvariantViolation = errors.New("session buffer invariant violation")
)

// ValidationError rejects a malformed segment at the append boundary. The
// offending segment's identity travels with the error.
type ValidationError struct {
	SessionKey string
	Reason     string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid segment for session %s: %s", e.SessionKey, e.Reason)
}
