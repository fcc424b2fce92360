// Package confirm implements the two-phase confirmation protocol that
// gates SQL execution and training submissions. Every state-changing
// action is first registered as a pending session holding the action's
// payload; nothing proceeds until a caller confirms that session id, and
// each session finalizes exactly once.
package confirm

import (
	"context"
	"errors"
	"time"
)

// Store manages confirmation sessions. Implementations must be safe for
// concurrent use.
type Store interface {
	// Create registers payload as a new pending session and returns its id.
	Create(ctx context.Context, kind string, payload any) (string, error)

	// Get returns a read-only copy of the session.
	Get(ctx context.Context, id string) (*Session, error)

	// Confirm finalizes the session and hands back its payload exactly once.
	Confirm(ctx context.Context, id, kind string) (any, error)

	// Cancel finalizes the session and discards its payload.
	Cancel(ctx context.Context, id, kind string) error

	// Close releases resources.
	Close() error
}

// Session kinds. The payload behind a kind is opaque to this package; the
// kind only guards a session id minted for one action from being replayed
// against another.
const (
	// KindSQLExecution tags sessions whose payload is a generated SQL
	// statement awaiting execution.
	KindSQLExecution = "sql_execution"
	// KindTrainingSubmission tags sessions whose payload is training
	// material awaiting submission.
	KindTrainingSubmission = "training_submission"
)

// State is a session's position in the confirmation lifecycle. Pending is
// the sole initial state; the other three are terminal and mutually
// exclusive.
type State string

const (
	StatePending   State = "pending"
	StateConfirmed State = "confirmed"
	StateCancelled State = "cancelled"
	StateExpired   State = "expired"
)

// Terminal reports whether no further transition is permitted.
func (s State) Terminal() bool {
	return s == StateConfirmed || s == StateCancelled || s == StateExpired
}

// Session is a single-use approval record. The payload is handed back
// exactly once, on the successful Confirm, and cleared on any transition
// out of Pending.
type Session struct {
	ID        string
	Kind      string
	Payload   any
	State     State
	CreatedAt time.Time
	ExpiresAt time.Time
}

var (
	// ErrNotFound reports an unknown session id.
	ErrNotFound = errors.New("session not found")
	// ErrAlreadyFinalized reports a confirm or cancel on a session that
	// already reached a terminal state.
	ErrAlreadyFinalized = errors.New("session already finalized")
	// ErrExpired reports a session past its expiry window.
	ErrExpired = errors.New("session expired")
	// ErrKindMismatch reports a session id used with the wrong action
	// kind. The session itself is left untouched.
	ErrKindMismatch = errors.New("session kind mismatch")
)
