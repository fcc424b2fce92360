package confirm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultTTL is how long a pending session stays confirmable.
	DefaultTTL = 5 * time.Minute
	// DefaultRetention is how long a finalized record lingers after its
	// expiry so repeat calls report ErrAlreadyFinalized rather than
	// ErrNotFound, before the sweeper evicts it.
	DefaultRetention = 10 * time.Minute
)

// Manager is an in-memory session store safe for concurrent use. It is the
// single synchronization point of the confirmation protocol: concurrent
// Create calls receive distinct ids, and only one of several racing
// Confirm/Cancel callers observes the Pending session; the rest get
// ErrAlreadyFinalized.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	retain   time.Duration

	cancelSweep context.CancelFunc
	sweepDone   chan struct{}
}

// NewManager returns a Manager with the given pending TTL and finalized
// retention window. Zero or negative values take the defaults.
func NewManager(ttl, retention time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Manager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		retain:   retention,
	}
}

// newSessionID mints an opaque id prefixed by the action kind so ids are
// self-describing in logs and transcripts.
func newSessionID(kind string) string {
	prefix := "session"
	switch kind {
	case KindSQLExecution:
		prefix = "sql"
	case KindTrainingSubmission:
		prefix = "training"
	}
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "_" + raw[:12]
}

// Create registers payload as a new pending session of the given kind and
// returns its id.
func (m *Manager) Create(_ context.Context, kind string, payload any) (string, error) {
	if kind == "" {
		return "", errors.New("session kind is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var id string
	for {
		id = newSessionID(kind)
		if _, exists := m.sessions[id]; !exists {
			break
		}
	}
	now := time.Now()
	m.sessions[id] = &Session{
		ID:        id,
		Kind:      kind,
		Payload:   payload,
		State:     StatePending,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	return id, nil
}

// Get returns a copy of the session, or ErrNotFound. The copy's payload
// aliases the stored payload; callers treat it as read-only.
func (m *Manager) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	dup := *sess
	return &dup, nil
}

// Confirm finalizes the session as confirmed and hands back its payload.
// The payload is released exactly once: repeat calls, racing callers
// included, get ErrAlreadyFinalized. A non-empty kind must match the
// session's kind or the call fails with ErrKindMismatch without touching
// the session. Expiry is also enforced lazily here, so an overdue session
// is never confirmable even before the sweeper reaches it.
func (m *Manager) Confirm(_ context.Context, id, kind string) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if kind != "" && sess.Kind != kind {
		return nil, ErrKindMismatch
	}
	if sess.State != StatePending {
		return nil, ErrAlreadyFinalized
	}
	if time.Now().After(sess.ExpiresAt) {
		sess.State = StateExpired
		sess.Payload = nil
		return nil, ErrExpired
	}

	payload := sess.Payload
	sess.State = StateConfirmed
	sess.Payload = nil
	return payload, nil
}

// Cancel finalizes the session as cancelled and discards its payload.
// Preconditions match Confirm.
func (m *Manager) Cancel(_ context.Context, id, kind string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	if kind != "" && sess.Kind != kind {
		return ErrKindMismatch
	}
	if sess.State != StatePending {
		return ErrAlreadyFinalized
	}
	if time.Now().After(sess.ExpiresAt) {
		sess.State = StateExpired
		sess.Payload = nil
		return ErrExpired
	}

	sess.State = StateCancelled
	sess.Payload = nil
	return nil
}

// Sweep expires pending sessions past their deadline and evicts finalized
// records older than the retention window. It returns the number of
// sessions touched.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	touched := 0
	for id, sess := range m.sessions {
		switch {
		case sess.State == StatePending && now.After(sess.ExpiresAt):
			sess.State = StateExpired
			sess.Payload = nil
			touched++
		case sess.State.Terminal() && now.After(sess.ExpiresAt.Add(m.retain)):
			delete(m.sessions, id)
			touched++
		}
	}
	return touched
}

// Len reports the number of live session records, finalized ones included.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// StartSweeper launches a background goroutine that sweeps on the given
// interval. Call Close to stop it.
func (m *Manager) StartSweeper(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelSweep = cancel
	m.sweepDone = make(chan struct{})

	go func() {
		defer close(m.sweepDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Sweep(time.Now())
			}
		}
	}()
}

// Close stops the sweeper and waits for it to exit. Safe to call when the
// sweeper was never started.
func (m *Manager) Close() error {
	if m.cancelSweep != nil {
		m.cancelSweep()
		<-m.sweepDone
	}
	return nil
}

// Verify interface compliance.
var _ Store = (*Manager)(nil)
