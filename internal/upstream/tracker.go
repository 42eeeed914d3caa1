package upstream

import (
	"sync"
	"time"
)

// State is the liveness of the single control connection. The values
// serialize directly into the status endpoint.
type State string

const (
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
	StateReconnecting State = "reconnecting"
	StateFailed       State = "failed"
)

// Info is a read-only copy of the tracker's accounting.
type Info struct {
	State       State
	Attempts    int
	MaxAttempts int
	NextDelay   time.Duration
	LastAttempt time.Time // zero until the first recorded failure
}

// Tracker accounts for connection episodes on the control socket: liveness
// state, consecutive failures, and the backoff the backend is expected to
// honor before its next upgrade. It never dials anything itself.
type Tracker struct {
	mu sync.Mutex

	maxAttempts  int
	initialDelay time.Duration
	maxDelay     time.Duration

	state       State
	attempts    int
	nextDelay   time.Duration
	lastAttempt time.Time
}

// NewTracker creates a tracker in the Disconnected state.
func NewTracker(maxAttempts int, initialDelay, maxDelay time.Duration) *Tracker {
	return &Tracker{
		maxAttempts:  maxAttempts,
		initialDelay: initialDelay,
		maxDelay:     maxDelay,
		state:        StateDisconnected,
		nextDelay:    initialDelay,
	}
}

// MarkConnected records a successful upgrade. Attempts and backoff reset
// regardless of the prior state, including Failed.
func (t *Tracker) MarkConnected() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state = StateConnected
	t.attempts = 0
	t.nextDelay = t.initialDelay
}

// MarkDisconnected records that the socket is gone. Attempt counters are left
// alone; a clean close is not a failure.
func (t *Tracker) MarkDisconnected() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state = StateDisconnected
}

// RecordFailure accounts for one failed connection episode. It returns true
// while attempts remain, doubling the backoff up to the cap. Once attempts
// are exhausted the tracker enters Failed, which is terminal until process
// restart, and every further call returns false without touching counters.
func (t *Tracker) RecordFailure() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == StateFailed || t.attempts >= t.maxAttempts {
		t.state = StateFailed
		return false
	}

	t.attempts++
	t.lastAttempt = time.Now()
	t.nextDelay *= 2
	if t.nextDelay > t.maxDelay {
		t.nextDelay = t.maxDelay
	}
	t.state = StateReconnecting
	return true
}

// Snapshot returns a copy of the current accounting for reporting.
func (t *Tracker) Snapshot() Info {
	t.mu.Lock()
	defer t.mu.Unlock()

	return Info{
		State:       t.state,
		Attempts:    t.attempts,
		MaxAttempts: t.maxAttempts,
		NextDelay:   t.nextDelay,
		LastAttempt: t.lastAttempt,
	}
}
