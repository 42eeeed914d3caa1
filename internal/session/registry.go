// Package session tracks the calls the backend has asked the relay to
// service. The in-memory registry is authoritative; an optional Redis mirror
// exposes the same set to the rest of the fleet.
package session

import (
	"log/slog"
	"sync"
	"time"
)

// Session is the bookkeeping the relay keeps per call. The browsers negotiate
// media directly; the relay only records that the call exists.
type Session struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Registry is a concurrency-safe map of active sessions.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]Session

	mirror *Mirror
	logger *slog.Logger
}

// NewRegistry creates an empty registry. mirror may be nil when Redis
// mirroring is disabled.
func NewRegistry(mirror *Mirror, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		sessions: make(map[string]Session),
		mirror:   mirror,
		logger:   logger,
	}
}

// Register inserts or overwrites the session. It never fails; re-registering
// an existing id refreshes its metadata.
func (r *Registry) Register(sessionID, roomID string) {
	s := Session{
		ID:        sessionID,
		RoomID:    roomID,
		CreatedAt: time.Now(),
	}

	r.mu.Lock()
	r.sessions[sessionID] = s
	r.mu.Unlock()

	if r.mirror != nil {
		if err := r.mirror.Add(s); err != nil {
			r.logger.Warn("session mirror add failed", "session_id", sessionID, "error", err)
		}
	}
}

// Destroy removes the session if present and reports whether it existed.
// Destroying an unknown id is a no-op, not an error.
func (r *Registry) Destroy(sessionID string) bool {
	r.mu.Lock()
	_, existed := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	r.mu.Unlock()

	if existed && r.mirror != nil {
		if err := r.mirror.Remove(sessionID); err != nil {
			r.logger.Warn("session mirror remove failed", "session_id", sessionID, "error", err)
		}
	}
	return existed
}

// Count returns the current number of active sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sessions returns a snapshot of the active sessions.
func (r *Registry) Sessions() []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}
