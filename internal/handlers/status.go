package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mossy-p/rtc-relay/internal/session"
	"github.com/mossy-p/rtc-relay/internal/upstream"
)

// StatusResponse is the read-only snapshot served to pollers. It is composed
// from the tracker and registry without touching the connection pumps.
type StatusResponse struct {
	State             string  `json:"state"`
	ActiveSessions    int     `json:"active_sessions"`
	ReconnectAttempts int     `json:"reconnect_attempts"`
	MaxAttempts       int     `json:"max_attempts"`
	NextDelaySeconds  int     `json:"next_delay_seconds"`
	LastAttempt       *string `json:"last_attempt"`
}

// Status reports the control-connection state and session count.
func Status(registry *session.Registry, tracker *upstream.Tracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		info := tracker.Snapshot()

		var lastAttempt *string
		if !info.LastAttempt.IsZero() {
			s := strconv.FormatInt(info.LastAttempt.Unix(), 10)
			lastAttempt = &s
		}

		c.JSON(http.StatusOK, StatusResponse{
			State:             string(info.State),
			ActiveSessions:    registry.Count(),
			ReconnectAttempts: info.Attempts,
			MaxAttempts:       info.MaxAttempts,
			NextDelaySeconds:  int(info.NextDelay.Seconds()),
			LastAttempt:       lastAttempt,
		})
	}
}

// ListSessions returns the active sessions for operators.
func ListSessions(registry *session.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessions := registry.Sessions()
		c.JSON(http.StatusOK, gin.H{
			"count":    len(sessions),
			"sessions": sessions,
		})
	}
}
