package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/mossy-p/rtc-relay/internal/upstream"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checking is handled by middleware
		return true
	},
}

// HandleUpstream upgrades the backend's control connection and hands the
// socket to the connection manager. Exactly one backend may be attached; a
// second upgrade attempt is rejected with 409 before the upgrade happens.
func HandleUpstream(manager *upstream.Manager, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if manager.Active() {
			c.JSON(http.StatusConflict, gin.H{"error": "a backend is already connected"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("failed to upgrade control connection", "error", err)
			return
		}

		if err := manager.Accept(conn); err != nil {
			// A backend slipped in between the Active check and the
			// upgrade. Tell this one to go away.
			conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "backend already connected"),
				time.Now().Add(time.Second),
			)
			conn.Close()
			logger.Warn("rejected second backend connection", "remote", conn.RemoteAddr().String())
		}
	}
}
