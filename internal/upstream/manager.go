// Package upstream owns the single control connection from the backend: the
// socket itself, the three pumps that service it, and the reconnection
// accounting the status endpoint reports.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/mossy-p/rtc-relay/config"
	"github.com/mossy-p/rtc-relay/internal/protocol"
	"github.com/mossy-p/rtc-relay/internal/session"
)

// ErrBackendActive is returned by Accept while a backend connection is
// already attached. The relay rejects the newcomer rather than silently
// abandoning the first backend.
var ErrBackendActive = errors.New("a backend connection is already active")

// errCleanClose marks an episode the backend ended with a close frame. It is
// not a failure and does not touch the reconnect counters.
var errCleanClose = errors.New("backend closed the connection")

// episode is one accepted connection from attach to teardown.
type episode struct {
	id         string
	conn       *websocket.Conn
	out        *outbox
	done       chan struct{}
	localClose atomic.Bool // set when the relay itself initiated the close
}

// Manager multiplexes the control socket: it drains the outbound queue,
// parses and dispatches inbound frames, and probes liveness with pings. The
// first pump to fail ends the episode; the manager stops the others, closes
// the socket, and updates the tracker. It never dials the backend — the
// backend re-upgrades when it is ready.
type Manager struct {
	cfg      config.UpstreamConfig
	logger   *slog.Logger
	registry *session.Registry
	tracker  *Tracker

	// mu guards current, the single cell that decides whether a backend is
	// attached. Setting it on accept and clearing it on teardown is what
	// keeps two episodes from interleaving writes on one socket.
	mu      sync.Mutex
	current *episode
}

// NewManager creates a manager wired to the given registry and tracker.
func NewManager(cfg config.UpstreamConfig, registry *session.Registry, tracker *Tracker, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		tracker:  tracker,
	}
}

// Active reports whether a backend connection is currently attached.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil
}

// Accept takes ownership of a freshly upgraded socket and starts the episode
// pumps. It returns ErrBackendActive without touching the socket when a
// backend is already attached; the caller decides how to close it.
func (m *Manager) Accept(conn *websocket.Conn) error {
	ep := &episode{
		id:   uuid.New().String(),
		conn: conn,
		out:  newOutbox(),
		done: make(chan struct{}),
	}

	m.mu.Lock()
	if m.current != nil {
		m.mu.Unlock()
		return ErrBackendActive
	}
	m.current = ep
	m.mu.Unlock()

	m.tracker.MarkConnected()
	m.logger.Info("backend connected", "episode", ep.id, "remote", conn.RemoteAddr().String())

	go m.run(ep)
	return nil
}

// Shutdown asks the attached backend (if any) to close and waits for the
// episode to finish, bounded by ctx. Used on graceful process stop.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	ep := m.current
	m.mu.Unlock()
	if ep == nil {
		return nil
	}

	ep.localClose.Store(true)
	deadline := time.Now().Add(m.cfg.WriteTimeout)
	ep.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "relay shutting down"),
		deadline,
	)

	select {
	case <-ep.done:
		return nil
	case <-ctx.Done():
		ep.conn.Close()
		return ctx.Err()
	}
}

// run services one episode to completion and records the outcome.
func (m *Manager) run(ep *episode) {
	defer close(ep.done)

	outcome := m.race(ep)

	// Clear the attachment cell before anything else so a re-upgrading
	// backend is not bounced by a socket that is already dead.
	m.mu.Lock()
	if m.current == ep {
		m.current = nil
	}
	m.mu.Unlock()

	ep.out.close()
	ep.conn.Close()
	m.tracker.MarkDisconnected()

	if errors.Is(outcome, errCleanClose) || ep.localClose.Load() {
		m.logger.Info("backend disconnected", "episode", ep.id)
		return
	}

	retrying := m.tracker.RecordFailure()
	m.logger.Warn("control connection lost",
		"episode", ep.id,
		"error", outcome,
		"awaiting_reconnect", retrying,
	)
}

// race runs the three pumps and returns the error of whichever finished
// first. The group context cancels the survivors; a watchdog closes the
// socket so blocked reads and writes unwind instead of lingering.
func (m *Manager) race(ep *episode) error {
	g, ctx := errgroup.WithContext(context.Background())

	go func() {
		<-ctx.Done()
		ep.conn.Close()
	}()

	g.Go(func() error { return m.writePump(ctx, ep) })
	g.Go(func() error { return m.readPump(ep) })
	g.Go(func() error { return m.heartbeat(ctx, ep) })

	return g.Wait()
}

// writePump drains the outbox onto the socket in FIFO order, each write
// bounded by the configured timeout.
func (m *Manager) writePump(ctx context.Context, ep *episode) error {
	for {
		f, ok := ep.out.pop(ctx.Done())
		if !ok {
			if err := ctx.Err(); err != nil {
				return err
			}
			return errOutboxClosed
		}

		ep.conn.SetWriteDeadline(time.Now().Add(m.cfg.WriteTimeout))
		if err := ep.conn.WriteMessage(f.kind, f.data); err != nil {
			return fmt.Errorf("write frame: %w", err)
		}
	}
}

// readPump reads frames under a deadline derived from the heartbeat interval,
// so a peer that silently stops answering pings times out. Malformed frames
// are dropped; only transport-level trouble ends the episode.
func (m *Manager) readPump(ep *episode) error {
	readTimeout := m.cfg.ReadTimeout()

	ep.conn.SetReadDeadline(time.Now().Add(readTimeout))
	ep.conn.SetPongHandler(func(string) error {
		return ep.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})
	ep.conn.SetPingHandler(func(data string) error {
		ep.conn.SetReadDeadline(time.Now().Add(readTimeout))
		return ep.conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(m.cfg.WriteTimeout))
	})

	for {
		_, data, err := ep.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return errCleanClose
			}
			return fmt.Errorf("read frame: %w", err)
		}
		ep.conn.SetReadDeadline(time.Now().Add(readTimeout))

		msg, err := protocol.Decode(data)
		if err != nil {
			m.logger.Warn("dropping malformed frame", "episode", ep.id, "error", err)
			continue
		}

		m.dispatch(ep, msg)
	}
}

// heartbeat enqueues a protocol ping on a fixed interval. The ping shares the
// outbox with replies, so enqueue failure means the peer is already gone.
func (m *Manager) heartbeat(ctx context.Context, ep *episode) error {
	ticker := time.NewTicker(m.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := ep.out.push(frame{kind: websocket.PingMessage}); err != nil {
				return fmt.Errorf("heartbeat: %w", err)
			}
		}
	}
}

// dispatch handles one decoded control message.
func (m *Manager) dispatch(ep *episode, msg protocol.Message) {
	switch msg.Type {
	case protocol.TypeCreatePeer:
		m.registry.Register(msg.SessionID, msg.RoomID)
		m.logger.Info("session registered",
			"episode", ep.id,
			"session_id", msg.SessionID,
			"room_id", msg.RoomID,
		)
		m.reply(ep, protocol.NewPeerCreated(msg.SessionID, true))

	case protocol.TypeDestroyPeer:
		existed := m.registry.Destroy(msg.SessionID)
		m.logger.Info("session destroyed",
			"episode", ep.id,
			"session_id", msg.SessionID,
			"existed", existed,
		)
		m.reply(ep, protocol.NewPeerDestroyed(msg.SessionID))

	default:
		// Outbound-only variants arriving inbound. Not fatal.
		m.logger.Warn("ignoring unexpected inbound message", "episode", ep.id, "type", string(msg.Type))
	}
}

// reply enqueues an acknowledgement. A push failure means the episode is
// already tearing down, so it is only logged.
func (m *Manager) reply(ep *episode, msg protocol.Message) {
	if err := ep.out.push(frame{kind: websocket.TextMessage, data: protocol.Encode(msg)}); err != nil {
		m.logger.Warn("dropping reply, outbox closed", "episode", ep.id, "type", string(msg.Type))
	}
}
