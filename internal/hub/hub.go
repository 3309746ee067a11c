// ABOUTME: Tracks live connections grouped by session and fans out events.
// ABOUTME: Central coordinator for registration, removal, and broadcast delivery.

package hub

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/provenly/resale-gateway/internal/protocol"
)

// Hub tracks live connections grouped by session id and performs ordered
// fan-out of events to every connection in a session. All methods are safe
// for concurrent use; one goroutine per client connection drives the hub.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string][]*Connection
	counter  atomic.Uint64
	logger   *slog.Logger
}

// New creates a Hub. Pass nil logger for default.
func New(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		sessions: make(map[string][]*Connection),
		logger:   logger.With("component", "hub"),
	}
}

// Connect registers a transport under the given session, creating the
// session's entry if absent, and returns the new Connection with a fresh
// process-unique client id. Registration order is preserved for broadcast.
func (h *Hub) Connect(sessionID string, conn Conn) *Connection {
	c := &Connection{
		ClientID:  fmt.Sprintf("client-%d", h.counter.Add(1)),
		SessionID: sessionID,
		conn:      conn,
	}

	h.mu.Lock()
	h.sessions[sessionID] = append(h.sessions[sessionID], c)
	total := len(h.sessions[sessionID])
	h.mu.Unlock()

	h.logger.Info("client connected",
		"client_id", c.ClientID,
		"session_id", sessionID,
		"session_clients", total,
	)
	return c
}

// Disconnect removes the connection whose transport matches by identity from
// the session's entry; an emptied entry is removed from the index entirely.
// Disconnecting an already-absent connection is a no-op.
func (h *Hub) Disconnect(sessionID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.sessions[sessionID]
	if !ok {
		return
	}

	kept := conns[:0]
	var removed *Connection
	for _, c := range conns {
		if c.conn == conn {
			removed = c
			continue
		}
		kept = append(kept, c)
	}
	if removed == nil {
		return
	}

	if len(kept) == 0 {
		delete(h.sessions, sessionID)
	} else {
		h.sessions[sessionID] = kept
	}

	h.logger.Info("client disconnected",
		"client_id", removed.ClientID,
		"session_id", sessionID,
		"session_clients", len(kept),
	)
}

// Broadcast sends an event to every connection currently registered under the
// session, in registration order. A session with no entry is a no-op. Delivery
// is best-effort: a send failure for one connection is logged and does not
// abort delivery to the remaining connections.
func (h *Hub) Broadcast(sessionID string, event protocol.Event) {
	// Snapshot the membership so a concurrent connect/disconnect during
	// fan-out neither crashes nor double-sends.
	h.mu.RLock()
	conns, ok := h.sessions[sessionID]
	if !ok {
		h.mu.RUnlock()
		return
	}
	targets := make([]*Connection, len(conns))
	copy(targets, conns)
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.Send(event); err != nil {
			h.logger.Warn("broadcast send failed",
				"client_id", c.ClientID,
				"session_id", sessionID,
				"event_type", event.Type,
				"error", err,
			)
		}
	}
}

// SendPersonal sends an event to exactly one connection, independent of the
// session index. Delivery goes through the connection's write lock so a
// personal send never races a broadcast on the same transport.
func (h *Hub) SendPersonal(c *Connection, event protocol.Event) error {
	return c.Send(event)
}

// Close tears down every live connection and clears the session index. The
// HTTP server's shutdown never reaches hijacked WebSocket transports, so the
// gateway calls this during shutdown to end the read loops.
func (h *Hub) Close() {
	h.mu.Lock()
	sessions := h.sessions
	h.sessions = make(map[string][]*Connection)
	h.mu.Unlock()

	for sessionID, conns := range sessions {
		for _, c := range conns {
			if err := c.Close(); err != nil {
				h.logger.Warn("closing connection",
					"client_id", c.ClientID,
					"session_id", sessionID,
					"error", err,
				)
			}
		}
	}
}

// SessionCount returns the number of sessions with at least one live
// connection.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// ClientCount returns the number of live connections in the given session.
func (h *Hub) ClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}
