// ABOUTME: WebSocket session lifecycle: join handshake, analyst kickoff, relay loop, leave
// ABOUTME: Implements GET /ws/session/{id} on top of the hub, store, and analyst pipeline

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/provenly/resale-gateway/internal/analyst"
	"github.com/provenly/resale-gateway/internal/hub"
	"github.com/provenly/resale-gateway/internal/protocol"
	"github.com/provenly/resale-gateway/internal/store"
)

// closeWriteTimeout bounds the control-frame write when rejecting a session.
const closeWriteTimeout = 5 * time.Second

// handleSessionSocket upgrades GET /ws/session/{id} and runs the connection's
// lifecycle until the peer disconnects.
func (g *Gateway) handleSessionSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimPrefix(r.URL.Path, "/ws/session/")
	if sessionID == "" || strings.Contains(sessionID, "/") {
		g.sendJSONError(w, http.StatusNotFound, "invalid session path")
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		g.logger.Error("websocket upgrade failed", "session_id", sessionID, "error", err)
		return
	}
	defer conn.Close()

	g.serveSession(r.Context(), sessionID, conn)
}

// serveSession drives one connection through the join handshake, the analyst
// kickoff, the message relay loop, and leave handling. Broadcast ordering
// within this goroutine is fixed: error-or-agent-output, then the joined
// status, then relayed messages.
func (g *Gateway) serveSession(ctx context.Context, sessionID string, conn *websocket.Conn) {
	c := g.hub.Connect(sessionID, conn)
	logger := g.logger.With("client_id", c.ClientID, "session_id", sessionID)

	connected := protocol.Status(fmt.Sprintf("connected as %s to session %s", c.ClientID, sessionID))
	if err := g.hub.SendPersonal(c, connected); err != nil {
		logger.Warn("sending connected status", "error", err)
	}

	sess, err := g.store.GetSession(ctx, sessionID)
	if err != nil {
		g.rejectSession(c, conn, logger, err)
		return
	}

	g.announceJoin(ctx, sess, c)

	g.relayLoop(c, conn, logger)

	g.hub.Disconnect(sessionID, conn)
	g.hub.Broadcast(sessionID, protocol.Status(c.ClientID+" left"))
}

// rejectSession reports a failed session lookup and closes the transport with
// a policy-violation code. The connection was already registered with the hub
// before the lookup, so it must be disconnected here to avoid a stale
// registration outliving the rejected handshake.
func (g *Gateway) rejectSession(c *hub.Connection, conn *websocket.Conn, logger *slog.Logger, err error) {
	detail := "session not found"
	if !errors.Is(err, store.ErrSessionNotFound) {
		logger.Error("session lookup failed", "error", err)
		detail = "session lookup failed"
	}

	if sendErr := g.hub.SendPersonal(c, protocol.Error(detail)); sendErr != nil {
		logger.Error("sending rejection", "error", sendErr)
	}

	g.hub.Disconnect(c.SessionID, conn)

	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, detail)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteTimeout))
}

// announceJoin runs the listing branch for a newly joined connection and then
// broadcasts the joined status. A session without a resolvable listing still
// joins; the joiner just gets told why no review is coming.
func (g *Gateway) announceJoin(ctx context.Context, sess *store.Session, c *hub.Connection) {
	switch {
	case sess.SelectedItemID == nil || *sess.SelectedItemID == "":
		_ = c.Send(protocol.Error("no listing selected"))

	default:
		listing, err := g.store.GetListing(ctx, *sess.SelectedItemID)
		switch {
		case errors.Is(err, store.ErrListingNotFound):
			_ = c.Send(protocol.Error("selected listing not found"))
		case err != nil:
			g.logger.Error("listing lookup failed", "session_id", sess.SessionID, "item_id", *sess.SelectedItemID, "error", err)
			_ = c.Send(protocol.Error("listing lookup failed"))
		default:
			review := g.analyst.Review(ctx, listing)
			g.hub.Broadcast(sess.SessionID, protocol.AgentOutput(analyst.AgentName, review))
		}
	}

	g.hub.Broadcast(sess.SessionID, protocol.Status(c.ClientID+" joined"))
}

// relayLoop broadcasts each inbound text payload verbatim to the whole
// session until the transport closes. There is no parsing or validation of
// payload content.
func (g *Gateway) relayLoop(c *hub.Connection, conn *websocket.Conn, logger *slog.Logger) {
	idle := g.config.Session.IdleTimeout
	for {
		if idle > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(idle))
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			logger.Debug("read loop ended", "error", err)
			return
		}

		g.hub.Broadcast(c.SessionID, protocol.Message(c.ClientID, string(data)))
	}
}
