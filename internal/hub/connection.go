// ABOUTME: Represents a single live client attachment to a session.
// ABOUTME: Wraps the underlying transport with its hub-assigned client id.

package hub

import (
	"sync"

	"github.com/provenly/resale-gateway/internal/protocol"
)

// Conn is the subset of the WebSocket connection the hub needs for delivery
// and teardown. *websocket.Conn satisfies it; tests substitute fakes.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Connection is one live client attachment to a session's broadcast group.
// A Connection belongs to exactly one session for its lifetime and is owned
// by the Hub between Connect and Disconnect.
type Connection struct {
	// ClientID is unique within the process, assigned from a monotonic
	// counter at registration time.
	ClientID string

	// SessionID is the session this connection joined.
	SessionID string

	// writeMu serializes transport writes. The WebSocket transport allows
	// only one writer at a time, while sends arrive from every goroutine
	// broadcasting into the session.
	writeMu sync.Mutex
	conn    Conn
}

// Send transmits a single event to this connection only. Safe for concurrent
// use from any goroutine.
func (c *Connection) Send(event protocol.Event) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(event)
}

// Close tears down the underlying transport. It deliberately skips writeMu:
// closing must be able to interrupt a blocked write, and the transport
// permits Close alongside an in-flight write.
func (c *Connection) Close() error {
	return c.conn.Close()
}
