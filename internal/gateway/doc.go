// Package gateway orchestrates the resale-gateway server components.
//
// # Overview
//
// The gateway package is the central coordinator of the server. It owns the
// HTTP server, the session store, the connection hub, and the analyst
// pipeline, and implements the WebSocket connection lifecycle on top of them.
//
// # HTTP API
//
// Endpoints registered in gateway.go, handlers in api.go:
//
//   - POST /api/sessions - Create a session
//   - GET /api/sessions - List sessions
//   - GET /api/sessions/{id} - Get one session
//   - POST /api/sessions/{id}/select-item - Point a session at a listing
//   - GET /api/listings - List the catalog
//   - GET /api/listings/{id} - Get one listing
//   - GET /ping - Liveness probe ({"msg":"pong"})
//   - GET /health, /health/ready - Health checks
//   - GET /ws/session/{id} - WebSocket session attachment
//
// # WebSocket lifecycle
//
// A connection moves through a fixed sequence (ws.go):
//
//  1. Register with the hub; receive a personal "connected as client-N" status.
//  2. Resolve the session. An unknown session gets a personal error event and
//     a policy-violation close; the hub registration is removed first.
//  3. If the session has a resolvable listing, the analyst review is
//     broadcast as an agent_output event; otherwise the joiner gets a
//     personal error event saying why.
//  4. A "client-N joined" status is broadcast to the session.
//  5. Every inbound text payload is re-broadcast verbatim as a message event
//     tagged with the sender's client id, until the peer disconnects.
//  6. On disconnect the connection is removed and "client-N left" is
//     broadcast.
//
// Sends issued by one connection's goroutine keep this order because each
// send completes before the next is issued; broadcasts from different
// connections may interleave with each other.
//
// # Wire protocol
//
// Server events are JSON objects with a "type" discriminator: status, error,
// agent_output, message. See the protocol package for the shapes. Inbound
// client frames are raw text with no required schema.
package gateway
