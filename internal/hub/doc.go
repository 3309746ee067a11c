// Package hub tracks live WebSocket connections grouped by session id and
// fans events out to every member of a session.
//
// # Overview
//
// Each connecting client is registered with Connect, which assigns a
// process-unique client id from a monotonic counter and appends the
// connection to its session's membership list in join order. Broadcast
// iterates a point-in-time snapshot of that list so that concurrent joins
// and leaves during fan-out neither crash nor double-send.
//
// Delivery is best-effort: a failed send to one connection is logged and
// the remaining members still receive the event. There are no retries.
//
// # Concurrency
//
// One goroutine per client connection drives the hub. Index mutation
// (Connect/Disconnect) is serialized under a single mutex; broadcasts take a
// read lock only long enough to snapshot the membership.
package hub
