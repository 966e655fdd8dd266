// Package websocket bridges gorilla/websocket connections to the realtime
// core.
//
// Each accepted connection gets a client with two goroutines: a read pump
// that feeds inbound frames to the gateway and signals disconnect on exit,
// and a write pump that drains a buffered send queue with per-write
// deadlines and keepalive pings.
//
// The client implements realtime.Sender. Send never blocks: frames are
// queued on a buffered channel and a full queue or closed connection is
// reported as a failed delivery, which the dispatcher logs and drops. A
// stalled peer therefore costs at most one write deadline, never a lock.
//
// Message Protocol:
//
// Frames are JSON envelopes {event, data} in both directions:
//   - Incoming: {"event": "join", "data": {"user_id": "...", "chatroom_id": "..."}}
//   - Outgoing: {"event": "new_message", "data": {...message record...}}
package websocket
