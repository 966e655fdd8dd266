// Package realtime implements room-based fan-out of chat events to live
// websocket connections.
//
// The package is built from four components:
//
//   - Registry tracks live connections and owns their lifecycle. Connections
//     are referenced everywhere else only by their opaque ConnectionID.
//   - Rooms is the membership table mapping chatroom IDs to the set of
//     subscribed connections (and the inverse). Rooms exist implicitly: a
//     room appears when its first member joins and is garbage collected when
//     its member set empties.
//   - Dispatcher delivers named events to the members of a room, or to a
//     single connection. Delivery is best effort and per-connection
//     independent: one stalled or closing peer never blocks the others.
//   - Gateway is the thin adapter between the transport (inbound join/leave
//     frames, connect/disconnect signals) and the components above. It also
//     exposes NotifyMessageCreated, the single entry point the REST layer
//     uses to fan out a newly persisted message.
//
// Concurrency:
//
// The registry and membership table are shared mutable state touched by
// every inbound frame, every REST message post, and every disconnect
// callback. Both are guarded by coarse mutexes; MembersOf returns a
// point-in-time copy so broadcasts never hold the membership lock while
// writing to sockets.
//
// Usage:
//
//	core := realtime.New(realtime.Options{MaxConnections: 0})
//	id, err := core.Gateway.HandleConnect(sender)
//	core.Gateway.HandleFrame(id, frame)
//	core.Gateway.NotifyMessageCreated(chatroomID, record)
//
// A Core carries no process-wide state; independent instances coexist in one
// process, which keeps the package testable.
package realtime
