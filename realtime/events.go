package realtime

import "encoding/json"

// Wire event names. These are part of the client contract and case-sensitive.
const (
	EventJoin       = "join"
	EventLeave      = "leave"
	EventJoined     = "joined"
	EventLeft       = "left"
	EventNewMessage = "new_message"
	EventError      = "error"
)

// Envelope is the frame format exchanged with clients: an event name plus a
// payload the core does not interpret.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// RoomRequest is the payload clients send with join and leave frames.
type RoomRequest struct {
	UserID     string `json:"user_id"`
	ChatroomID string `json:"chatroom_id"`
}

// RoomAck confirms a join or leave back to the requesting connection.
type RoomAck struct {
	ChatroomID string `json:"chatroom_id"`
}

// ErrorPayload is sent to the originating connection when a request fails.
// It is never broadcast.
type ErrorPayload struct {
	Message string `json:"message"`
}
