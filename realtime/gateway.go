package realtime

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

// Gateway adapts transport-level signals to the core and exposes the single
// entry point the REST layer uses to trigger fan-out. It holds no state of
// its own.
type Gateway struct {
	registry   *Registry
	rooms      *Rooms
	dispatcher *Dispatcher
	logger     *slog.Logger
}

// NewGateway creates a gateway over already-wired core components.
func NewGateway(registry *Registry, rooms *Rooms, dispatcher *Dispatcher, logger *slog.Logger) *Gateway {
	return &Gateway{registry: registry, rooms: rooms, dispatcher: dispatcher, logger: logger}
}

// HandleConnect registers a newly accepted transport connection and returns
// its ID. ErrConnectionLimit means the transport should refuse the peer.
func (g *Gateway) HandleConnect(s Sender) (ConnectionID, error) {
	return g.registry.Register(s)
}

// HandleDisconnect tears down the connection and all of its memberships.
// Safe to call more than once for the same connection.
func (g *Gateway) HandleDisconnect(id ConnectionID) {
	g.registry.Unregister(id)
}

// HandleFrame decodes one inbound client frame and applies it. Malformed or
// rejected requests are reported back to the sender as error events and
// never reach other connections.
func (g *Gateway) HandleFrame(id ConnectionID, frame []byte) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		g.logger.Debug("malformed frame", "connection_id", id, "error", err)
		g.sendError(id, "invalid frame")
		return
	}

	switch env.Event {
	case EventJoin, EventLeave:
		var req RoomRequest
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &req); err != nil {
				g.sendError(id, "invalid payload")
				return
			}
		}
		var err error
		if env.Event == EventJoin {
			err = g.rooms.Join(id, req.UserID, req.ChatroomID)
		} else {
			err = g.rooms.Leave(id, req.UserID, req.ChatroomID)
		}
		if err != nil {
			g.sendError(id, err.Error())
		}
	default:
		g.sendError(id, fmt.Sprintf("unknown event %q", env.Event))
	}
}

// NotifyMessageCreated fans a freshly persisted message out to its chatroom
// as a new_message event. Fire and forget: the caller has already committed
// the write, so nothing here is allowed to fail loudly.
func (g *Gateway) NotifyMessageCreated(chatroomID string, record any) {
	g.dispatcher.Broadcast(chatroomID, EventNewMessage, record)
}

func (g *Gateway) sendError(id ConnectionID, msg string) {
	g.dispatcher.SendTo(id, EventError, ErrorPayload{Message: msg})
}
