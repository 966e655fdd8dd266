package realtime

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/chattyhq/chatty/metrics"
)

var (
	// ErrInvalidRequest is returned when a join or leave payload is missing
	// a user or chatroom identifier. The message text is part of the client
	// contract for error events.
	ErrInvalidRequest = errors.New("user_id and chatroom_id are required")

	// ErrUnknownConnection is returned when an operation references a
	// connection that is not currently registered.
	ErrUnknownConnection = errors.New("connection is not registered")
)

// notifier delivers single-target confirmation events.
type notifier interface {
	SendTo(id ConnectionID, event string, payload any)
}

// Rooms is the membership table: which connections are subscribed to which
// chatrooms. A room exists only while it has members. All mutation is
// serialized behind one mutex; at the expected scale per-room locking buys
// nothing.
type Rooms struct {
	mu     sync.RWMutex
	byRoom map[string]map[ConnectionID]struct{}
	byConn map[ConnectionID]map[string]struct{}

	registry *Registry
	notifier notifier
	logger   *slog.Logger
}

// NewRooms creates an empty membership table backed by the given registry.
func NewRooms(registry *Registry, logger *slog.Logger) *Rooms {
	return &Rooms{
		byRoom:   make(map[string]map[ConnectionID]struct{}),
		byConn:   make(map[ConnectionID]map[string]struct{}),
		registry: registry,
		logger:   logger,
	}
}

// Join subscribes the connection to a chatroom and confirms with a joined
// event to that connection. Joining a room the connection already belongs to
// is a no-op that still reports success, so clients may re-emit join
// defensively after a reconnect.
func (r *Rooms) Join(id ConnectionID, userID, chatroomID string) error {
	if userID == "" || chatroomID == "" {
		return ErrInvalidRequest
	}

	r.mu.Lock()
	// The registry check must happen under the membership lock: DropConnection
	// also takes it, so a join racing an unregister either lands before the
	// cleanup sweep (and is removed by it) or observes the closing state and
	// is rejected. Either way the unregister wins.
	if !r.registry.Exists(id) {
		r.mu.Unlock()
		return ErrUnknownConnection
	}
	members, ok := r.byRoom[chatroomID]
	if !ok {
		members = make(map[ConnectionID]struct{})
		r.byRoom[chatroomID] = members
	}
	if _, already := members[id]; !already {
		members[id] = struct{}{}
		if r.byConn[id] == nil {
			r.byConn[id] = make(map[string]struct{})
		}
		r.byConn[id][chatroomID] = struct{}{}
		metrics.RoomJoinsTotal.Inc()
	}
	r.mu.Unlock()

	r.logger.Info("client joined chatroom", "connection_id", id, "user_id", userID, "chatroom_id", chatroomID)
	if r.notifier != nil {
		r.notifier.SendTo(id, EventJoined, RoomAck{ChatroomID: chatroomID})
	}
	return nil
}

// Leave removes the subscription if present and confirms with a left event.
// Leaving a room the connection is not in is a no-op that reports success.
func (r *Rooms) Leave(id ConnectionID, userID, chatroomID string) error {
	if userID == "" || chatroomID == "" {
		return ErrInvalidRequest
	}

	r.mu.Lock()
	if !r.registry.Exists(id) {
		r.mu.Unlock()
		return ErrUnknownConnection
	}
	if members, ok := r.byRoom[chatroomID]; ok {
		if _, present := members[id]; present {
			delete(members, id)
			if len(members) == 0 {
				delete(r.byRoom, chatroomID)
			}
			delete(r.byConn[id], chatroomID)
			if len(r.byConn[id]) == 0 {
				delete(r.byConn, id)
			}
			metrics.RoomLeavesTotal.Inc()
		}
	}
	r.mu.Unlock()

	r.logger.Info("client left chatroom", "connection_id", id, "user_id", userID, "chatroom_id", chatroomID)
	if r.notifier != nil {
		r.notifier.SendTo(id, EventLeft, RoomAck{ChatroomID: chatroomID})
	}
	return nil
}

// MembersOf returns a point-in-time copy of the room's member set. Callers
// may iterate it without holding any lock; concurrent joins and leaves land
// in later snapshots, never in a half-applied one.
func (r *Rooms) MembersOf(chatroomID string) []ConnectionID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.byRoom[chatroomID]
	out := make([]ConnectionID, 0, len(members))
	for id := range members {
		out = append(out, id)
	}
	return out
}

// DropConnection removes the connection from every room it was a member of.
// Called by the registry during unregister; safe to call for a connection
// that never joined anything.
func (r *Rooms) DropConnection(id ConnectionID) {
	r.mu.Lock()
	rooms := r.byConn[id]
	delete(r.byConn, id)
	for chatroomID := range rooms {
		members := r.byRoom[chatroomID]
		delete(members, id)
		if len(members) == 0 {
			delete(r.byRoom, chatroomID)
		}
	}
	r.mu.Unlock()

	if len(rooms) > 0 {
		r.logger.Debug("membership cleaned up", "connection_id", id, "rooms", len(rooms))
	}
}

// RoomCount returns the number of rooms that currently have members.
func (r *Rooms) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byRoom)
}
