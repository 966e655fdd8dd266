package realtime

import (
	"log/slog"

	"github.com/chattyhq/chatty/metrics"
)

// memberLister provides the point-in-time member snapshot used for fan-out.
type memberLister interface {
	MembersOf(chatroomID string) []ConnectionID
}

// Dispatcher delivers events to room members or to single connections.
//
// Delivery is best effort, at most once. A failure for one member is logged
// and counted, then forgotten: the REST write that triggered the broadcast
// has already committed, so there is no recovery action worth taking, and a
// client that missed an event re-fetches state over REST. No ordering is
// guaranteed across members; events to a single member arrive in the order
// Broadcast was called.
type Dispatcher struct {
	registry *Registry
	members  memberLister
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher over the given registry and membership
// snapshot source.
func NewDispatcher(registry *Registry, members memberLister, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{registry: registry, members: members, logger: logger}
}

// Broadcast delivers the event to every connection currently in the room.
// The member set is snapshotted once up front so no membership lock is held
// while writing to sockets; a stalled peer cannot block joins or leaves.
func (d *Dispatcher) Broadcast(chatroomID, event string, payload any) {
	ids := d.members.MembersOf(chatroomID)
	metrics.BroadcastsTotal.Inc()
	d.logger.Debug("broadcasting", "chatroom_id", chatroomID, "event", event, "members", len(ids))
	for _, id := range ids {
		d.deliver(id, event, payload)
	}
}

// SendTo delivers the event to a single connection with the same best-effort
// policy as Broadcast.
func (d *Dispatcher) SendTo(id ConnectionID, event string, payload any) {
	d.deliver(id, event, payload)
}

func (d *Dispatcher) deliver(id ConnectionID, event string, payload any) {
	sender, ok := d.registry.sender(id)
	if !ok {
		metrics.DeliveryFailuresTotal.WithLabelValues(event).Inc()
		d.logger.Debug("dropping event for gone connection", "connection_id", id, "event", event)
		return
	}
	if err := sender.Send(event, payload); err != nil {
		metrics.DeliveryFailuresTotal.WithLabelValues(event).Inc()
		d.logger.Warn("event delivery failed", "connection_id", id, "event", event, "error", err)
		return
	}
	metrics.EventsDeliveredTotal.WithLabelValues(event).Inc()
}
