package realtime

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/chattyhq/chatty/metrics"
)

// ErrConnectionLimit is returned by Register when a connection cap is
// configured and reached. The transport rejects the connection before it is
// ever visible to the rest of the core.
var ErrConnectionLimit = errors.New("connection limit reached")

// ConnectionID identifies a live client connection. IDs are opaque tokens
// allocated at connect time and never reused.
type ConnectionID string

// ConnState tracks the lifecycle of a registered connection.
type ConnState int

const (
	StateConnected ConnState = iota
	StateClosing
	StateClosed
)

// Sender is the write side of a client connection. Implementations must not
// block: a send that cannot be accepted immediately fails instead.
type Sender interface {
	Send(event string, payload any) error
}

type connection struct {
	sender Sender
	state  ConnState
}

// membershipDropper removes a closing connection from every room it joined.
type membershipDropper interface {
	DropConnection(ConnectionID)
}

// Registry tracks live connections and owns their lifecycle. No component
// outside the registry mutates connection state.
type Registry struct {
	mu       sync.RWMutex
	conns    map[ConnectionID]*connection
	maxConns int // 0 means uncapped

	dropper membershipDropper
	logger  *slog.Logger
}

// NewRegistry creates a registry. maxConns of 0 disables the connection cap.
func NewRegistry(maxConns int, logger *slog.Logger) *Registry {
	return &Registry{
		conns:    make(map[ConnectionID]*connection),
		maxConns: maxConns,
		logger:   logger,
	}
}

// Register allocates a fresh connection ID for an accepted transport
// connection and records it as connected.
func (r *Registry) Register(s Sender) (ConnectionID, error) {
	r.mu.Lock()
	if r.maxConns > 0 && len(r.conns) >= r.maxConns {
		r.mu.Unlock()
		return "", ErrConnectionLimit
	}
	id := ConnectionID(uuid.NewString())
	r.conns[id] = &connection{sender: s, state: StateConnected}
	total := len(r.conns)
	r.mu.Unlock()

	metrics.ActiveConnections.Inc()
	r.logger.Info("client connected", "connection_id", id, "connections", total)
	return id, nil
}

// Unregister marks the connection closed and removes it from every room it
// belonged to. Unregistering an unknown ID is a no-op, so duplicate
// disconnect signals from the transport are harmless.
func (r *Registry) Unregister(id ConnectionID) {
	r.mu.Lock()
	conn, ok := r.conns[id]
	if !ok || conn.state != StateConnected {
		r.mu.Unlock()
		return
	}
	conn.state = StateClosing
	r.mu.Unlock()

	// Membership cleanup happens outside the registry lock; the rooms table
	// rejects joins for any connection no longer in StateConnected, so a
	// concurrent join cannot resurrect a membership after this point.
	if r.dropper != nil {
		r.dropper.DropConnection(id)
	}

	r.mu.Lock()
	conn.state = StateClosed
	delete(r.conns, id)
	total := len(r.conns)
	r.mu.Unlock()

	metrics.ActiveConnections.Dec()
	r.logger.Info("client disconnected", "connection_id", id, "connections", total)
}

// Exists reports whether the connection is currently registered and connected.
func (r *Registry) Exists(id ConnectionID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[id]
	return ok && conn.state == StateConnected
}

// Count returns the number of registered connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// sender returns the write side for a connection still present in the
// registry. Closing connections are included: an in-flight broadcast may
// still try them and simply record a failed delivery.
func (r *Registry) sender(id ConnectionID) (Sender, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[id]
	if !ok {
		return nil, false
	}
	return conn.sender, true
}
