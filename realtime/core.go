package realtime

import "log/slog"

// Options tunes a Core instance.
type Options struct {
	// MaxConnections caps concurrent registered connections. 0 disables the cap.
	MaxConnections int
	// Logger defaults to slog.Default when nil.
	Logger *slog.Logger
}

// Core bundles the registry, membership table, dispatcher, and gateway wired
// together. Each Core is independent; construct one per process in main, or
// several side by side in tests.
type Core struct {
	Registry   *Registry
	Rooms      *Rooms
	Dispatcher *Dispatcher
	Gateway    *Gateway
}

// New wires a Core from the given options.
func New(opts Options) *Core {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	registry := NewRegistry(opts.MaxConnections, logger)
	rooms := NewRooms(registry, logger)
	dispatcher := NewDispatcher(registry, rooms, logger)
	rooms.notifier = dispatcher
	registry.dropper = rooms

	return &Core{
		Registry:   registry,
		Rooms:      rooms,
		Dispatcher: dispatcher,
		Gateway:    NewGateway(registry, rooms, dispatcher, logger),
	}
}
