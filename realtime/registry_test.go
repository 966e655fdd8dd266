package realtime

import (
	"errors"
	"testing"
)

func TestRegisterAssignsUniqueIDs(t *testing.T) {
	core := newTestCore(t, 0)

	seen := make(map[ConnectionID]bool)
	for i := 0; i < 50; i++ {
		id, _ := connect(t, core)
		if id == "" {
			t.Fatal("Register returned an empty ID")
		}
		if seen[id] {
			t.Fatalf("duplicate connection ID %s", id)
		}
		seen[id] = true
	}

	if got := core.Registry.Count(); got != 50 {
		t.Errorf("expected 50 registered connections, got %d", got)
	}
}

func TestRegisterConnectionLimit(t *testing.T) {
	core := newTestCore(t, 2)

	first, _ := connect(t, core)
	connect(t, core)

	if _, err := core.Registry.Register(&fakeSender{}); !errors.Is(err, ErrConnectionLimit) {
		t.Fatalf("expected ErrConnectionLimit, got %v", err)
	}

	// Freeing a slot makes registration possible again.
	core.Registry.Unregister(first)
	if _, err := core.Registry.Register(&fakeSender{}); err != nil {
		t.Fatalf("expected registration to succeed after unregister, got %v", err)
	}
}

func TestUnregisterIsIdempotent(t *testing.T) {
	core := newTestCore(t, 0)

	id, _ := connect(t, core)
	core.Registry.Unregister(id)
	// Duplicate disconnect signals from the transport must be harmless.
	core.Registry.Unregister(id)
	core.Registry.Unregister(ConnectionID("never-registered"))

	if core.Registry.Count() != 0 {
		t.Errorf("expected 0 connections, got %d", core.Registry.Count())
	}
}

func TestExists(t *testing.T) {
	core := newTestCore(t, 0)

	id, _ := connect(t, core)
	if !core.Registry.Exists(id) {
		t.Error("Exists returned false for a registered connection")
	}

	core.Registry.Unregister(id)
	if core.Registry.Exists(id) {
		t.Error("Exists returned true after unregister")
	}

	if core.Registry.Exists(ConnectionID("nope")) {
		t.Error("Exists returned true for an unknown ID")
	}
}
