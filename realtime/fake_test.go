package realtime

import (
	"io"
	"log/slog"
	"sync"
	"testing"
)

// fakeSender records events delivered to one connection. When failErr is
// set, every Send fails with it.
type fakeSender struct {
	mu      sync.Mutex
	events  []fakeEvent
	failErr error
}

type fakeEvent struct {
	name    string
	payload any
}

func (s *fakeSender) Send(event string, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	s.events = append(s.events, fakeEvent{name: event, payload: payload})
	return nil
}

func (s *fakeSender) received(name string) []fakeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []fakeEvent
	for _, e := range s.events {
		if e.name == name {
			out = append(out, e)
		}
	}
	return out
}

func (s *fakeSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func newTestCore(t *testing.T, maxConns int) *Core {
	t.Helper()
	return New(Options{
		MaxConnections: maxConns,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

// connect registers a fake sender and fails the test if registration fails.
func connect(t *testing.T, core *Core) (ConnectionID, *fakeSender) {
	t.Helper()
	sender := &fakeSender{}
	id, err := core.Registry.Register(sender)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return id, sender
}

func hasMember(members []ConnectionID, id ConnectionID) bool {
	for _, m := range members {
		if m == id {
			return true
		}
	}
	return false
}
