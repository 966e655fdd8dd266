package realtime

import (
	"encoding/json"
	"testing"
)

func frame(t *testing.T, event string, data any) []byte {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	b, err := json.Marshal(Envelope{Event: event, Data: raw})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return b
}

func TestGatewayJoinFrame(t *testing.T) {
	core := newTestCore(t, 0)
	id, sender := connect(t, core)

	core.Gateway.HandleFrame(id, frame(t, EventJoin, RoomRequest{UserID: "u1", ChatroomID: "r1"}))

	if !hasMember(core.Rooms.MembersOf("r1"), id) {
		t.Fatal("join frame did not add membership")
	}
	if len(sender.received(EventJoined)) != 1 {
		t.Error("join frame was not acknowledged")
	}
}

func TestGatewayLeaveFrame(t *testing.T) {
	core := newTestCore(t, 0)
	id, sender := connect(t, core)

	core.Gateway.HandleFrame(id, frame(t, EventJoin, RoomRequest{UserID: "u1", ChatroomID: "r1"}))
	core.Gateway.HandleFrame(id, frame(t, EventLeave, RoomRequest{UserID: "u1", ChatroomID: "r1"}))

	if hasMember(core.Rooms.MembersOf("r1"), id) {
		t.Fatal("leave frame did not remove membership")
	}
	if len(sender.received(EventLeft)) != 1 {
		t.Error("leave frame was not acknowledged")
	}
}

func TestGatewayJoinFrameMissingFields(t *testing.T) {
	core := newTestCore(t, 0)
	id, sender := connect(t, core)

	core.Gateway.HandleFrame(id, frame(t, EventJoin, RoomRequest{UserID: "u1"}))

	errs := sender.received(EventError)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error event, got %d", len(errs))
	}
	if msg := errs[0].payload.(ErrorPayload).Message; msg != "user_id and chatroom_id are required" {
		t.Errorf("unexpected error message %q", msg)
	}
	if core.Rooms.RoomCount() != 0 {
		t.Error("invalid join mutated membership")
	}
}

func TestGatewayMalformedFrame(t *testing.T) {
	core := newTestCore(t, 0)
	id, sender := connect(t, core)

	core.Gateway.HandleFrame(id, []byte("{not json"))

	if len(sender.received(EventError)) != 1 {
		t.Error("malformed frame did not produce an error event")
	}
}

func TestGatewayUnknownEvent(t *testing.T) {
	core := newTestCore(t, 0)
	id, sender := connect(t, core)

	core.Gateway.HandleFrame(id, frame(t, "shout", map[string]string{"x": "y"}))

	if len(sender.received(EventError)) != 1 {
		t.Error("unknown event did not produce an error event")
	}
}

func TestNotifyMessageCreatedFansOutToRoomOnly(t *testing.T) {
	core := newTestCore(t, 0)

	a, senderA := connect(t, core)
	b, senderB := connect(t, core)
	_, senderC := connect(t, core)

	core.Gateway.HandleFrame(a, frame(t, EventJoin, RoomRequest{UserID: "u1", ChatroomID: "r1"}))
	core.Gateway.HandleFrame(b, frame(t, EventJoin, RoomRequest{UserID: "u2", ChatroomID: "r1"}))

	record := map[string]any{
		"id":           "m1",
		"message_text": "hi",
		"user_id":      "u1",
		"chatroom_id":  "r1",
	}
	core.Gateway.NotifyMessageCreated("r1", record)

	for name, s := range map[string]*fakeSender{"a": senderA, "b": senderB} {
		got := s.received(EventNewMessage)
		if len(got) != 1 {
			t.Fatalf("member %s received %d new_message events, want 1", name, len(got))
		}
		if got[0].payload.(map[string]any)["message_text"] != "hi" {
			t.Errorf("member %s received wrong payload: %v", name, got[0].payload)
		}
	}
	if senderC.received(EventNewMessage) != nil {
		t.Error("connection outside the room received new_message")
	}
}

func TestNotifyMessageCreatedAfterDisconnect(t *testing.T) {
	core := newTestCore(t, 0)
	id, sender := connect(t, core)

	core.Gateway.HandleFrame(id, frame(t, EventJoin, RoomRequest{UserID: "u1", ChatroomID: "r1"}))
	core.Gateway.HandleDisconnect(id)

	// Room is now empty; the notification goes nowhere and raises nothing.
	core.Gateway.NotifyMessageCreated("r1", map[string]string{"id": "m1"})

	if sender.received(EventNewMessage) != nil {
		t.Error("disconnected client received new_message")
	}
}
