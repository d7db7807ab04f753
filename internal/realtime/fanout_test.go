package realtime

import (
	"testing"

	"github.com/google/uuid"

	"github.com/chatly/chatly/internal/conversation"
	"github.com/chatly/chatly/internal/log"
)

type fakeConn struct {
	events []Event
	full   bool
	closed bool
}

func (f *fakeConn) Send(ev Event) bool {
	if f.full || f.closed {
		return false
	}
	f.events = append(f.events, ev)
	return true
}

func (f *fakeConn) Close() { f.closed = true }

func msg(content string) *conversation.Message {
	return &conversation.Message{
		ID:      uuid.New(),
		Sender:  conversation.SenderVisitor,
		Content: content,
		Status:  conversation.StatusSent,
	}
}

func TestFanout_TenantIsolation(t *testing.T) {
	f := NewFanout(log.NewNop())
	tenantA, tenantB := uuid.New(), uuid.New()
	connA, connB := &fakeConn{}, &fakeConn{}
	f.Join(connA, tenantA)
	f.Join(connB, tenantB)

	f.PublishNewMessage(tenantA, msg("for A"))
	f.PublishStatusUpdate(tenantA, uuid.New(), conversation.StatusSeen)

	if len(connA.events) != 2 {
		t.Errorf("tenant A got %d events, want 2", len(connA.events))
	}
	if len(connB.events) != 0 {
		t.Errorf("tenant B got %d events, want 0", len(connB.events))
	}
}

func TestFanout_DeliversToWholeGroup(t *testing.T) {
	f := NewFanout(log.NewNop())
	tenantID := uuid.New()
	conns := []*fakeConn{{}, {}, {}}
	for _, c := range conns {
		f.Join(c, tenantID)
	}

	f.PublishNewMessage(tenantID, msg("hello"))

	for i, c := range conns {
		if len(c.events) != 1 {
			t.Errorf("conn %d got %d events, want 1", i, len(c.events))
		}
	}
}

func TestFanout_PublishOrderPreserved(t *testing.T) {
	f := NewFanout(log.NewNop())
	tenantID := uuid.New()
	conn := &fakeConn{}
	f.Join(conn, tenantID)

	first, second := msg("first"), msg("second")
	f.PublishNewMessage(tenantID, first)
	f.PublishNewMessage(tenantID, second)
	f.PublishStatusUpdate(tenantID, first.ID, conversation.StatusDelivered)

	if len(conn.events) != 3 {
		t.Fatalf("got %d events, want 3", len(conn.events))
	}
	if conn.events[0].Message.ID != first.ID || conn.events[1].Message.ID != second.ID {
		t.Error("message events out of publish order")
	}
	if conn.events[2].Type != EventStatusUpdate || conn.events[2].Status != conversation.StatusDelivered {
		t.Errorf("third event = %+v, want status update", conn.events[2])
	}
}

func TestFanout_RejoinReplacesGroup(t *testing.T) {
	f := NewFanout(log.NewNop())
	tenantA, tenantB := uuid.New(), uuid.New()
	conn := &fakeConn{}

	f.Join(conn, tenantA)
	f.Join(conn, tenantB)

	f.PublishNewMessage(tenantA, msg("for A"))
	if len(conn.events) != 0 {
		t.Error("connection should have left tenant A's group")
	}

	f.PublishNewMessage(tenantB, msg("for B"))
	if len(conn.events) != 1 {
		t.Errorf("got %d events from tenant B, want 1", len(conn.events))
	}
}

func TestFanout_LeaveStopsDelivery(t *testing.T) {
	f := NewFanout(log.NewNop())
	tenantID := uuid.New()
	conn := &fakeConn{}
	f.Join(conn, tenantID)
	f.Leave(conn)

	f.PublishNewMessage(tenantID, msg("late"))
	if len(conn.events) != 0 {
		t.Errorf("got %d events after leave, want 0", len(conn.events))
	}

	// Leaving twice is harmless.
	f.Leave(conn)
}

func TestFanout_PublishToEmptyGroup(t *testing.T) {
	f := NewFanout(log.NewNop())
	// Must not panic.
	f.PublishNewMessage(uuid.New(), msg("nobody home"))
}

func TestFanout_SlowConnectionDoesNotBlockOthers(t *testing.T) {
	f := NewFanout(log.NewNop())
	tenantID := uuid.New()
	slow := &fakeConn{full: true}
	healthy := &fakeConn{}
	f.Join(slow, tenantID)
	f.Join(healthy, tenantID)

	f.PublishNewMessage(tenantID, msg("hello"))

	if len(healthy.events) != 1 {
		t.Errorf("healthy conn got %d events, want 1", len(healthy.events))
	}
	if len(slow.events) != 0 {
		t.Errorf("slow conn should have dropped the event")
	}
}

func TestFanout_CloseTearsDownConnections(t *testing.T) {
	f := NewFanout(log.NewNop())
	tenantID := uuid.New()
	conn := &fakeConn{}
	f.Join(conn, tenantID)

	f.Close()

	if !conn.closed {
		t.Error("Close should close member connections")
	}
	f.PublishNewMessage(tenantID, msg("after close"))
	if len(conn.events) != 0 {
		t.Error("no delivery after Close")
	}
}
