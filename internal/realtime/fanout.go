// Package realtime pushes new messages and status changes to the live
// websocket connections of each tenant. Tenant groups are the only isolation
// control at this layer; callers must hand a connection the right tenant id.
package realtime

import (
	"sync"

	"github.com/google/uuid"

	"github.com/chatly/chatly/internal/conversation"
	"github.com/chatly/chatly/internal/log"
)

// Event is one frame pushed to subscribed connections.
type Event struct {
	Type    string                `json:"type"`
	Message *conversation.Message `json:"message,omitempty"`

	MessageID uuid.UUID           `json:"message_id,omitzero"`
	Status    conversation.Status `json:"status,omitempty"`
}

// Event types on the wire.
const (
	EventNewMessage   = "message:new"
	EventStatusUpdate = "message:update"
)

// sender is the connection surface the fanout needs. *Conn implements it;
// tests use in-memory fakes.
type sender interface {
	// Send queues an event without blocking. It reports false when the
	// connection's buffer is full or the connection is closed.
	Send(Event) bool
	// Close tears the connection down. Safe to call repeatedly.
	Close()
}

// Fanout maintains per-tenant broadcast groups. Publishes go to every
// connection in exactly the named tenant's group, in publish-call order (a
// single mutex serializes the queueing; per-connection writers drain in that
// order).
type Fanout struct {
	mu     sync.RWMutex
	groups map[uuid.UUID]map[sender]struct{}
	conns  map[sender]uuid.UUID
	logger log.Logger
}

// NewFanout creates an empty fanout.
func NewFanout(logger log.Logger) *Fanout {
	return &Fanout{
		groups: make(map[uuid.UUID]map[sender]struct{}),
		conns:  make(map[sender]uuid.UUID),
		logger: logger.With("component", "fanout"),
	}
}

// Join subscribes a connection to a tenant's group. A connection already in
// another group is moved; re-join replaces membership.
func (f *Fanout) Join(conn sender, tenantID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if prev, ok := f.conns[conn]; ok {
		f.removeLocked(conn, prev)
	}

	group, ok := f.groups[tenantID]
	if !ok {
		group = make(map[sender]struct{})
		f.groups[tenantID] = group
	}
	group[conn] = struct{}{}
	f.conns[conn] = tenantID

	f.logger.Debug("connection joined", "tenant_id", tenantID, "group_size", len(group))
}

// Leave removes a connection from its group.
func (f *Fanout) Leave(conn sender) {
	f.mu.Lock()
	defer f.mu.Unlock()

	tenantID, ok := f.conns[conn]
	if !ok {
		return
	}
	f.removeLocked(conn, tenantID)
	f.logger.Debug("connection left", "tenant_id", tenantID)
}

func (f *Fanout) removeLocked(conn sender, tenantID uuid.UUID) {
	delete(f.conns, conn)
	if group, ok := f.groups[tenantID]; ok {
		delete(group, conn)
		if len(group) == 0 {
			delete(f.groups, tenantID)
		}
	}
}

// PublishNewMessage delivers a persisted message to the tenant's group.
// Fire-and-forget: slow connections drop the event rather than block.
func (f *Fanout) PublishNewMessage(tenantID uuid.UUID, m *conversation.Message) {
	f.publish(tenantID, Event{Type: EventNewMessage, Message: m})
}

// PublishStatusUpdate delivers a message status change to the tenant's group.
func (f *Fanout) PublishStatusUpdate(tenantID, messageID uuid.UUID, status conversation.Status) {
	f.publish(tenantID, Event{Type: EventStatusUpdate, MessageID: messageID, Status: status})
}

// publish takes the write lock so concurrent publishers cannot interleave a
// tenant's event order between connection queues.
func (f *Fanout) publish(tenantID uuid.UUID, ev Event) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for conn := range f.groups[tenantID] {
		if !conn.Send(ev) {
			f.logger.Warn("dropping event for slow connection", "tenant_id", tenantID, "event", ev.Type)
		}
	}
}

// Close tears down every connection. Used on shutdown.
func (f *Fanout) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for conn := range f.conns {
		conn.Close()
	}
	f.groups = make(map[uuid.UUID]map[sender]struct{})
	f.conns = make(map[sender]uuid.UUID)
}
