// Package conversation defines conversations and their messages, and the
// tenant-scoped PostgreSQL store backing them.
//
// Every store operation takes the tenant id and scopes its queries to it; a
// record belonging to another tenant is indistinguishable from a missing one.
package conversation

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors returned by the store.
var (
	// ErrNotFound indicates the conversation or message does not exist within
	// the calling tenant's scope.
	ErrNotFound = errors.New("conversation not found")

	// ErrStatusRegression indicates an attempt to move a message's delivery
	// status backwards.
	ErrStatusRegression = errors.New("message status regression")
)

// Sender identifies who produced a message.
type Sender string

const (
	SenderVisitor Sender = "visitor"
	SenderAgentAI Sender = "agent-ai"
)

// Valid reports whether s is a known sender.
func (s Sender) Valid() bool {
	return s == SenderVisitor || s == SenderAgentAI
}

// Status is the delivery state of a message. It only moves forward:
// sent → delivered → seen.
type Status string

const (
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusSeen      Status = "seen"
)

var statusRank = map[Status]int{
	StatusSent:      0,
	StatusDelivered: 1,
	StatusSeen:      2,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Rank returns the monotonic ordering position of s, or -1 for unknown values.
func (s Status) Rank() int {
	r, ok := statusRank[s]
	if !ok {
		return -1
	}
	return r
}

// Conversation is one visitor thread within a tenant.
type Conversation struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	VisitorID string    `json:"visitor_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is a single utterance inside a conversation.
type Message struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	Sender         Sender    `json:"sender"`
	Content        string    `json:"content"`
	Status         Status    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}
