package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/chatly/chatly/internal/conversation"
	"github.com/chatly/chatly/internal/knowledge"
	"github.com/chatly/chatly/internal/log"
	"github.com/chatly/chatly/internal/widget"
)

// ErrInvalidInput indicates the incoming message content is empty after
// trimming. Surfaced to the caller; nothing is written.
var ErrInvalidInput = errors.New("invalid input")

// historyLimit is the message window handed to the response selector.
const historyLimit = 10

// ConversationStore is the pipeline's view of conversation persistence.
type ConversationStore interface {
	Get(ctx context.Context, tenantID, convID uuid.UUID) (*conversation.Conversation, error)
	AppendMessage(ctx context.Context, convID uuid.UUID, sender conversation.Sender, content string) (*conversation.Message, error)
	Recent(ctx context.Context, convID uuid.UUID, limit int) ([]conversation.Message, error)
	Touch(ctx context.Context, convID uuid.UUID) error
}

// KnowledgeStore is the pipeline's read-only view of the knowledge base.
type KnowledgeStore interface {
	List(ctx context.Context, tenantID uuid.UUID) ([]knowledge.Entry, error)
}

// ConfigProvider supplies the tenant's AI configuration.
type ConfigProvider interface {
	AIConfigFor(ctx context.Context, tenantID uuid.UUID) (widget.AIConfig, error)
}

// Broadcaster pushes persisted messages to the tenant's live connections.
// Publishing is fire-and-forget; it never blocks or fails the pipeline.
type Broadcaster interface {
	PublishNewMessage(tenantID uuid.UUID, m *conversation.Message)
}

// Exchange is the pipeline's result: the persisted visitor message and the
// persisted reply.
type Exchange struct {
	Visitor *conversation.Message `json:"visitor_message"`
	Reply   *conversation.Message `json:"reply_message"`
}

// Pipeline orchestrates one incoming visitor message end to end.
type Pipeline struct {
	conversations ConversationStore
	entries       KnowledgeStore
	configs       ConfigProvider
	selector      *Selector
	fanout        Broadcaster
	defaultModel  string
	logger        log.Logger
}

// New creates a pipeline.
func New(
	conversations ConversationStore,
	entries KnowledgeStore,
	configs ConfigProvider,
	selector *Selector,
	fanout Broadcaster,
	defaultModel string,
	logger log.Logger,
) *Pipeline {
	return &Pipeline{
		conversations: conversations,
		entries:       entries,
		configs:       configs,
		selector:      selector,
		fanout:        fanout,
		defaultModel:  defaultModel,
		logger:        logger.With("component", "pipeline"),
	}
}

// HandleIncomingMessage ingests one visitor message and returns the persisted
// exchange.
//
// Validation failures (ErrInvalidInput, conversation.ErrNotFound) happen
// before any write. Once the visitor message is durably written the pipeline
// always attempts a reply: failures loading history, config, or knowledge, and
// any remote-model failure, degrade to fallback behavior instead of
// propagating. Only a store failure on one of the two message writes surfaces
// as an error, and an already-written visitor message is never retracted.
func (p *Pipeline) HandleIncomingMessage(ctx context.Context, tenantID, convID uuid.UUID, content string) (*Exchange, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: empty message content", ErrInvalidInput)
	}

	// Tenant scoping happens here: a conversation owned by another tenant is
	// reported as missing.
	if _, err := p.conversations.Get(ctx, tenantID, convID); err != nil {
		return nil, err
	}

	visitorMsg, err := p.conversations.AppendMessage(ctx, convID, conversation.SenderVisitor, content)
	if err != nil {
		return nil, fmt.Errorf("persisting visitor message: %w", err)
	}

	history, err := p.conversations.Recent(ctx, convID, historyLimit)
	if err != nil {
		p.logger.Warn("loading history failed, replying from the new message alone",
			"conversation_id", convID, "error", err)
		history = []conversation.Message{*visitorMsg}
	}

	cfg := p.resolveConfig(ctx, tenantID)
	kbContext := BuildContext(p.loadEntries(ctx, tenantID, cfg), cfg)
	replyText := p.selector.Respond(ctx, history, kbContext, cfg)

	replyMsg, err := p.conversations.AppendMessage(ctx, convID, conversation.SenderAgentAI, replyText)
	if err != nil {
		return nil, fmt.Errorf("persisting reply message: %w", err)
	}

	if err := p.conversations.Touch(ctx, convID); err != nil {
		p.logger.Warn("bumping conversation timestamp failed",
			"conversation_id", convID, "error", err)
	}

	if p.fanout != nil {
		p.fanout.PublishNewMessage(tenantID, visitorMsg)
		p.fanout.PublishNewMessage(tenantID, replyMsg)
	}

	return &Exchange{Visitor: visitorMsg, Reply: replyMsg}, nil
}

// resolveConfig loads and resolves the tenant's AI configuration; a load
// failure degrades to defaults.
func (p *Pipeline) resolveConfig(ctx context.Context, tenantID uuid.UUID) widget.ResolvedAIConfig {
	cfg, err := p.configs.AIConfigFor(ctx, tenantID)
	if err != nil {
		p.logger.Warn("loading AI config failed, using defaults",
			"tenant_id", tenantID, "error", err)
		cfg = widget.AIConfig{}
	}
	return cfg.Resolve(p.defaultModel)
}

// loadEntries fetches the knowledge base when the tenant has it enabled; a
// load failure degrades to an empty context.
func (p *Pipeline) loadEntries(ctx context.Context, tenantID uuid.UUID, cfg widget.ResolvedAIConfig) []knowledge.Entry {
	if !cfg.KnowledgeBaseEnabled {
		return nil
	}
	entries, err := p.entries.List(ctx, tenantID)
	if err != nil {
		p.logger.Warn("loading knowledge entries failed, replying without context",
			"tenant_id", tenantID, "error", err)
		return nil
	}
	return entries
}
