package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/chatly/chatly/internal/conversation"
	"github.com/chatly/chatly/internal/log"
	"github.com/chatly/chatly/internal/pipeline"
)

// ConversationService is the handler's view of conversation persistence.
type ConversationService interface {
	Create(ctx context.Context, tenantID uuid.UUID, visitorID string) (*conversation.Conversation, error)
	Get(ctx context.Context, tenantID, convID uuid.UUID) (*conversation.Conversation, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]conversation.Conversation, error)
	Messages(ctx context.Context, convID uuid.UUID) ([]conversation.Message, error)
	AdvanceStatus(ctx context.Context, tenantID, messageID uuid.UUID, status conversation.Status) (*conversation.Message, error)
}

// MessagePipeline is the handler's entry point into the reply pipeline.
type MessagePipeline interface {
	HandleIncomingMessage(ctx context.Context, tenantID, convID uuid.UUID, content string) (*pipeline.Exchange, error)
}

// StatusPublisher pushes applied status changes to the tenant's connections.
type StatusPublisher interface {
	PublishStatusUpdate(tenantID, messageID uuid.UUID, status conversation.Status)
}

// ConversationHandler serves the conversation and message endpoints.
type ConversationHandler struct {
	conversations ConversationService
	pipeline      MessagePipeline
	fanout        StatusPublisher
	logger        log.Logger
}

// NewConversationHandler creates a conversation handler.
func NewConversationHandler(conversations ConversationService, p MessagePipeline, fanout StatusPublisher, logger log.Logger) *ConversationHandler {
	return &ConversationHandler{
		conversations: conversations,
		pipeline:      p,
		fanout:        fanout,
		logger:        logger,
	}
}

// RegisterRoutes registers conversation routes. auth must resolve the tenant
// before these handlers run.
func (h *ConversationHandler) RegisterRoutes(mux *http.ServeMux, auth func(http.Handler) http.Handler) {
	mux.Handle("GET /api/v1/conversations", auth(http.HandlerFunc(h.list)))
	mux.Handle("POST /api/v1/conversations", auth(http.HandlerFunc(h.create)))
	mux.Handle("GET /api/v1/conversations/{id}", auth(http.HandlerFunc(h.get)))
	mux.Handle("POST /api/v1/conversations/{id}/messages", auth(http.HandlerFunc(h.postMessage)))
	mux.Handle("PATCH /api/v1/messages/{id}/status", auth(http.HandlerFunc(h.patchStatus)))
}

func (h *ConversationHandler) list(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "missing tenant", h.logger)
		return
	}

	conversations, err := h.conversations.List(r.Context(), tenantID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": conversations}, h.logger)
}

type createConversationRequest struct {
	VisitorID string `json:"visitor_id"`
}

func (h *ConversationHandler) create(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "missing tenant", h.logger)
		return
	}

	var req createConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "malformed JSON body", h.logger)
		return
	}
	if req.VisitorID == "" {
		WriteError(w, http.StatusBadRequest, "invalid_input", "visitor_id is required", h.logger)
		return
	}

	conv, err := h.conversations.Create(r.Context(), tenantID, req.VisitorID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, conv, h.logger)
}

func (h *ConversationHandler) get(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "missing tenant", h.logger)
		return
	}
	convID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "invalid conversation id", h.logger)
		return
	}

	conv, err := h.conversations.Get(r.Context(), tenantID, convID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	messages, err := h.conversations.Messages(r.Context(), convID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"conversation": conv,
		"messages":     messages,
	}, h.logger)
}

type postMessageRequest struct {
	Content string `json:"content"`
}

func (h *ConversationHandler) postMessage(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "missing tenant", h.logger)
		return
	}
	convID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "invalid conversation id", h.logger)
		return
	}

	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "malformed JSON body", h.logger)
		return
	}

	exchange, err := h.pipeline.HandleIncomingMessage(r.Context(), tenantID, convID, req.Content)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, exchange, h.logger)
}

type patchStatusRequest struct {
	Status conversation.Status `json:"status"`
}

func (h *ConversationHandler) patchStatus(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "missing tenant", h.logger)
		return
	}
	messageID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "invalid message id", h.logger)
		return
	}

	var req patchStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "malformed JSON body", h.logger)
		return
	}
	if !req.Status.Valid() {
		WriteError(w, http.StatusBadRequest, "invalid_input", "unknown status", h.logger)
		return
	}

	msg, err := h.conversations.AdvanceStatus(r.Context(), tenantID, messageID, req.Status)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	if h.fanout != nil {
		h.fanout.PublishStatusUpdate(tenantID, msg.ID, msg.Status)
	}
	writeJSON(w, http.StatusOK, msg, h.logger)
}
