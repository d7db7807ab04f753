package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/chatly/chatly/internal/conversation"
	"github.com/chatly/chatly/internal/log"
	"github.com/chatly/chatly/internal/realtime"
)

// StatusAdvancer applies a forward-only status change for a tenant's message.
type StatusAdvancer interface {
	AdvanceStatus(ctx context.Context, tenantID, messageID uuid.UUID, status conversation.Status) (*conversation.Message, error)
}

// SocketHandler upgrades websocket connections and joins them to their
// tenant's fanout group.
type SocketHandler struct {
	fanout   *realtime.Fanout
	tenants  TenantChecker
	statuses StatusAdvancer
	upgrader websocket.Upgrader
	logger   log.Logger
}

// NewSocketHandler creates a websocket handler. The widget connects from
// arbitrary customer sites, so origin checking is disabled; the tenant id is
// the only admission control, matching the rest of the public widget surface.
func NewSocketHandler(fanout *realtime.Fanout, tenants TenantChecker, statuses StatusAdvancer, logger log.Logger) *SocketHandler {
	return &SocketHandler{
		fanout:   fanout,
		tenants:  tenants,
		statuses: statuses,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// RegisterRoutes registers the websocket route.
func (h *SocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws", h.serve)
}

// inboundFrame is what a connected client may send: a status advance request.
type inboundFrame struct {
	Type      string              `json:"type"`
	MessageID uuid.UUID           `json:"message_id"`
	Status    conversation.Status `json:"status"`
}

func (h *SocketHandler) serve(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(r.URL.Query().Get("tenant_id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "invalid tenant_id", h.logger)
		return
	}

	exists, err := h.tenants.Exists(r.Context(), tenantID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	if !exists {
		WriteError(w, http.StatusNotFound, "not_found", "unknown tenant", h.logger)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	conn := realtime.NewConn(ws, h.logger)
	h.fanout.Join(conn, tenantID)
	go conn.WritePump()

	h.readLoop(r, ws, conn, tenantID)
}

// readLoop consumes inbound frames until the client disconnects. Status
// advances are persisted first, then fanned out; regressions and unknown
// messages are ignored rather than torn down.
func (h *SocketHandler) readLoop(r *http.Request, ws *websocket.Conn, conn *realtime.Conn, tenantID uuid.UUID) {
	defer func() {
		h.fanout.Leave(conn)
		conn.Close()
	}()

	for {
		_, payload, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket closed unexpectedly", "error", err)
			}
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			h.logger.Debug("ignoring malformed frame", "error", err)
			continue
		}
		if frame.Type != realtime.EventStatusUpdate || !frame.Status.Valid() {
			continue
		}

		msg, err := h.statuses.AdvanceStatus(r.Context(), tenantID, frame.MessageID, frame.Status)
		if err != nil {
			h.logger.Debug("status advance rejected",
				"message_id", frame.MessageID, "status", frame.Status, "error", err)
			continue
		}
		h.fanout.PublishStatusUpdate(tenantID, msg.ID, msg.Status)
	}
}
