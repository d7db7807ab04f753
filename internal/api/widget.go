package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/chatly/chatly/internal/log"
	"github.com/chatly/chatly/internal/widget"
)

// WidgetService is the handler's view of widget settings persistence.
type WidgetService interface {
	Get(ctx context.Context, tenantID uuid.UUID) (*widget.Settings, error)
	Update(ctx context.Context, tenantID uuid.UUID, u widget.Update) (*widget.Settings, error)
	Public(ctx context.Context, tenantID uuid.UUID) (*widget.PublicSettings, error)
}

// TenantChecker verifies a tenant id exists, guarding the public endpoint
// against probing with arbitrary ids.
type TenantChecker interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// WidgetHandler serves widget settings, the public widget config, and the
// embed snippet.
type WidgetHandler struct {
	store   WidgetService
	tenants TenantChecker
	baseURL string
	logger  log.Logger
}

// NewWidgetHandler creates a widget handler. baseURL is the public address
// embedded into the generated snippet.
func NewWidgetHandler(store WidgetService, tenants TenantChecker, baseURL string, logger log.Logger) *WidgetHandler {
	return &WidgetHandler{store: store, tenants: tenants, baseURL: baseURL, logger: logger}
}

// RegisterRoutes registers widget routes. The public config endpoint skips
// auth: the embedded widget has no API key, only the tenant id baked into the
// snippet.
func (h *WidgetHandler) RegisterRoutes(mux *http.ServeMux, auth func(http.Handler) http.Handler) {
	mux.Handle("GET /api/v1/widget", auth(http.HandlerFunc(h.get)))
	mux.Handle("PUT /api/v1/widget", auth(http.HandlerFunc(h.update)))
	mux.Handle("GET /api/v1/widget/embed", auth(http.HandlerFunc(h.embed)))
	mux.HandleFunc("GET /api/v1/widget/public/{tenantID}", h.public)
}

func (h *WidgetHandler) get(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "missing tenant", h.logger)
		return
	}

	settings, err := h.store.Get(r.Context(), tenantID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, settings, h.logger)
}

func (h *WidgetHandler) update(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "missing tenant", h.logger)
		return
	}

	var req widget.Update
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "malformed JSON body", h.logger)
		return
	}

	settings, err := h.store.Update(r.Context(), tenantID, req)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, settings, h.logger)
}

// public serves the visitor-safe widget configuration. CORS is wide open here
// because the widget loads from arbitrary customer sites.
func (h *WidgetHandler) public(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	tenantID, err := uuid.Parse(r.PathValue("tenantID"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "invalid tenant id", h.logger)
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

	settings, err := h.store.Public(r.Context(), tenantID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, settings, h.logger)
}

// embed returns the script snippet the tenant pastes into their site.
func (h *WidgetHandler) embed(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "missing tenant", h.logger)
		return
	}

	code := fmt.Sprintf(
		`<script src="%s/widget.js" data-tenant-id="%s" async></script>`,
		h.baseURL, tenantID,
	)
	writeJSON(w, http.StatusOK, map[string]string{"embed_code": code}, h.logger)
}
