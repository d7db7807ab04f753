package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/chatly/chatly/internal/knowledge"
	"github.com/chatly/chatly/internal/log"
)

// KnowledgeService is the handler's view of knowledge persistence.
type KnowledgeService interface {
	List(ctx context.Context, tenantID uuid.UUID) ([]knowledge.Entry, error)
	Get(ctx context.Context, tenantID, id uuid.UUID) (*knowledge.Entry, error)
	Create(ctx context.Context, e *knowledge.Entry) (*knowledge.Entry, error)
	Update(ctx context.Context, e *knowledge.Entry) (*knowledge.Entry, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

// PageCrawler turns a URL into an unsaved knowledge entry.
type PageCrawler interface {
	Crawl(ctx context.Context, tenantID uuid.UUID, url, selector string) (*knowledge.Entry, error)
}

// KnowledgeHandler serves the knowledge-base endpoints.
type KnowledgeHandler struct {
	store   KnowledgeService
	crawler PageCrawler
	logger  log.Logger
}

// NewKnowledgeHandler creates a knowledge handler.
func NewKnowledgeHandler(store KnowledgeService, crawler PageCrawler, logger log.Logger) *KnowledgeHandler {
	return &KnowledgeHandler{store: store, crawler: crawler, logger: logger}
}

// RegisterRoutes registers knowledge routes behind tenant auth.
func (h *KnowledgeHandler) RegisterRoutes(mux *http.ServeMux, auth func(http.Handler) http.Handler) {
	mux.Handle("GET /api/v1/knowledge", auth(http.HandlerFunc(h.list)))
	mux.Handle("POST /api/v1/knowledge", auth(http.HandlerFunc(h.create)))
	mux.Handle("PUT /api/v1/knowledge/{id}", auth(http.HandlerFunc(h.update)))
	mux.Handle("DELETE /api/v1/knowledge/{id}", auth(http.HandlerFunc(h.delete)))
	mux.Handle("POST /api/v1/knowledge/crawl", auth(http.HandlerFunc(h.crawl)))
}

func (h *KnowledgeHandler) list(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "missing tenant", h.logger)
		return
	}

	entries, err := h.store.List(r.Context(), tenantID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries}, h.logger)
}

type entryRequest struct {
	Type     knowledge.EntryType `json:"type"`
	Question string              `json:"question"`
	Answer   string              `json:"answer"`
	Content  string              `json:"content"`
}

func (h *KnowledgeHandler) create(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "missing tenant", h.logger)
		return
	}

	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "malformed JSON body", h.logger)
		return
	}

	entry, err := h.store.Create(r.Context(), &knowledge.Entry{
		TenantID: tenantID,
		Type:     req.Type,
		Question: req.Question,
		Answer:   req.Answer,
		Content:  req.Content,
	})
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, entry, h.logger)
}

func (h *KnowledgeHandler) update(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "missing tenant", h.logger)
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "invalid entry id", h.logger)
		return
	}

	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "malformed JSON body", h.logger)
		return
	}

	// Keep crawl provenance when the operator edits a crawled entry.
	current, err := h.store.Get(r.Context(), tenantID, id)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	entry, err := h.store.Update(r.Context(), &knowledge.Entry{
		ID:       id,
		TenantID: tenantID,
		Type:     req.Type,
		Question: req.Question,
		Answer:   req.Answer,
		Content:  req.Content,
		Meta:     current.Meta,
	})
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, entry, h.logger)
}

func (h *KnowledgeHandler) delete(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "missing tenant", h.logger)
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "invalid entry id", h.logger)
		return
	}

	if err := h.store.Delete(r.Context(), tenantID, id); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type crawlRequest struct {
	URL      string `json:"url"`
	Selector string `json:"selector"`
}

// crawl fetches a page and saves the extracted text as a new entry.
func (h *KnowledgeHandler) crawl(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "missing tenant", h.logger)
		return
	}

	var req crawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "malformed JSON body", h.logger)
		return
	}

	entry, err := h.crawler.Crawl(r.Context(), tenantID, req.URL, req.Selector)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	saved, err := h.store.Create(r.Context(), entry)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, saved, h.logger)
}
