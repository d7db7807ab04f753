package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/chatly/chatly/internal/log"
)

// StatsCounters supplies the dashboard counts.
type StatsCounters struct {
	Conversations CountFunc
	Messages      CountFunc
	Knowledge     CountFunc
}

// CountFunc counts one kind of tenant-scoped record.
type CountFunc func(ctx context.Context, tenantID uuid.UUID) (int64, error)

// StatsHandler serves the dashboard statistics endpoint.
type StatsHandler struct {
	counters StatsCounters
	logger   log.Logger
}

// NewStatsHandler creates a stats handler.
func NewStatsHandler(counters StatsCounters, logger log.Logger) *StatsHandler {
	return &StatsHandler{counters: counters, logger: logger}
}

// RegisterRoutes registers the stats route behind tenant auth.
func (h *StatsHandler) RegisterRoutes(mux *http.ServeMux, auth func(http.Handler) http.Handler) {
	mux.Handle("GET /api/v1/stats", auth(http.HandlerFunc(h.stats)))
}

type statsResponse struct {
	Conversations int64 `json:"conversations"`
	Messages      int64 `json:"messages"`
	Knowledge     int64 `json:"knowledge_entries"`
}

func (h *StatsHandler) stats(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "missing tenant", h.logger)
		return
	}

	var resp statsResponse
	var err error
	if resp.Conversations, err = h.counters.Conversations(r.Context(), tenantID); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	if resp.Messages, err = h.counters.Messages(r.Context(), tenantID); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	if resp.Knowledge, err = h.counters.Knowledge(r.Context(), tenantID); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, resp, h.logger)
}
