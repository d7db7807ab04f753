package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/chatly/chatly/internal/conversation"
	"github.com/chatly/chatly/internal/knowledge"
	"github.com/chatly/chatly/internal/log"
	"github.com/chatly/chatly/internal/pipeline"
	"github.com/chatly/chatly/internal/tenant"
)

// writeJSON writes a JSON response with the given status code.
// Buffer-first: headers are only sent after successful encoding, so an
// encoding failure can still produce a proper 500.
func writeJSON(w http.ResponseWriter, status int, data any, logger log.Logger) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		// Client disconnects are common and expected.
		logger.Debug("failed to write response body", "error", err)
	}
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, status int, code, message string, logger log.Logger) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message}, logger)
}

// writeDomainError maps domain sentinels to HTTP status codes. Unknown errors
// become opaque 500s; the detail stays in the log.
func writeDomainError(w http.ResponseWriter, err error, logger log.Logger) {
	switch {
	case errors.Is(err, pipeline.ErrInvalidInput), errors.Is(err, knowledge.ErrInvalidEntry):
		WriteError(w, http.StatusBadRequest, "invalid_input", err.Error(), logger)
	case errors.Is(err, conversation.ErrNotFound), errors.Is(err, knowledge.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", err.Error(), logger)
	case errors.Is(err, tenant.ErrUnknownKey):
		WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid API key", logger)
	case errors.Is(err, conversation.ErrStatusRegression):
		WriteError(w, http.StatusConflict, "status_regression", err.Error(), logger)
	case errors.Is(err, knowledge.ErrCrawlFailed):
		WriteError(w, http.StatusBadGateway, "crawl_failed", err.Error(), logger)
	default:
		logger.Error("request failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "internal server error", logger)
	}
}
