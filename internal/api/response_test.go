package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chatly/chatly/internal/conversation"
	"github.com/chatly/chatly/internal/knowledge"
	"github.com/chatly/chatly/internal/log"
	"github.com/chatly/chatly/internal/pipeline"
	"github.com/chatly/chatly/internal/tenant"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusCreated, map[string]string{"hello": "world"}, log.NewNop())

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body["hello"] != "world" {
		t.Errorf("body = %v", body)
	}
}

func TestWriteJSON_EncodingFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, map[string]any{"bad": func() {}}, log.NewNop())

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 when encoding fails", rec.Code)
	}
}

func TestWriteDomainError_Mapping(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{pipeline.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
		{knowledge.ErrInvalidEntry, http.StatusBadRequest, "invalid_input"},
		{conversation.ErrNotFound, http.StatusNotFound, "not_found"},
		{knowledge.ErrNotFound, http.StatusNotFound, "not_found"},
		{tenant.ErrUnknownKey, http.StatusUnauthorized, "unauthorized"},
		{conversation.ErrStatusRegression, http.StatusConflict, "status_regression"},
		{knowledge.ErrCrawlFailed, http.StatusBadGateway, "crawl_failed"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "internal_error"},
		{fmt.Errorf("wrapped: %w", conversation.ErrNotFound), http.StatusNotFound, "not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.wantCode+"/"+tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeDomainError(rec, tt.err, log.NewNop())

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid JSON body: %v", err)
			}
			if body.Error != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Error, tt.wantCode)
			}
		})
	}
}

func TestWriteDomainError_HidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	writeDomainError(rec, errors.New("password=hunter2 leaked"), log.NewNop())

	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body.Message != "internal server error" {
		t.Errorf("internal error detail leaked: %q", body.Message)
	}
}
