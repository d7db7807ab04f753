package api

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/chatly/chatly/internal/knowledge"
	"github.com/chatly/chatly/internal/log"
)

type fakeKnowledgeService struct {
	entries []knowledge.Entry
	created *knowledge.Entry
	err     error
}

func (f *fakeKnowledgeService) List(_ context.Context, _ uuid.UUID) ([]knowledge.Entry, error) {
	return f.entries, f.err
}

func (f *fakeKnowledgeService) Get(_ context.Context, _, _ uuid.UUID) (*knowledge.Entry, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.entries) == 0 {
		return nil, knowledge.ErrNotFound
	}
	return &f.entries[0], nil
}

func (f *fakeKnowledgeService) Create(_ context.Context, e *knowledge.Entry) (*knowledge.Entry, error) {
	if f.err != nil {
		return nil, f.err
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	e.ID = uuid.New()
	f.created = e
	return e, nil
}

func (f *fakeKnowledgeService) Update(_ context.Context, e *knowledge.Entry) (*knowledge.Entry, error) {
	if f.err != nil {
		return nil, f.err
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

func (f *fakeKnowledgeService) Delete(_ context.Context, _, _ uuid.UUID) error {
	return f.err
}

type fakeCrawler struct {
	entry *knowledge.Entry
	err   error
}

func (f *fakeCrawler) Crawl(_ context.Context, tenantID uuid.UUID, url, selector string) (*knowledge.Entry, error) {
	if f.err != nil {
		return nil, f.err
	}
	e := *f.entry
	e.TenantID = tenantID
	e.Meta.URL = url
	e.Meta.Selector = selector
	return &e, nil
}

func TestKnowledgeCreate(t *testing.T) {
	tenantID := uuid.New()

	t.Run("qa entry", func(t *testing.T) {
		svc := &fakeKnowledgeService{}
		h := NewKnowledgeHandler(svc, &fakeCrawler{}, log.NewNop())

		rec := serveAuthed(t, h, tenantID, http.MethodPost, "/api/v1/knowledge",
			`{"type":"qa","question":"Refunds?","answer":"30 days."}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
		}
		if svc.created.TenantID != tenantID {
			t.Error("entry not scoped to calling tenant")
		}
	})

	t.Run("qa without answer maps to 400", func(t *testing.T) {
		h := NewKnowledgeHandler(&fakeKnowledgeService{}, &fakeCrawler{}, log.NewNop())

		rec := serveAuthed(t, h, tenantID, http.MethodPost, "/api/v1/knowledge",
			`{"type":"qa","question":"Refunds?"}`)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("text without content maps to 400", func(t *testing.T) {
		h := NewKnowledgeHandler(&fakeKnowledgeService{}, &fakeCrawler{}, log.NewNop())

		rec := serveAuthed(t, h, tenantID, http.MethodPost, "/api/v1/knowledge", `{"type":"text"}`)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestKnowledgeCrawl(t *testing.T) {
	tenantID := uuid.New()

	t.Run("crawl saves entry", func(t *testing.T) {
		svc := &fakeKnowledgeService{}
		crawler := &fakeCrawler{entry: &knowledge.Entry{
			Type:    knowledge.TypeText,
			Content: "Orders ship in two days.",
			Meta:    knowledge.Meta{Source: "crawl", Title: "Shipping"},
		}}
		h := NewKnowledgeHandler(svc, crawler, log.NewNop())

		rec := serveAuthed(t, h, tenantID, http.MethodPost, "/api/v1/knowledge/crawl",
			`{"url":"https://example.com/shipping","selector":".content"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
		}
		if svc.created == nil || svc.created.Meta.URL != "https://example.com/shipping" {
			t.Errorf("crawl result not persisted: %+v", svc.created)
		}
		if !strings.Contains(rec.Body.String(), "Orders ship in two days.") {
			t.Error("response missing crawled content")
		}
	})

	t.Run("fetch failure maps to 502", func(t *testing.T) {
		h := NewKnowledgeHandler(&fakeKnowledgeService{}, &fakeCrawler{err: knowledge.ErrCrawlFailed}, log.NewNop())

		rec := serveAuthed(t, h, tenantID, http.MethodPost, "/api/v1/knowledge/crawl",
			`{"url":"https://example.com/404"}`)

		if rec.Code != http.StatusBadGateway {
			t.Errorf("status = %d, want 502", rec.Code)
		}
	})
}

func TestKnowledgeDelete(t *testing.T) {
	tenantID := uuid.New()

	t.Run("success", func(t *testing.T) {
		h := NewKnowledgeHandler(&fakeKnowledgeService{}, &fakeCrawler{}, log.NewNop())

		rec := serveAuthed(t, h, tenantID, http.MethodDelete, "/api/v1/knowledge/"+uuid.NewString(), "")
		if rec.Code != http.StatusNoContent {
			t.Errorf("status = %d, want 204", rec.Code)
		}
	})

	t.Run("missing entry maps to 404", func(t *testing.T) {
		h := NewKnowledgeHandler(&fakeKnowledgeService{err: knowledge.ErrNotFound}, &fakeCrawler{}, log.NewNop())

		rec := serveAuthed(t, h, tenantID, http.MethodDelete, "/api/v1/knowledge/"+uuid.NewString(), "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}
