package knowledge

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/chatly/chatly/internal/log"
)

const testPage = `<!DOCTYPE html>
<html>
<head><title>Acme Support</title></head>
<body>
  <nav>Skip me</nav>
  <h1>Shipping Policy</h1>
  <p>Orders ship within two business days.</p>
  <ul><li>Free returns within 30 days.</li></ul>
  <div class="pricing">Plans start at $9/month.</div>
</body>
</html>`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(testPage))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCrawl_DefaultSelectors(t *testing.T) {
	srv := newTestServer(t)
	c := NewCrawler(5*time.Second, log.NewNop())
	tenantID := uuid.New()

	entry, err := c.Crawl(context.Background(), tenantID, srv.URL, "")
	if err != nil {
		t.Fatalf("Crawl() = %v", err)
	}

	if entry.Type != TypeText {
		t.Errorf("type = %q, want text", entry.Type)
	}
	if entry.TenantID != tenantID {
		t.Errorf("tenant = %v, want %v", entry.TenantID, tenantID)
	}
	for _, want := range []string{"Shipping Policy", "two business days", "Free returns"} {
		if !strings.Contains(entry.Content, want) {
			t.Errorf("content missing %q:\n%s", want, entry.Content)
		}
	}
	if strings.Contains(entry.Content, "Skip me") {
		t.Errorf("nav text should not be harvested:\n%s", entry.Content)
	}
	if strings.Contains(entry.Content, "$9/month") {
		t.Errorf("div text should not be harvested without a selector:\n%s", entry.Content)
	}

	if entry.Meta.Title != "Acme Support" {
		t.Errorf("title = %q, want Acme Support", entry.Meta.Title)
	}
	if entry.Meta.Source != "crawl" {
		t.Errorf("source = %q, want crawl", entry.Meta.Source)
	}
	if entry.Meta.URL != srv.URL {
		t.Errorf("url = %q, want %q", entry.Meta.URL, srv.URL)
	}
	if entry.Meta.CrawledAt.IsZero() {
		t.Error("crawled_at should be set")
	}
}

func TestCrawl_CustomSelector(t *testing.T) {
	srv := newTestServer(t)
	c := NewCrawler(5*time.Second, log.NewNop())

	entry, err := c.Crawl(context.Background(), uuid.New(), srv.URL, ".pricing")
	if err != nil {
		t.Fatalf("Crawl() = %v", err)
	}
	if entry.Content != "Plans start at $9/month." {
		t.Errorf("content = %q", entry.Content)
	}
	if entry.Meta.Selector != ".pricing" {
		t.Errorf("selector = %q", entry.Meta.Selector)
	}
}

func TestCrawl_HTTPError(t *testing.T) {
	srv := newTestServer(t)
	c := NewCrawler(5*time.Second, log.NewNop())

	_, err := c.Crawl(context.Background(), uuid.New(), srv.URL+"/missing", "")
	if !errors.Is(err, ErrCrawlFailed) {
		t.Fatalf("err = %v, want ErrCrawlFailed", err)
	}
}

func TestCrawl_EmptyURL(t *testing.T) {
	c := NewCrawler(5*time.Second, log.NewNop())

	_, err := c.Crawl(context.Background(), uuid.New(), "  ", "")
	if !errors.Is(err, ErrInvalidEntry) {
		t.Fatalf("err = %v, want ErrInvalidEntry", err)
	}
}

func TestCrawl_SelectorWithoutMatches(t *testing.T) {
	srv := newTestServer(t)
	c := NewCrawler(5*time.Second, log.NewNop())

	_, err := c.Crawl(context.Background(), uuid.New(), srv.URL, ".does-not-exist")
	if !errors.Is(err, ErrCrawlFailed) {
		t.Fatalf("err = %v, want ErrCrawlFailed", err)
	}
}

func TestEntryValidate(t *testing.T) {
	tests := []struct {
		name    string
		entry   Entry
		wantErr bool
	}{
		{"valid qa", Entry{Type: TypeQA, Question: "q", Answer: "a"}, false},
		{"valid text", Entry{Type: TypeText, Content: "c"}, false},
		{"qa missing answer", Entry{Type: TypeQA, Question: "q"}, true},
		{"qa blank question", Entry{Type: TypeQA, Question: "  ", Answer: "a"}, true},
		{"text missing content", Entry{Type: TypeText}, true},
		{"unknown type", Entry{Type: "markdown", Content: "c"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate()
			if tt.wantErr && !errors.Is(err, ErrInvalidEntry) {
				t.Errorf("Validate() = %v, want ErrInvalidEntry", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}
