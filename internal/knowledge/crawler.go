package knowledge

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/chatly/chatly/internal/log"
)

// bodySelectors are the elements harvested when no selector is given.
const bodySelectors = "p, h1, h2, h3, h4, h5, h6, li"

// Crawler fetches a web page and turns its text into a knowledge entry.
type Crawler struct {
	client *http.Client
	logger log.Logger
	now    func() time.Time
}

// NewCrawler creates a crawler. timeout bounds the whole fetch.
func NewCrawler(timeout time.Duration, logger log.Logger) *Crawler {
	return &Crawler{
		client: &http.Client{Timeout: timeout},
		logger: logger.With("component", "crawler"),
		now:    time.Now,
	}
}

// Crawl fetches url and extracts its text content. When selector is non-empty
// only matching elements contribute; otherwise paragraph, heading, and list
// item text is collected. The result is an unsaved text entry carrying crawl
// provenance in Meta.
func (c *Crawler) Crawl(ctx context.Context, tenantID uuid.UUID, url, selector string) (*Entry, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("%w: empty URL", ErrInvalidEntry)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", ErrCrawlFailed, err)
	}
	req.Header.Set("User-Agent", "chatly-crawler/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching %s: %v", ErrCrawlFailed, url, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: fetching %s: status %d", ErrCrawlFailed, url, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrCrawlFailed, url, err)
	}

	content := extractText(doc, selector)
	if content == "" {
		return nil, fmt.Errorf("%w: no text content at %s", ErrCrawlFailed, url)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	c.logger.Info("page crawled", "url", url, "title", title, "bytes", len(content))

	return &Entry{
		TenantID: tenantID,
		Type:     TypeText,
		Content:  content,
		Meta: Meta{
			Source:    "crawl",
			URL:       url,
			Title:     title,
			CrawledAt: c.now().UTC(),
			Selector:  selector,
		},
	}, nil
}

func extractText(doc *goquery.Document, selector string) string {
	target := bodySelectors
	if strings.TrimSpace(selector) != "" {
		target = selector
	}

	var parts []string
	doc.Find(target).Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, "\n")
}
