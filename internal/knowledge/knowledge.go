// Package knowledge manages the per-tenant knowledge base: free-text and
// question/answer entries plus a crawler that turns a web page into an entry.
package knowledge

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors returned by the store and crawler.
var (
	// ErrNotFound indicates the entry does not exist within the tenant's scope.
	ErrNotFound = errors.New("knowledge entry not found")

	// ErrInvalidEntry indicates the entry fails type-specific validation.
	ErrInvalidEntry = errors.New("invalid knowledge entry")

	// ErrCrawlFailed indicates the crawler could not fetch or parse the page.
	ErrCrawlFailed = errors.New("crawl failed")
)

// EntryType distinguishes the two entry shapes.
type EntryType string

const (
	TypeText EntryType = "text"
	TypeQA   EntryType = "qa"
)

// Meta carries provenance for crawled entries, stored as JSONB.
type Meta struct {
	Source    string    `json:"source,omitempty"`
	URL       string    `json:"url,omitempty"`
	Title     string    `json:"title,omitempty"`
	CrawledAt time.Time `json:"crawled_at,omitzero"`
	Selector  string    `json:"selector,omitempty"`
}

// Entry is one knowledge-base record. A qa entry uses Question/Answer, a text
// entry uses Content; the unused fields stay empty.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	Type      EntryType `json:"type"`
	Question  string    `json:"question,omitempty"`
	Answer    string    `json:"answer,omitempty"`
	Content   string    `json:"content,omitempty"`
	Meta      Meta      `json:"meta"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate enforces the type-specific required fields.
func (e *Entry) Validate() error {
	switch e.Type {
	case TypeQA:
		if strings.TrimSpace(e.Question) == "" || strings.TrimSpace(e.Answer) == "" {
			return fmt.Errorf("%w: qa entry requires question and answer", ErrInvalidEntry)
		}
	case TypeText:
		if strings.TrimSpace(e.Content) == "" {
			return fmt.Errorf("%w: text entry requires content", ErrInvalidEntry)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEntry, e.Type)
	}
	return nil
}
