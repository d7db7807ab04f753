// Package pipeline implements the message-handling core: context assembly
// from the knowledge base, response selection between the remote model and
// deterministic local fallbacks, and the orchestrating pipeline that persists
// and fans out each exchange.
package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/chatly/chatly/internal/knowledge"
	"github.com/chatly/chatly/internal/widget"
)

// maxContextEntries bounds how many knowledge entries feed one reply.
const maxContextEntries = 20

// BuildContext renders the tenant's knowledge entries into the text blob
// handed to the response selector. Pure: no I/O, deterministic for a given
// input.
//
// Returns "" when the tenant disabled knowledge-base usage or has no entries.
// Otherwise the 20 most recently updated entries are rendered most recent
// first, QA entries as "Question: q\nAnswer: a" and text entries verbatim,
// joined by blank lines.
func BuildContext(entries []knowledge.Entry, cfg widget.ResolvedAIConfig) string {
	if !cfg.KnowledgeBaseEnabled || len(entries) == 0 {
		return ""
	}

	sorted := make([]knowledge.Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UpdatedAt.After(sorted[j].UpdatedAt)
	})
	if len(sorted) > maxContextEntries {
		sorted = sorted[:maxContextEntries]
	}

	parts := make([]string, 0, len(sorted))
	for _, e := range sorted {
		switch e.Type {
		case knowledge.TypeQA:
			parts = append(parts, fmt.Sprintf("Question: %s\nAnswer: %s", e.Question, e.Answer))
		default:
			parts = append(parts, e.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}
