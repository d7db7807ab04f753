package pipeline

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/chatly/chatly/internal/knowledge"
	"github.com/chatly/chatly/internal/widget"
)

func resolvedConfig(kbEnabled bool) widget.ResolvedAIConfig {
	return widget.ResolvedAIConfig{
		RemoteModelEnabled:   true,
		Model:                "test-model",
		Temperature:          0.7,
		MaxTokens:            1000,
		KnowledgeBaseEnabled: kbEnabled,
	}
}

func textEntry(content string, updated time.Time) knowledge.Entry {
	return knowledge.Entry{Type: knowledge.TypeText, Content: content, UpdatedAt: updated}
}

func qaEntry(q, a string, updated time.Time) knowledge.Entry {
	return knowledge.Entry{Type: knowledge.TypeQA, Question: q, Answer: a, UpdatedAt: updated}
}

func TestBuildContext_Empty(t *testing.T) {
	base := time.Now()

	t.Run("disabled config", func(t *testing.T) {
		entries := []knowledge.Entry{textEntry("a", base), textEntry("b", base)}
		if got := BuildContext(entries, resolvedConfig(false)); got != "" {
			t.Errorf("disabled kb should yield empty context, got %q", got)
		}
	})

	t.Run("no entries", func(t *testing.T) {
		if got := BuildContext(nil, resolvedConfig(true)); got != "" {
			t.Errorf("no entries should yield empty context, got %q", got)
		}
	})
}

func TestBuildContext_Rendering(t *testing.T) {
	base := time.Now()
	entries := []knowledge.Entry{
		textEntry("We ship worldwide.", base.Add(-time.Hour)),
		qaEntry("What is the refund window?", "30 days.", base),
	}

	got := BuildContext(entries, resolvedConfig(true))
	want := "Question: What is the refund window?\nAnswer: 30 days.\n\nWe ship worldwide."
	if got != want {
		t.Errorf("BuildContext =\n%q\nwant\n%q", got, want)
	}
}

func TestBuildContext_MostRecentFirst(t *testing.T) {
	base := time.Now()
	entries := []knowledge.Entry{
		textEntry("older", base.Add(-2*time.Hour)),
		textEntry("newest", base),
		textEntry("middle", base.Add(-time.Hour)),
	}

	got := BuildContext(entries, resolvedConfig(true))
	if got != "newest\n\nmiddle\n\nolder" {
		t.Errorf("BuildContext = %q", got)
	}
}

func TestBuildContext_CapsAtTwenty(t *testing.T) {
	base := time.Now()
	var entries []knowledge.Entry
	for i := 0; i < 30; i++ {
		entries = append(entries, textEntry(fmt.Sprintf("entry-%d", i), base.Add(-time.Duration(i)*time.Minute)))
	}

	got := BuildContext(entries, resolvedConfig(true))
	parts := strings.Split(got, "\n\n")
	if len(parts) != maxContextEntries {
		t.Fatalf("got %d entries, want %d", len(parts), maxContextEntries)
	}
	if parts[0] != "entry-0" || parts[19] != "entry-19" {
		t.Errorf("unexpected window: first=%q last=%q", parts[0], parts[19])
	}
}

func TestBuildContext_Deterministic(t *testing.T) {
	base := time.Now()
	entries := []knowledge.Entry{
		qaEntry("q1", "a1", base),
		textEntry("t1", base.Add(-time.Minute)),
		qaEntry("q2", "a2", base.Add(-2*time.Minute)),
	}
	cfg := resolvedConfig(true)

	first := BuildContext(entries, cfg)
	for i := 0; i < 5; i++ {
		if got := BuildContext(entries, cfg); got != first {
			t.Fatalf("call %d diverged:\n%q\nvs\n%q", i, got, first)
		}
	}
}

func TestBuildContext_DoesNotMutateInput(t *testing.T) {
	base := time.Now()
	entries := []knowledge.Entry{
		textEntry("older", base.Add(-time.Hour)),
		textEntry("newer", base),
	}

	_ = BuildContext(entries, resolvedConfig(true))
	if entries[0].Content != "older" || entries[1].Content != "newer" {
		t.Error("input slice order changed")
	}
}
