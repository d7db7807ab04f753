package pipeline

import (
	"context"
	"math/rand/v2"
	"strings"

	chatai "github.com/chatly/chatly/internal/ai"
	"github.com/chatly/chatly/internal/conversation"
	"github.com/chatly/chatly/internal/log"
	"github.com/chatly/chatly/internal/widget"
)

// Deterministic fallback phrases used when no remote model is configured.
const (
	helpReply    = "I'd be happy to help! Could you tell me a bit more about what you need?"
	thanksReply  = "You're welcome! Is there anything else I can help you with?"
	genericReply = "Thanks for your message! Our team will get back to you as soon as possible."

	questionWithContextReply = "That's a great question! Based on our knowledge base, a team member can give you the exact details. Could you share a little more about your situation?"
	questionNoContextReply   = "That's a great question! Let me connect you with a team member who can give you an accurate answer."
)

// interrogatives trigger the question-shaped fallback when they open a message.
var interrogatives = []string{
	"what", "how", "why", "when", "where", "who", "can", "could", "would", "will",
}

// Provider is the remote completion dependency. A nil Provider means no remote
// model is configured, which selects the deterministic fallback path.
type Provider interface {
	Generate(ctx context.Context, req chatai.Completion) (string, error)
}

// Selector picks the reply for an incoming message: remote model when one is
// configured and enabled, local fallback otherwise. It never returns an error;
// every failure degrades to a fallback phrase.
type Selector struct {
	provider Provider
	logger   log.Logger

	// rng picks the random fallback index; injected for tests.
	rng func(n int) int
}

// NewSelector creates a selector. provider may be nil when no remote model is
// configured.
func NewSelector(provider Provider, logger log.Logger) *Selector {
	return &Selector{
		provider: provider,
		logger:   logger.With("component", "selector"),
		rng:      rand.IntN,
	}
}

// Respond produces the reply text for the newest visitor message.
//
// history is the chronological message window ending with the newest visitor
// message. The two fallback tiers are distinct on purpose: a provider that is
// absent (or disabled by the tenant) yields rule-based phrases, while a
// provider that was called and failed yields a uniformly random pick from the
// tenant's default responses.
func (s *Selector) Respond(ctx context.Context, history []conversation.Message, kbContext string, cfg widget.ResolvedAIConfig) string {
	latest := latestVisitorContent(history)

	if s.provider == nil || !cfg.RemoteModelEnabled {
		return s.ruleBasedReply(latest, kbContext)
	}

	text, err := s.provider.Generate(ctx, chatai.Completion{
		Model:       cfg.Model,
		System:      systemInstruction(kbContext),
		Turns:       mapHistory(history),
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	})
	if err != nil {
		s.logger.Warn("remote completion failed, using random fallback", "error", err)
		return s.randomReply(cfg.DefaultResponses)
	}
	return text
}

// systemInstruction embeds the knowledge context into the model's system
// prompt. An empty context is stated explicitly so the model does not invent
// tenant facts.
func systemInstruction(kbContext string) string {
	var b strings.Builder
	b.WriteString("You are a friendly customer support assistant for this business. ")
	b.WriteString("Answer concisely and helpfully.\n\n")
	if kbContext == "" {
		b.WriteString("No relevant knowledge base information is available for this business.")
	} else {
		b.WriteString("Use the following knowledge base to answer questions:\n\n")
		b.WriteString(kbContext)
	}
	return b.String()
}

func mapHistory(history []conversation.Message) []chatai.Turn {
	turns := make([]chatai.Turn, 0, len(history))
	for _, m := range history {
		role := chatai.RoleUser
		if m.Sender == conversation.SenderAgentAI {
			role = chatai.RoleAssistant
		}
		turns = append(turns, chatai.Turn{Role: role, Content: m.Content})
	}
	return turns
}

func latestVisitorContent(history []conversation.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Sender == conversation.SenderVisitor {
			return history[i].Content
		}
	}
	return ""
}

// ruleBasedReply applies the deterministic fallback rules in precedence
// order: help, thanks, interrogative opener, generic.
func (s *Selector) ruleBasedReply(latest, kbContext string) string {
	lower := strings.ToLower(strings.TrimSpace(latest))

	switch {
	case strings.Contains(lower, "help"):
		return helpReply
	case strings.Contains(lower, "thank"):
		return thanksReply
	case startsWithInterrogative(lower):
		if kbContext != "" {
			return questionWithContextReply
		}
		return questionNoContextReply
	default:
		return genericReply
	}
}

func startsWithInterrogative(lower string) bool {
	first, _, _ := strings.Cut(lower, " ")
	first = strings.TrimRight(first, "?!.,")
	for _, w := range interrogatives {
		if first == w {
			return true
		}
	}
	return false
}

// randomReply picks uniformly from the tenant's configured fallback responses,
// or from the builtin pair when none are configured.
func (s *Selector) randomReply(configured []string) string {
	pool := configured
	if len(pool) == 0 {
		pool = widget.BuiltinResponses()
	}
	return pool[s.rng(len(pool))]
}
