// Package ai wraps the remote language-model call behind a small provider
// interface so the pipeline can treat "no provider configured" and "provider
// call failed" as distinct situations.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"

	"github.com/chatly/chatly/internal/log"
)

// ErrProvider wraps every remote-call failure. Callers check it with errors.Is
// and fall back; the underlying cause stays in the chain for logging.
var ErrProvider = errors.New("ai provider error")

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one prior utterance handed to the model as history.
type Turn struct {
	Role    Role
	Content string
}

// Completion is one remote generation request.
type Completion struct {
	Model       string
	System      string
	Turns       []Turn
	Temperature float64
	MaxTokens   int
}

// Genkit generates completions through the Genkit Google AI plugin. The
// GEMINI_API_KEY environment variable supplies the credential.
type Genkit struct {
	g       *genkit.Genkit
	timeout time.Duration
	logger  log.Logger
}

// NewGenkit initializes the Genkit runtime with the Google AI plugin.
func NewGenkit(ctx context.Context, timeout time.Duration, logger log.Logger) (*Genkit, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	return &Genkit{
		g:       g,
		timeout: timeout,
		logger:  logger.With("component", "ai"),
	}, nil
}

// Generate runs one completion. Any failure, including an empty model reply,
// is reported as ErrProvider.
func (p *Genkit) Generate(ctx context.Context, req Completion) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	messages := make([]*ai.Message, 0, len(req.Turns))
	for _, t := range req.Turns {
		switch t.Role {
		case RoleAssistant:
			messages = append(messages, ai.NewModelMessage(ai.NewTextPart(t.Content)))
		default:
			messages = append(messages, ai.NewUserMessage(ai.NewTextPart(t.Content)))
		}
	}

	start := time.Now()
	resp, err := genkit.Generate(ctx, p.g,
		ai.WithModelName("googleai/"+req.Model),
		ai.WithSystem(req.System),
		ai.WithMessages(messages...),
		ai.WithConfig(&ai.GenerationCommonConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
		}),
	)
	if err != nil {
		p.logger.Warn("generation failed", "model", req.Model, "error", err)
		return "", fmt.Errorf("%w: %v", ErrProvider, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("%w: empty response", ErrProvider)
	}

	p.logger.Debug("generation completed",
		"model", req.Model,
		"duration", time.Since(start),
		"chars", len(text))
	return text, nil
}
