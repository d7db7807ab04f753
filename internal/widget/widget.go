// Package widget holds per-tenant widget configuration: appearance settings
// shown to visitors and the AI behavior knobs consumed by the message pipeline.
package widget

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound indicates the tenant has no widget settings row.
var ErrNotFound = errors.New("widget settings not found")

// Defaults applied by AIConfig.Resolve when the tenant leaves a field unset.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1000
)

// builtinResponses back the random fallback when the tenant configures none.
var builtinResponses = []string{
	"Thanks for reaching out! Our team will get back to you shortly.",
	"I'm sorry, I couldn't process that right now. A team member will follow up with you soon.",
}

// BuiltinResponses returns the default fallback phrases.
func BuiltinResponses() []string {
	out := make([]string, len(builtinResponses))
	copy(out, builtinResponses)
	return out
}

// AIConfig is the tenant's AI behavior configuration, stored as JSONB.
// Pointer fields distinguish "unset" from an explicit zero; Resolve collapses
// them into concrete values.
type AIConfig struct {
	RemoteModelEnabled   *bool    `json:"remote_model_enabled,omitempty"`
	Model                string   `json:"model,omitempty"`
	Temperature          *float64 `json:"temperature,omitempty"`
	MaxTokens            *int     `json:"max_tokens,omitempty"`
	KnowledgeBaseEnabled *bool    `json:"knowledge_base_enabled,omitempty"`
	DefaultResponses     []string `json:"default_responses,omitempty"`
}

// ResolvedAIConfig is an AIConfig with every default applied.
type ResolvedAIConfig struct {
	RemoteModelEnabled   bool
	Model                string
	Temperature          float64
	MaxTokens            int
	KnowledgeBaseEnabled bool
	DefaultResponses     []string
}

// Resolve applies defaults: remote model and knowledge base enabled,
// temperature 0.7, max tokens 1000, model from defaultModel when unset.
// DefaultResponses stays nil when unconfigured; the selector substitutes the
// builtin phrases at pick time.
func (c AIConfig) Resolve(defaultModel string) ResolvedAIConfig {
	r := ResolvedAIConfig{
		RemoteModelEnabled:   true,
		Model:                c.Model,
		Temperature:          DefaultTemperature,
		MaxTokens:            DefaultMaxTokens,
		KnowledgeBaseEnabled: true,
		DefaultResponses:     c.DefaultResponses,
	}
	if c.RemoteModelEnabled != nil {
		r.RemoteModelEnabled = *c.RemoteModelEnabled
	}
	if r.Model == "" {
		r.Model = defaultModel
	}
	if c.Temperature != nil {
		r.Temperature = *c.Temperature
	}
	if c.MaxTokens != nil {
		r.MaxTokens = *c.MaxTokens
	}
	if c.KnowledgeBaseEnabled != nil {
		r.KnowledgeBaseEnabled = *c.KnowledgeBaseEnabled
	}
	return r
}

// Settings is the full per-tenant widget configuration.
type Settings struct {
	TenantID     uuid.UUID `json:"tenant_id"`
	Color        string    `json:"color"`
	Position     string    `json:"position"`
	WelcomeText  string    `json:"welcome_text"`
	LogoURL      string    `json:"logo_url"`
	ShowBranding bool      `json:"show_branding"`
	AI           AIConfig  `json:"ai_config"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PublicSettings is the unauthenticated subset served to the embedded widget.
type PublicSettings struct {
	Color        string `json:"color"`
	Position     string `json:"position"`
	WelcomeText  string `json:"welcome_text"`
	LogoURL      string `json:"logo_url"`
	ShowBranding bool   `json:"show_branding"`
}

// Public projects the visitor-safe subset of the settings.
func (s *Settings) Public() PublicSettings {
	return PublicSettings{
		Color:        s.Color,
		Position:     s.Position,
		WelcomeText:  s.WelcomeText,
		LogoURL:      s.LogoURL,
		ShowBranding: s.ShowBranding,
	}
}

// Update is a partial settings change; nil fields keep their current value.
type Update struct {
	Color        *string   `json:"color,omitempty"`
	Position     *string   `json:"position,omitempty"`
	WelcomeText  *string   `json:"welcome_text,omitempty"`
	LogoURL      *string   `json:"logo_url,omitempty"`
	ShowBranding *bool     `json:"show_branding,omitempty"`
	AI           *AIConfig `json:"ai_config,omitempty"`
}
