package widget

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// defaultSettings are served when a tenant has no row yet; they match the
// column defaults in the schema.
func defaultSettings(tenantID uuid.UUID) *Settings {
	return &Settings{
		TenantID:     tenantID,
		Color:        "#0066FF",
		Position:     "bottom-right",
		WelcomeText:  "Hi! How can we help you today?",
		ShowBranding: true,
	}
}

// Store persists widget settings in PostgreSQL, one row per tenant.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a widget settings store on the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Get returns the tenant's settings, falling back to defaults when no row
// exists yet. A tenant never sees ErrNotFound from Get.
func (s *Store) Get(ctx context.Context, tenantID uuid.UUID) (*Settings, error) {
	var out Settings
	err := s.pool.QueryRow(ctx, `
		SELECT tenant_id, color, position, welcome_text, logo_url, show_branding, ai_config, updated_at
		FROM widget_settings
		WHERE tenant_id = $1`,
		tenantID,
	).Scan(&out.TenantID, &out.Color, &out.Position, &out.WelcomeText, &out.LogoURL,
		&out.ShowBranding, &out.AI, &out.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return defaultSettings(tenantID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting widget settings: %w", err)
	}
	return &out, nil
}

// Update applies a partial change, inserting the row on first write.
func (s *Store) Update(ctx context.Context, tenantID uuid.UUID, u Update) (*Settings, error) {
	current, err := s.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if u.Color != nil {
		current.Color = *u.Color
	}
	if u.Position != nil {
		current.Position = *u.Position
	}
	if u.WelcomeText != nil {
		current.WelcomeText = *u.WelcomeText
	}
	if u.LogoURL != nil {
		current.LogoURL = *u.LogoURL
	}
	if u.ShowBranding != nil {
		current.ShowBranding = *u.ShowBranding
	}
	if u.AI != nil {
		current.AI = *u.AI
	}

	var out Settings
	err = s.pool.QueryRow(ctx, `
		INSERT INTO widget_settings (tenant_id, color, position, welcome_text, logo_url, show_branding, ai_config, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (tenant_id) DO UPDATE
		SET color = EXCLUDED.color,
		    position = EXCLUDED.position,
		    welcome_text = EXCLUDED.welcome_text,
		    logo_url = EXCLUDED.logo_url,
		    show_branding = EXCLUDED.show_branding,
		    ai_config = EXCLUDED.ai_config,
		    updated_at = now()
		RETURNING tenant_id, color, position, welcome_text, logo_url, show_branding, ai_config, updated_at`,
		tenantID, current.Color, current.Position, current.WelcomeText, current.LogoURL,
		current.ShowBranding, current.AI,
	).Scan(&out.TenantID, &out.Color, &out.Position, &out.WelcomeText, &out.LogoURL,
		&out.ShowBranding, &out.AI, &out.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("updating widget settings: %w", err)
	}
	return &out, nil
}

// Public returns the visitor-safe settings subset for the embed endpoint.
func (s *Store) Public(ctx context.Context, tenantID uuid.UUID) (*PublicSettings, error) {
	settings, err := s.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	pub := settings.Public()
	return &pub, nil
}

// AIConfigFor returns the tenant's AI configuration. A tenant without a
// settings row gets the zero AIConfig, which resolves to all defaults.
func (s *Store) AIConfigFor(ctx context.Context, tenantID uuid.UUID) (AIConfig, error) {
	settings, err := s.Get(ctx, tenantID)
	if err != nil {
		return AIConfig{}, err
	}
	return settings.AI, nil
}
