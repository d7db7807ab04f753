// Package tenant resolves API keys to tenant identities. It backs the HTTP
// auth middleware; everything downstream works with the resolved tenant id.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrUnknownKey indicates the API key matches no tenant.
var ErrUnknownKey = errors.New("unknown API key")

// Tenant is one customer account.
type Tenant struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Store resolves and manages tenants in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a tenant store on the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// ResolveKey maps an API key to its tenant id.
func (s *Store) ResolveKey(ctx context.Context, apiKey string) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, `
		SELECT id FROM tenants WHERE api_key = $1`,
		apiKey,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, ErrUnknownKey
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("resolving API key: %w", err)
	}
	return id, nil
}

// Exists reports whether a tenant id is known. Used by the public widget
// endpoint and the websocket join, which identify tenants by id rather than
// API key.
func (s *Store) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var found bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM tenants WHERE id = $1)`,
		id,
	).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("checking tenant: %w", err)
	}
	return found, nil
}
