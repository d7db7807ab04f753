package knowledge

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists knowledge entries in PostgreSQL. All operations are scoped to
// a tenant; cross-tenant ids behave as missing.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a knowledge store on the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Create validates and inserts an entry.
func (s *Store) Create(ctx context.Context, e *Entry) (*Entry, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	var out Entry
	err := s.pool.QueryRow(ctx, `
		INSERT INTO knowledge_entries (tenant_id, entry_type, question, answer, content, meta)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, tenant_id, entry_type, question, answer, content, meta, created_at, updated_at`,
		e.TenantID, e.Type, e.Question, e.Answer, e.Content, e.Meta,
	).Scan(&out.ID, &out.TenantID, &out.Type, &out.Question, &out.Answer, &out.Content,
		&out.Meta, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating knowledge entry: %w", err)
	}
	return &out, nil
}

// Get returns a single entry within the tenant's scope.
func (s *Store) Get(ctx context.Context, tenantID, id uuid.UUID) (*Entry, error) {
	var e Entry
	err := s.pool.QueryRow(ctx, `
		SELECT id, tenant_id, entry_type, question, answer, content, meta, created_at, updated_at
		FROM knowledge_entries
		WHERE id = $1 AND tenant_id = $2`,
		id, tenantID,
	).Scan(&e.ID, &e.TenantID, &e.Type, &e.Question, &e.Answer, &e.Content,
		&e.Meta, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting knowledge entry: %w", err)
	}
	return &e, nil
}

// List returns the tenant's entries, most recently updated first. This is also
// the order the context builder consumes.
func (s *Store) List(ctx context.Context, tenantID uuid.UUID) ([]Entry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, tenant_id, entry_type, question, answer, content, meta, created_at, updated_at
		FROM knowledge_entries
		WHERE tenant_id = $1
		ORDER BY updated_at DESC`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing knowledge entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.TenantID, &e.Type, &e.Question, &e.Answer, &e.Content,
			&e.Meta, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning knowledge entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating knowledge entries: %w", err)
	}
	return out, nil
}

// Update validates and replaces an entry's payload fields within the tenant's
// scope, bumping updated_at.
func (s *Store) Update(ctx context.Context, e *Entry) (*Entry, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	var out Entry
	err := s.pool.QueryRow(ctx, `
		UPDATE knowledge_entries
		SET entry_type = $3, question = $4, answer = $5, content = $6, meta = $7, updated_at = now()
		WHERE id = $1 AND tenant_id = $2
		RETURNING id, tenant_id, entry_type, question, answer, content, meta, created_at, updated_at`,
		e.ID, e.TenantID, e.Type, e.Question, e.Answer, e.Content, e.Meta,
	).Scan(&out.ID, &out.TenantID, &out.Type, &out.Question, &out.Answer, &out.Content,
		&out.Meta, &out.CreatedAt, &out.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updating knowledge entry: %w", err)
	}
	return &out, nil
}

// Delete removes an entry within the tenant's scope.
func (s *Store) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM knowledge_entries WHERE id = $1 AND tenant_id = $2`,
		id, tenantID,
	)
	if err != nil {
		return fmt.Errorf("deleting knowledge entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByTenant returns the tenant's entry count.
func (s *Store) CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM knowledge_entries WHERE tenant_id = $1`,
		tenantID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting knowledge entries: %w", err)
	}
	return n, nil
}
