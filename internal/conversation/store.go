package conversation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists conversations and messages in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a conversation store on the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Create starts a new conversation for a visitor.
func (s *Store) Create(ctx context.Context, tenantID uuid.UUID, visitorID string) (*Conversation, error) {
	var c Conversation
	err := s.pool.QueryRow(ctx, `
		INSERT INTO conversations (tenant_id, visitor_id)
		VALUES ($1, $2)
		RETURNING id, tenant_id, visitor_id, created_at, updated_at`,
		tenantID, visitorID,
	).Scan(&c.ID, &c.TenantID, &c.VisitorID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating conversation: %w", err)
	}
	return &c, nil
}

// Get returns a conversation by id within the tenant's scope.
func (s *Store) Get(ctx context.Context, tenantID, convID uuid.UUID) (*Conversation, error) {
	var c Conversation
	err := s.pool.QueryRow(ctx, `
		SELECT id, tenant_id, visitor_id, created_at, updated_at
		FROM conversations
		WHERE id = $1 AND tenant_id = $2`,
		convID, tenantID,
	).Scan(&c.ID, &c.TenantID, &c.VisitorID, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting conversation: %w", err)
	}
	return &c, nil
}

// List returns the tenant's conversations, most recently active first.
func (s *Store) List(ctx context.Context, tenantID uuid.UUID) ([]Conversation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, tenant_id, visitor_id, created_at, updated_at
		FROM conversations
		WHERE tenant_id = $1
		ORDER BY updated_at DESC`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	defer rows.Close()

	var out []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.TenantID, &c.VisitorID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversations: %w", err)
	}
	return out, nil
}

// AppendMessage stores a new message in a conversation. Status starts at sent.
func (s *Store) AppendMessage(ctx context.Context, convID uuid.UUID, sender Sender, content string) (*Message, error) {
	var m Message
	err := s.pool.QueryRow(ctx, `
		INSERT INTO messages (conversation_id, sender, content)
		VALUES ($1, $2, $3)
		RETURNING id, conversation_id, sender, content, status, created_at`,
		convID, sender, content,
	).Scan(&m.ID, &m.ConversationID, &m.Sender, &m.Content, &m.Status, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("appending message: %w", err)
	}
	return &m, nil
}

// Messages returns every message in a conversation, oldest first.
func (s *Store) Messages(ctx context.Context, convID uuid.UUID) ([]Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, conversation_id, sender, content, status, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC`,
		convID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// Recent returns the last limit messages of a conversation in chronological
// order. This is the history window handed to the response selector.
func (s *Store) Recent(ctx context.Context, convID uuid.UUID, limit int) ([]Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, conversation_id, sender, content, status, created_at
		FROM (
			SELECT id, conversation_id, sender, content, status, created_at
			FROM messages
			WHERE conversation_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC`,
		convID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing recent messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

func scanMessages(rows pgx.Rows) ([]Message, error) {
	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Sender, &m.Content, &m.Status, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}
	return out, nil
}

// Touch bumps a conversation's updated_at so listings sort by last activity.
func (s *Store) Touch(ctx context.Context, convID uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `
		UPDATE conversations SET updated_at = now() WHERE id = $1`,
		convID,
	); err != nil {
		return fmt.Errorf("touching conversation: %w", err)
	}
	return nil
}

// AdvanceStatus moves a message's delivery status forward. The rank guard is
// in SQL so concurrent advances stay monotonic. Returns ErrNotFound when the
// message does not exist within the tenant's scope, ErrStatusRegression when
// the requested status does not advance the current one.
func (s *Store) AdvanceStatus(ctx context.Context, tenantID, messageID uuid.UUID, status Status) (*Message, error) {
	var m Message
	err := s.pool.QueryRow(ctx, `
		UPDATE messages m
		SET status = $3
		FROM conversations c
		WHERE m.id = $1
		  AND m.conversation_id = c.id
		  AND c.tenant_id = $2
		  AND array_position(ARRAY['sent','delivered','seen'], $3::text)
		    > array_position(ARRAY['sent','delivered','seen'], m.status)
		RETURNING m.id, m.conversation_id, m.sender, m.content, m.status, m.created_at`,
		messageID, tenantID, status,
	).Scan(&m.ID, &m.ConversationID, &m.Sender, &m.Content, &m.Status, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// Distinguish a missing message from a regression attempt.
		var current Status
		lookupErr := s.pool.QueryRow(ctx, `
			SELECT m.status
			FROM messages m
			JOIN conversations c ON c.id = m.conversation_id
			WHERE m.id = $1 AND c.tenant_id = $2`,
			messageID, tenantID,
		).Scan(&current)
		if errors.Is(lookupErr, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		if lookupErr != nil {
			return nil, fmt.Errorf("checking message status: %w", lookupErr)
		}
		return nil, fmt.Errorf("%w: %s -> %s", ErrStatusRegression, current, status)
	}
	if err != nil {
		return nil, fmt.Errorf("advancing message status: %w", err)
	}
	return &m, nil
}

// CountByTenant returns the tenant's conversation count.
func (s *Store) CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM conversations WHERE tenant_id = $1`,
		tenantID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting conversations: %w", err)
	}
	return n, nil
}

// CountMessagesByTenant returns the tenant's total message count.
func (s *Store) CountMessagesByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE c.tenant_id = $1`,
		tenantID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting messages: %w", err)
	}
	return n, nil
}
