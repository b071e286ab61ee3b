package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/acme/chat-webhook-gateway/internal/domain"
)

// ConversationRepository implements repository.ConversationRepository using
// PostgreSQL.
type ConversationRepository struct {
	db *sqlx.DB
}

// NewConversationRepository constructs a new repository.
func NewConversationRepository(db *sqlx.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// Insert archives one exchange.
func (r *ConversationRepository) Insert(ctx context.Context, conv *domain.Conversation) error {
	q := `INSERT INTO conversations (
		id, app, session_id, user_id, user_name, message, reply, status, error_kind, created_at
	) VALUES (
		:id, :app, :session_id, :user_id, :user_name, :message, :reply, :status, :error_kind, :created_at
	)`

	params := map[string]any{
		"id":         conv.ID,
		"app":        conv.App,
		"session_id": conv.SessionID,
		"user_id":    conv.UserID,
		"user_name":  conv.UserName,
		"message":    conv.Message,
		"reply":      conv.Reply,
		"status":     conv.Status,
		"error_kind": conv.ErrorKind,
		"created_at": conv.CreatedAt,
	}

	if _, err := r.db.NamedExecContext(ctx, q, params); err != nil {
		return fmt.Errorf("conversation repo: insert: %w", err)
	}

	return nil
}

// ListPage returns one page of conversations, newest first, plus the total
// row count for pagination.
func (r *ConversationRepository) ListPage(ctx context.Context, limit, offset int) ([]domain.Conversation, int64, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM conversations`); err != nil {
		return nil, 0, fmt.Errorf("conversation repo: count: %w", err)
	}

	rows := []domain.Conversation{}
	q := `SELECT id, app, session_id, user_id, user_name, message, reply, status, error_kind, created_at
		FROM conversations ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	if err := r.db.SelectContext(ctx, &rows, q, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("conversation repo: list: %w", err)
	}

	return rows, total, nil
}
