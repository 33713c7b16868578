package postgres

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/resumehq/resume-evaluator/internal/domain"
)

// ChatRepo persists the append-only chat transcript.
type ChatRepo struct{ Pool PgxPool }

// NewChatRepo constructs a ChatRepo with the given pool.
func NewChatRepo(p PgxPool) *ChatRepo { return &ChatRepo{Pool: p} }

// Append stores one transcript turn and returns its id.
func (r *ChatRepo) Append(ctx domain.Context, m domain.ChatMessage) (string, error) {
	tracer := otel.Tracer("repo.chats")
	ctx, span := tracer.Start(ctx, "chats.Append")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "chat_messages"),
	)
	id := m.ID
	if id == "" {
		id = uuid.New().String()
	}
	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	q := `INSERT INTO chat_messages (id, user_id, sender, text, created_at) VALUES ($1,$2,$3,$4,$5)`
	_, err := r.Pool.Exec(ctx, q, id, m.UserID, string(m.Sender), m.Text, createdAt)
	if err != nil {
		return "", fmt.Errorf("op=chat.append: %w", err)
	}
	return id, nil
}

// ListByUser returns the user's most recent turns in chronological order.
// limit <= 0 means no limit.
func (r *ChatRepo) ListByUser(ctx domain.Context, userID string, limit int) ([]domain.ChatMessage, error) {
	tracer := otel.Tracer("repo.chats")
	ctx, span := tracer.Start(ctx, "chats.ListByUser")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "chat_messages"),
	)
	q := `SELECT id, user_id, sender, text, created_at FROM (
	        SELECT id, user_id, sender, text, created_at FROM chat_messages
	        WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2
	      ) recent ORDER BY created_at ASC`
	if limit <= 0 {
		limit = 1 << 30
	}
	rows, err := r.Pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("op=chat.list_by_user: %w", err)
	}
	defer rows.Close()

	msgs := make([]domain.ChatMessage, 0)
	for rows.Next() {
		var m domain.ChatMessage
		var sender string
		if err := rows.Scan(&m.ID, &m.UserID, &sender, &m.Text, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("op=chat.list_by_user scan: %w", err)
		}
		m.Sender = domain.ChatSender(sender)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=chat.list_by_user rows: %w", err)
	}
	return msgs, nil
}
