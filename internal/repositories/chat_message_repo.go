package repositories

import (
	"context"

	"chyll/internal/models"

	"github.com/google/uuid"
)

type ChatMessageRepository interface {
	Create(ctx context.Context, message *models.ChatMessage) error
	ListBySession(ctx context.Context, clientID, sessionID uuid.UUID, limit int) ([]*models.ChatMessage, error)
}

type chatMessageRepo struct {
	db DB
}

func NewChatMessageRepo(db DB) ChatMessageRepository {
	return &chatMessageRepo{db: db}
}

func (r *chatMessageRepo) Create(ctx context.Context, message *models.ChatMessage) error {
	query := `
		INSERT INTO chat_messages (id, session_id, client_id, role, content, tool_calls, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`
	_, err := r.db.Exec(ctx, query, message.ID, message.SessionID, message.ClientID, message.Role, message.Content, message.ToolCalls)
	return err
}

// ListBySession returns the transcript oldest first, the order it is replayed
// to the completion endpoint.
func (r *chatMessageRepo) ListBySession(ctx context.Context, clientID, sessionID uuid.UUID, limit int) ([]*models.ChatMessage, error) {
	query := `
		SELECT id, session_id, client_id, role, content, tool_calls, created_at
		FROM chat_messages
		WHERE client_id = $1 AND session_id = $2
		ORDER BY created_at ASC
		LIMIT $3
	`
	rows, err := r.db.Query(ctx, query, clientID, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*models.ChatMessage
	for rows.Next() {
		message := &models.ChatMessage{}
		if err := rows.Scan(&message.ID, &message.SessionID, &message.ClientID, &message.Role, &message.Content, &message.ToolCalls, &message.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	return messages, rows.Err()
}
