package repositories

import (
	"context"

	"chyll/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ChatSessionRepository interface {
	Create(ctx context.Context, session *models.ChatSession) error
	GetByID(ctx context.Context, clientID, id uuid.UUID) (*models.ChatSession, error)
	List(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*models.ChatSession, error)
	Rename(ctx context.Context, clientID, id uuid.UUID, title string) error
}

type chatSessionRepo struct {
	db DB
}

func NewChatSessionRepo(db DB) ChatSessionRepository {
	return &chatSessionRepo{db: db}
}

func (r *chatSessionRepo) Create(ctx context.Context, session *models.ChatSession) error {
	query := `
		INSERT INTO chat_sessions (id, client_id, title, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, session.ID, session.ClientID, session.Title)
	return err
}

func (r *chatSessionRepo) GetByID(ctx context.Context, clientID, id uuid.UUID) (*models.ChatSession, error) {
	session := &models.ChatSession{}
	query := `
		SELECT id, client_id, title, created_at, updated_at
		FROM chat_sessions
		WHERE client_id = $1 AND id = $2
	`
	err := r.db.QueryRow(ctx, query, clientID, id).Scan(&session.ID, &session.ClientID, &session.Title, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (r *chatSessionRepo) List(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*models.ChatSession, error) {
	query := `
		SELECT id, client_id, title, created_at, updated_at
		FROM chat_sessions
		WHERE client_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, clientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*models.ChatSession
	for rows.Next() {
		session := &models.ChatSession{}
		if err := rows.Scan(&session.ID, &session.ClientID, &session.Title, &session.CreatedAt, &session.UpdatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func (r *chatSessionRepo) Rename(ctx context.Context, clientID, id uuid.UUID, title string) error {
	query := `
		UPDATE chat_sessions
		SET title = $1, updated_at = NOW()
		WHERE client_id = $2 AND id = $3
	`
	tag, err := r.db.Exec(ctx, query, title, clientID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
