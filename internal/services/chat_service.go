package services

import (
	"context"
	"errors"
	"strings"

	"chyll/internal/common"
	"chyll/internal/events"
	"chyll/internal/models"
	"chyll/internal/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	maxSessionTitleLength = 120

	// maxTranscriptMessages bounds a single transcript read.
	maxTranscriptMessages = 200
)

type ChatService interface {
	CreateSession(ctx context.Context, clientID uuid.UUID, title *string) (*models.ChatSession, error)
	GetSession(ctx context.Context, clientID, sessionID uuid.UUID) (*models.ChatSession, error)
	ListSessions(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*models.ChatSession, error)
	RenameSession(ctx context.Context, clientID, sessionID uuid.UUID, title string) error
	ListMessages(ctx context.Context, clientID, sessionID uuid.UUID) ([]*models.ChatMessage, error)
	AppendMessage(ctx context.Context, message *models.ChatMessage) error
}

type chatService struct {
	sessionRepo repositories.ChatSessionRepository
	messageRepo repositories.ChatMessageRepository
	publisher   events.Publisher
}

func NewChatService(sessionRepo repositories.ChatSessionRepository, messageRepo repositories.ChatMessageRepository, publisher events.Publisher) ChatService {
	return &chatService{
		sessionRepo: sessionRepo,
		messageRepo: messageRepo,
		publisher:   publisher,
	}
}

func (s *chatService) CreateSession(ctx context.Context, clientID uuid.UUID, title *string) (*models.ChatSession, error) {
	if title != nil {
		trimmed := strings.TrimSpace(*title)
		if len(trimmed) > maxSessionTitleLength {
			return nil, common.NewValidationError("title", "title is too long")
		}
		if trimmed == "" {
			title = nil
		} else {
			title = &trimmed
		}
	}

	session := &models.ChatSession{
		ID:       uuid.New(),
		ClientID: clientID,
		Title:    title,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	s.publisher.SessionChanged(ctx, clientID, session.ID, events.ActionInsert)
	return session, nil
}

func (s *chatService) GetSession(ctx context.Context, clientID, sessionID uuid.UUID) (*models.ChatSession, error) {
	session, err := s.sessionRepo.GetByID(ctx, clientID, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewNotFoundError("chat session")
		}
		return nil, err
	}
	return session, nil
}

func (s *chatService) ListSessions(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*models.ChatSession, error) {
	return s.sessionRepo.List(ctx, clientID, limit, offset)
}

// RenameSession surfaces failures to the caller instead of swallowing them;
// the handler decides how to report a rename that did not stick.
func (s *chatService) RenameSession(ctx context.Context, clientID, sessionID uuid.UUID, title string) error {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return common.NewValidationError("title", "title is required")
	}
	if len(trimmed) > maxSessionTitleLength {
		return common.NewValidationError("title", "title is too long")
	}

	if err := s.sessionRepo.Rename(ctx, clientID, sessionID, trimmed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.NewNotFoundError("chat session")
		}
		return common.ErrRenameFailed
	}

	s.publisher.SessionChanged(ctx, clientID, sessionID, events.ActionUpdate)
	return nil
}

func (s *chatService) ListMessages(ctx context.Context, clientID, sessionID uuid.UUID) ([]*models.ChatMessage, error) {
	if _, err := s.GetSession(ctx, clientID, sessionID); err != nil {
		return nil, err
	}
	return s.messageRepo.ListBySession(ctx, clientID, sessionID, maxTranscriptMessages)
}

func (s *chatService) AppendMessage(ctx context.Context, message *models.ChatMessage) error {
	// Empty content is a valid sentinel when the message carries tool calls.
	if message.Content == "" && len(message.ToolCalls) == 0 {
		return common.NewValidationError("content", "content is required")
	}
	if message.Role != models.RoleUser && message.Role != models.RoleAssistant {
		return common.NewValidationError("role", "role must be user or assistant")
	}
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	return s.messageRepo.Create(ctx, message)
}
