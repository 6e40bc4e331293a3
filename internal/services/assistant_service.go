package services

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"unicode/utf8"

	"chyll/internal/common"
	"chyll/internal/integrations/openaiapi"
	"chyll/internal/models"

	"github.com/google/uuid"
)

const assistantSystemPrompt = "Tu es l'assistant commercial de chyll. Tu aides l'utilisateur à gérer son pipeline de prospection : recherche de prospects, suivi des statuts, rédaction d'emails. Réponds en français, de façon concise."

// searchTriggers route a user message to the lead source instead of the LLM.
var searchTriggers = []string{"recherche", "trouve", "cherche", "search", "find"}

const (
	searchBatchMin = 5
	searchBatchMax = 10
)

// transcriptWindow caps how much history is replayed to the model.
const transcriptWindow = 20

type AssistantReply struct {
	SessionID uuid.UUID      `json:"session_id"`
	Message   string         `json:"message"`
	LeadCount int            `json:"lead_count,omitempty"`
	Leads     []*models.Lead `json:"leads,omitempty"`
}

type AssistantService interface {
	HandleMessage(ctx context.Context, clientID uuid.UUID, sessionID *uuid.UUID, content string) (*AssistantReply, error)
}

type assistantService struct {
	chatService ChatService
	leadService LeadService
	leadSource  LeadSource
	llm         *openaiapi.Client
}

func NewAssistantService(chatService ChatService, leadService LeadService, leadSource LeadSource, llm *openaiapi.Client) AssistantService {
	return &assistantService{
		chatService: chatService,
		leadService: leadService,
		leadSource:  leadSource,
		llm:         llm,
	}
}

func (s *assistantService) HandleMessage(ctx context.Context, clientID uuid.UUID, sessionID *uuid.UUID, content string) (*AssistantReply, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, common.NewValidationError("content", "message is required")
	}

	session, err := s.resolveSession(ctx, clientID, sessionID, content)
	if err != nil {
		return nil, err
	}

	userMessage := &models.ChatMessage{
		SessionID: session.ID,
		ClientID:  clientID,
		Role:      models.RoleUser,
		Content:   content,
	}
	if err := s.chatService.AppendMessage(ctx, userMessage); err != nil {
		return nil, err
	}

	var reply *AssistantReply
	if isSearchRequest(content) {
		reply, err = s.runLeadSearch(ctx, clientID, session.ID, content)
	} else {
		reply, err = s.runCompletion(ctx, clientID, session.ID, content)
	}
	if err != nil {
		return nil, err
	}

	assistantMessage := &models.ChatMessage{
		SessionID: session.ID,
		ClientID:  clientID,
		Role:      models.RoleAssistant,
		Content:   reply.Message,
	}
	if reply.LeadCount > 0 {
		assistantMessage.ToolCalls = models.JSONB{
			"tool":  "lead_search",
			"count": reply.LeadCount,
		}
	}
	if err := s.chatService.AppendMessage(ctx, assistantMessage); err != nil {
		return nil, err
	}

	return reply, nil
}

func (s *assistantService) resolveSession(ctx context.Context, clientID uuid.UUID, sessionID *uuid.UUID, content string) (*models.ChatSession, error) {
	if sessionID != nil {
		return s.chatService.GetSession(ctx, clientID, *sessionID)
	}
	title := sessionTitleFrom(content)
	return s.chatService.CreateSession(ctx, clientID, &title)
}

func (s *assistantService) runLeadSearch(ctx context.Context, clientID, sessionID uuid.UUID, query string) (*AssistantReply, error) {
	count := searchBatchMin + rand.Intn(searchBatchMax-searchBatchMin+1)
	leads, err := s.leadSource.FindLeads(ctx, query, count)
	if err != nil {
		return nil, fmt.Errorf("lead search failed: %w", err)
	}

	written, err := s.leadService.BulkUpsert(ctx, clientID, leads)
	if err != nil {
		log.Printf("Bulk upsert stopped after %d leads for client %s: %v", written, clientID.String(), err)
		return nil, err
	}

	return &AssistantReply{
		SessionID: sessionID,
		Message:   fmt.Sprintf("J'ai trouvé %d nouveaux prospects correspondant à votre recherche. Ils ont été ajoutés à votre pipeline avec le statut « %s ».", written, models.StatusToContact),
		LeadCount: written,
		Leads:     leads,
	}, nil
}

func (s *assistantService) runCompletion(ctx context.Context, clientID, sessionID uuid.UUID, content string) (*AssistantReply, error) {
	history, err := s.chatService.ListMessages(ctx, clientID, sessionID)
	if err != nil {
		return nil, err
	}
	if len(history) > transcriptWindow {
		history = history[len(history)-transcriptWindow:]
	}

	messages := make([]openaiapi.Message, 0, len(history)+2)
	messages = append(messages, openaiapi.Message{Role: "system", Content: assistantSystemPrompt})
	for _, m := range history {
		messages = append(messages, openaiapi.Message{Role: m.Role, Content: m.Content})
	}
	// The user message may not be in history yet if the read raced the write.
	if len(history) == 0 || history[len(history)-1].Content != content {
		messages = append(messages, openaiapi.Message{Role: models.RoleUser, Content: content})
	}

	answer, err := s.llm.CreateChatCompletion(ctx, messages)
	if err != nil {
		return nil, common.NewUpstreamError("openai", "", err)
	}

	return &AssistantReply{
		SessionID: sessionID,
		Message:   answer,
	}, nil
}

func isSearchRequest(content string) bool {
	lowered := strings.ToLower(content)
	for _, trigger := range searchTriggers {
		if strings.Contains(lowered, trigger) {
			return true
		}
	}
	return false
}

func sessionTitleFrom(content string) string {
	title := strings.TrimSpace(content)
	if len(title) <= 60 {
		return title
	}
	// Back off to a rune boundary so the cut never splits a multi-byte
	// character.
	cut := 60
	for cut > 0 && !utf8.RuneStart(title[cut]) {
		cut--
	}
	return title[:cut]
}
