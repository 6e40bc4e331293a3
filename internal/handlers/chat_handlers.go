package handlers

import (
	"net/http"

	"chyll/internal/common"
	"chyll/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ChatHandlers handles HTTP requests for chat sessions and the assistant
type ChatHandlers struct {
	chatService      services.ChatService
	assistantService services.AssistantService
}

func NewChatHandlers(chatService services.ChatService, assistantService services.AssistantService) *ChatHandlers {
	return &ChatHandlers{
		chatService:      chatService,
		assistantService: assistantService,
	}
}

// CreateSession handles POST /v1/chat/sessions
func (h *ChatHandlers) CreateSession(c echo.Context) error {
	ctx := c.Request().Context()

	clientID, ok := common.GetClientIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Client not authenticated")
	}

	var req struct {
		Title *string `json:"title"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	session, err := h.chatService.CreateSession(ctx, clientID, req.Title)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "Session created successfully",
		"session": session,
	})
}

// ListSessions handles GET /v1/chat/sessions
func (h *ChatHandlers) ListSessions(c echo.Context) error {
	ctx := c.Request().Context()

	clientID, ok := common.GetClientIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Client not authenticated")
	}

	limit, offset := queryPagination(c)
	sessions, err := h.chatService.ListSessions(ctx, clientID, limit, offset)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"limit":    limit,
		"offset":   offset,
	})
}

// RenameSession handles PATCH /v1/chat/sessions/:id
func (h *ChatHandlers) RenameSession(c echo.Context) error {
	ctx := c.Request().Context()

	sessionID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	clientID, ok := common.GetClientIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Client not authenticated")
	}

	var req struct {
		Title string `json:"title"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := h.chatService.RenameSession(ctx, clientID, sessionID, req.Title); err != nil {
		if err == common.ErrRenameFailed {
			return echo.NewHTTPError(http.StatusInternalServerError, "Session rename failed, please retry")
		}
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "Session renamed successfully",
	})
}

// ListMessages handles GET /v1/chat/sessions/:id/messages
func (h *ChatHandlers) ListMessages(c echo.Context) error {
	ctx := c.Request().Context()

	sessionID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	clientID, ok := common.GetClientIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Client not authenticated")
	}

	messages, err := h.chatService.ListMessages(ctx, clientID, sessionID)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"messages": messages,
		"count":    len(messages),
	})
}

// SendMessage handles POST /v1/chat/messages
func (h *ChatHandlers) SendMessage(c echo.Context) error {
	ctx := c.Request().Context()

	clientID, ok := common.GetClientIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Client not authenticated")
	}

	var req struct {
		SessionID *string `json:"session_id"`
		Content   string  `json:"content"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	var sessionID *uuid.UUID
	if req.SessionID != nil && *req.SessionID != "" {
		id, err := common.ValidateUUID(*req.SessionID, "session_id")
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		sessionID = &id
	}

	reply, err := h.assistantService.HandleMessage(ctx, clientID, sessionID, req.Content)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, reply)
}
