package handlers

import (
	"net/http"

	"chyll/internal/common"
	"chyll/internal/services"

	"github.com/labstack/echo/v4"
)

// MailboxHandlers handles Gmail connection and outbound email requests
type MailboxHandlers struct {
	oauthService services.OAuthService
	mailService  services.MailService
}

func NewMailboxHandlers(oauthService services.OAuthService, mailService services.MailService) *MailboxHandlers {
	return &MailboxHandlers{
		oauthService: oauthService,
		mailService:  mailService,
	}
}

// ConnectMailbox handles POST /v1/mailbox/connect
func (h *MailboxHandlers) ConnectMailbox(c echo.Context) error {
	ctx := c.Request().Context()

	clientID, ok := common.GetClientIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Client not authenticated")
	}

	var req struct {
		Code string `json:"code"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	conn, err := h.oauthService.ConnectMailbox(ctx, clientID, req.Code)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":       "Mailbox connected successfully",
		"email_address": conn.EmailAddress,
	})
}

// GetConnection handles GET /v1/mailbox
func (h *MailboxHandlers) GetConnection(c echo.Context) error {
	ctx := c.Request().Context()

	clientID, ok := common.GetClientIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Client not authenticated")
	}

	conn, err := h.oauthService.GetConnection(ctx, clientID)
	if err != nil {
		return serviceError(err)
	}

	// Tokens never leave the server
	return c.JSON(http.StatusOK, map[string]interface{}{
		"email_address": conn.EmailAddress,
		"connected_at":  conn.CreatedAt,
		"expires_at":    conn.ExpiresAt,
	})
}

// SendEmail handles POST /v1/mailbox/send
func (h *MailboxHandlers) SendEmail(c echo.Context) error {
	ctx := c.Request().Context()

	clientID, ok := common.GetClientIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Client not authenticated")
	}

	var req struct {
		LeadID  *string `json:"lead_id"`
		To      string  `json:"to"`
		Subject string  `json:"subject"`
		Body    string  `json:"body"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	input := &services.SendEmailInput{
		To:      req.To,
		Subject: req.Subject,
		Body:    req.Body,
	}
	if req.LeadID != nil && *req.LeadID != "" {
		leadID, err := common.ValidateUUID(*req.LeadID, "lead_id")
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		input.LeadID = &leadID
	}

	job, err := h.mailService.SendLeadEmail(ctx, clientID, input)
	if err != nil {
		// The job row captures the failure; report it with the ledger entry.
		if job != nil {
			return c.JSON(http.StatusBadGateway, map[string]interface{}{
				"message": "Email send failed",
				"job":     job,
			})
		}
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Email sent successfully",
		"job":     job,
	})
}

// ListEmailJobs handles GET /v1/mailbox/jobs
func (h *MailboxHandlers) ListEmailJobs(c echo.Context) error {
	ctx := c.Request().Context()

	clientID, ok := common.GetClientIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Client not authenticated")
	}

	limit, offset := queryPagination(c)
	jobs, err := h.mailService.ListJobs(ctx, clientID, limit, offset)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"jobs":   jobs,
		"limit":  limit,
		"offset": offset,
	})
}
