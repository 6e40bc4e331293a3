package handlers

import (
	"net/http"

	"chyll/internal/common"
	"chyll/internal/services"

	"github.com/labstack/echo/v4"
)

// FunctionHandlers reimplements the serverless function surface the dashboard
// frontend already calls. Every function answers OPTIONS preflights with a
// fixed header set, takes POST JSON, and replies {...payload} on success or
// {"error": "..."} with a non-2xx status on failure. The shape is a drop-in
// contract; handlers here must never leak a stack trace or an HTML error page.
type FunctionHandlers struct {
	leadService     services.LeadService
	waitlistService services.WaitlistService
}

func NewFunctionHandlers(leadService services.LeadService, waitlistService services.WaitlistService) *FunctionHandlers {
	return &FunctionHandlers{
		leadService:     leadService,
		waitlistService: waitlistService,
	}
}

var functionCORSHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Headers": "authorization, x-client-info, apikey, content-type",
	"Access-Control-Allow-Methods": "POST, OPTIONS",
}

// CORS applies the fixed function headers and short-circuits preflights.
func (h *FunctionHandlers) CORS(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Response().Header()
		for k, v := range functionCORSHeaders {
			header.Set(k, v)
		}
		if c.Request().Method == http.MethodOptions {
			return c.String(http.StatusOK, "ok")
		}
		return next(c)
	}
}

func functionError(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]string{"error": message})
}

// UpdateLeadStatus handles POST /functions/update-lead-status.
// Request: { lead_id, status, user_id }. Success: { message, lead: { id,
// name, status } }. The caller's user_id scopes the lookup, so a lead owned
// by someone else is indistinguishable from one that does not exist.
func (h *FunctionHandlers) UpdateLeadStatus(c echo.Context) error {
	ctx := c.Request().Context()

	var req struct {
		LeadID string `json:"lead_id"`
		Status string `json:"status"`
		UserID string `json:"user_id"`
	}
	if err := c.Bind(&req); err != nil {
		return functionError(c, http.StatusBadRequest, "invalid JSON body")
	}

	leadID, err := common.ValidateUUID(req.LeadID, "lead_id")
	if err != nil {
		return functionError(c, http.StatusBadRequest, err.Error())
	}
	userID, err := common.ValidateUUID(req.UserID, "user_id")
	if err != nil {
		return functionError(c, http.StatusBadRequest, err.Error())
	}

	lead, err := h.leadService.UpdateStatus(ctx, userID, leadID, req.Status)
	if err != nil {
		if common.IsValidation(err) {
			return functionError(c, http.StatusBadRequest, err.Error())
		}
		if common.IsNotFound(err) {
			return functionError(c, http.StatusNotFound, "lead not found")
		}
		return functionError(c, http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Lead status updated",
		"lead": map[string]interface{}{
			"id":     lead.ID,
			"name":   common.SafeString(lead.FullName),
			"status": lead.Status,
		},
	})
}

// WaitlistJoin handles POST /functions/waitlist-join.
func (h *FunctionHandlers) WaitlistJoin(c echo.Context) error {
	ctx := c.Request().Context()

	var req struct {
		Email      string  `json:"email"`
		ReferredBy *string `json:"referred_by"`
	}
	if err := c.Bind(&req); err != nil {
		return functionError(c, http.StatusBadRequest, "invalid JSON body")
	}

	status, _, err := h.waitlistService.Join(ctx, req.Email, req.ReferredBy)
	if err != nil {
		if common.IsValidation(err) {
			return functionError(c, http.StatusBadRequest, err.Error())
		}
		return functionError(c, http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"position":      status.Position,
		"points":        status.Entrant.Points,
		"referral_code": status.Entrant.ReferralCode,
	})
}
