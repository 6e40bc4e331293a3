package handlers

import (
	"net/http"

	"chyll/internal/services"

	"github.com/labstack/echo/v4"
)

// WaitlistHandlers serves the public marketing-site waitlist endpoints.
// No authentication: these sit behind the rate limiter instead.
type WaitlistHandlers struct {
	waitlistService services.WaitlistService
}

func NewWaitlistHandlers(waitlistService services.WaitlistService) *WaitlistHandlers {
	return &WaitlistHandlers{waitlistService: waitlistService}
}

// Join handles POST /v1/waitlist
func (h *WaitlistHandlers) Join(c echo.Context) error {
	ctx := c.Request().Context()

	var req struct {
		Email      string  `json:"email"`
		ReferredBy *string `json:"referred_by"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	status, inserted, err := h.waitlistService.Join(ctx, req.Email, req.ReferredBy)
	if err != nil {
		return serviceError(err)
	}

	code := http.StatusOK
	message := "Already on the waitlist"
	if inserted {
		code = http.StatusCreated
		message = "Joined the waitlist"
	}
	return c.JSON(code, map[string]interface{}{
		"message":       message,
		"position":      status.Position,
		"points":        status.Entrant.Points,
		"referral_code": status.Entrant.ReferralCode,
	})
}

// Status handles GET /v1/waitlist/status
func (h *WaitlistHandlers) Status(c echo.Context) error {
	ctx := c.Request().Context()

	email := c.QueryParam("email")
	status, err := h.waitlistService.Status(ctx, email)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"position":       status.Position,
		"points":         status.Entrant.Points,
		"referral_code":  status.Entrant.ReferralCode,
		"referral_count": status.Entrant.ReferralCount,
	})
}

// JoinCommunity handles POST /v1/waitlist/community
func (h *WaitlistHandlers) JoinCommunity(c echo.Context) error {
	ctx := c.Request().Context()

	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	status, err := h.waitlistService.JoinCommunity(ctx, req.Email)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":  "Community bonus applied",
		"position": status.Position,
		"points":   status.Entrant.Points,
	})
}
