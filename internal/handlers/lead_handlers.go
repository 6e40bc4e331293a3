package handlers

import (
	"net/http"
	"strconv"
	"time"

	"chyll/internal/common"
	"chyll/internal/models"
	"chyll/internal/services"

	"github.com/labstack/echo/v4"
)

// LeadHandlers handles HTTP requests for leads
type LeadHandlers struct {
	leadService   services.LeadService
	exportService services.ExportService
}

func NewLeadHandlers(leadService services.LeadService, exportService services.ExportService) *LeadHandlers {
	return &LeadHandlers{
		leadService:   leadService,
		exportService: exportService,
	}
}

type leadRequest struct {
	FullName         *string  `json:"full_name"`
	JobTitle         *string  `json:"job_title"`
	Company          *string  `json:"company"`
	Location         *string  `json:"location"`
	Email            *string  `json:"email"`
	Phone            *string  `json:"phone"`
	LinkedinURL      *string  `json:"linkedin_url"`
	Status           string   `json:"status"`
	MRR              *float64 `json:"mrr"`
	ARR              *float64 `json:"arr"`
	PipelineStage    *string  `json:"pipeline_stage"`
	CloseProbability *float64 `json:"close_probability"`
	ExpectedCloseAt  *string  `json:"expected_close_at"`
	Source           *string  `json:"source"`
}

func (r *leadRequest) toModel() (*models.Lead, error) {
	lead := &models.Lead{
		FullName:         r.FullName,
		JobTitle:         r.JobTitle,
		Company:          r.Company,
		Location:         r.Location,
		Email:            r.Email,
		Phone:            r.Phone,
		LinkedinURL:      r.LinkedinURL,
		Status:           r.Status,
		MRR:              r.MRR,
		ARR:              r.ARR,
		PipelineStage:    r.PipelineStage,
		CloseProbability: r.CloseProbability,
		Source:           r.Source,
	}
	if r.ExpectedCloseAt != nil && *r.ExpectedCloseAt != "" {
		closeAt, err := common.ValidateDateFormat(*r.ExpectedCloseAt, "expected_close_at")
		if err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		lead.ExpectedCloseAt = closeAt
	}
	return lead, nil
}

// CreateLead handles POST /v1/leads
func (h *LeadHandlers) CreateLead(c echo.Context) error {
	ctx := c.Request().Context()

	clientID, ok := common.GetClientIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Client not authenticated")
	}

	var req leadRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	lead, err := req.toModel()
	if err != nil {
		return err
	}

	if err := h.leadService.Create(ctx, clientID, lead); err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "Lead created successfully",
		"lead":    lead,
	})
}

// ListLeads handles GET /v1/leads
func (h *LeadHandlers) ListLeads(c echo.Context) error {
	ctx := c.Request().Context()

	clientID, ok := common.GetClientIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Client not authenticated")
	}

	limit, offset := queryPagination(c)
	leads, err := h.leadService.List(ctx, clientID, limit, offset)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"leads":  leads,
		"limit":  limit,
		"offset": offset,
	})
}

// GetLeadByID handles GET /v1/leads/:id
func (h *LeadHandlers) GetLeadByID(c echo.Context) error {
	ctx := c.Request().Context()

	leadID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	clientID, ok := common.GetClientIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Client not authenticated")
	}

	lead, err := h.leadService.GetByID(ctx, clientID, leadID)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, lead)
}

// SearchLeads handles GET /v1/leads/search
func (h *LeadHandlers) SearchLeads(c echo.Context) error {
	ctx := c.Request().Context()

	clientID, ok := common.GetClientIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Client not authenticated")
	}

	limit, offset := queryPagination(c)
	filter := &models.LeadSearchFilter{
		Query:     c.QueryParam("q"),
		SortBy:    c.QueryParam("sort_by"),
		SortOrder: common.ValidateSortOrder(c.QueryParam("sort_order")),
		Limit:     limit,
		Offset:    offset,
	}
	if status := c.QueryParam("status"); status != "" {
		filter.Status = &status
	}
	if company := c.QueryParam("company"); company != "" {
		filter.Company = &company
	}

	leads, err := h.leadService.Search(ctx, clientID, filter)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"leads":  leads,
		"limit":  limit,
		"offset": offset,
		"query":  filter.Query,
	})
}

// UpdateLeadStatus handles PATCH /v1/leads/:id/status
func (h *LeadHandlers) UpdateLeadStatus(c echo.Context) error {
	ctx := c.Request().Context()

	leadID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	clientID, ok := common.GetClientIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Client not authenticated")
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	lead, err := h.leadService.UpdateStatus(ctx, clientID, leadID, req.Status)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Lead status updated successfully",
		"lead":    lead,
	})
}

// UpdateLeadSalesData handles PATCH /v1/leads/:id/sales
func (h *LeadHandlers) UpdateLeadSalesData(c echo.Context) error {
	ctx := c.Request().Context()

	leadID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	clientID, ok := common.GetClientIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Client not authenticated")
	}

	var req struct {
		MRR              *float64 `json:"mrr"`
		ARR              *float64 `json:"arr"`
		PipelineStage    *string  `json:"pipeline_stage"`
		CloseProbability *float64 `json:"close_probability"`
		ExpectedCloseAt  *string  `json:"expected_close_at"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	data := &models.LeadSalesData{
		MRR:              req.MRR,
		ARR:              req.ARR,
		PipelineStage:    req.PipelineStage,
		CloseProbability: req.CloseProbability,
	}
	if req.ExpectedCloseAt != nil && *req.ExpectedCloseAt != "" {
		closeAt, err := common.ValidateDateFormat(*req.ExpectedCloseAt, "expected_close_at")
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		data.ExpectedCloseAt = closeAt
	}
	now := time.Now()
	data.LastActivityAt = &now

	if err := h.leadService.UpdateSalesData(ctx, clientID, leadID, data); err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "Lead sales data updated successfully",
	})
}

// BulkUpsertLeads handles POST /v1/leads/bulk
func (h *LeadHandlers) BulkUpsertLeads(c echo.Context) error {
	ctx := c.Request().Context()

	clientID, ok := common.GetClientIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Client not authenticated")
	}

	var req struct {
		Leads []*models.Lead `json:"leads"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if len(req.Leads) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "At least one lead is required")
	}

	written, err := h.leadService.BulkUpsert(ctx, clientID, req.Leads)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Leads upserted successfully",
		"count":   written,
	})
}

// ExportLeads handles GET /v1/leads/export
func (h *LeadHandlers) ExportLeads(c echo.Context) error {
	ctx := c.Request().Context()

	clientID, ok := common.GetClientIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Client not authenticated")
	}

	url, err := h.exportService.ExportLeadsCSV(ctx, clientID)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"url":        url,
		"expires_in": "1h",
	})
}

func queryPagination(c echo.Context) (int, int) {
	limit := 0
	offset := 0
	if limitParam := c.QueryParam("limit"); limitParam != "" {
		if l, err := strconv.Atoi(limitParam); err == nil {
			limit = l
		}
	}
	if offsetParam := c.QueryParam("offset"); offsetParam != "" {
		if o, err := strconv.Atoi(offsetParam); err == nil {
			offset = o
		}
	}
	return common.ValidatePaginationParams(limit, offset)
}
