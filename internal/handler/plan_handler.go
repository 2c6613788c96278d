package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dafibh/qist/qist-backend/internal/domain"
	"github.com/dafibh/qist/qist-backend/internal/middleware"
	"github.com/dafibh/qist/qist-backend/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// PlanHandler handles installment plan HTTP requests
type PlanHandler struct {
	planService *service.PlanService
}

// NewPlanHandler creates a new PlanHandler
func NewPlanHandler(planService *service.PlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

// CreatePlanRequest represents the create plan request body.
// monthlyInstallment is accepted for compatibility and recomputed server-side.
type CreatePlanRequest struct {
	CustomerID         string `json:"customerId"`
	Name               string `json:"name"`
	Email              string `json:"email"`
	Phone              string `json:"phone"`
	Address            string `json:"address"`
	ProductName        string `json:"productName"`
	ProductDescription string `json:"productDescription"`
	TotalAmount        int64  `json:"totalAmount"`
	AdvanceAmount      int64  `json:"advanceAmount"`
	InstallmentCount   int32  `json:"installmentCount"`
	InstallmentUnit    string `json:"installmentUnit"`
	MonthlyInstallment *int64 `json:"monthlyInstallment,omitempty"`
	StartDate          string `json:"startDate"`
	DueDay             *int32 `json:"dueDay,omitempty"`
	DueDate            *int32 `json:"dueDate,omitempty"` // legacy name for dueDay
}

// PreviewPlanRequest represents the schedule preview request body
type PreviewPlanRequest struct {
	TotalAmount      int64  `json:"totalAmount"`
	AdvanceAmount    int64  `json:"advanceAmount"`
	InstallmentCount int32  `json:"installmentCount"`
	InstallmentUnit  string `json:"installmentUnit"`
	StartDate        string `json:"startDate"`
	DueDay           *int32 `json:"dueDay,omitempty"`
}

// PlanListResponse is a page of plans
type PlanListResponse struct {
	Plans  []*service.PlanListItem `json:"plans"`
	Limit  int                     `json:"limit"`
	Offset int                     `json:"offset"`
}

// parseDate accepts YYYY-MM-DD or RFC 3339
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}

func invalidPlanID(c echo.Context) error {
	return NewValidationError(c, "Invalid plan ID", []ValidationError{
		{Field: "planId", Message: "Must be a valid UUID"},
	})
}

// CreatePlan godoc
// @Summary Create an installment plan
// @Description Generate the installment schedule for a customer purchase and store the plan
// @Tags installments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreatePlanRequest true "Plan creation request"
// @Success 201 {object} service.PlanDetails
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Router /installments [post]
func (h *PlanHandler) CreatePlan(c echo.Context) error {
	caller, ok := middleware.GetCaller(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req CreatePlanRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	startDate, err := parseDate(req.StartDate)
	if err != nil {
		return NewValidationError(c, "Invalid start date", []ValidationError{
			{Field: "startDate", Message: "Must be in YYYY-MM-DD format"},
		})
	}

	var dueDay int32
	switch {
	case req.DueDay != nil:
		dueDay = *req.DueDay
	case req.DueDate != nil:
		dueDay = *req.DueDate
	}

	details, err := h.planService.CreatePlan(c.Request().Context(), caller, service.CreatePlanInput{
		CustomerID:         req.CustomerID,
		CustomerName:       req.Name,
		CustomerEmail:      req.Email,
		CustomerPhone:      req.Phone,
		CustomerAddress:    req.Address,
		ProductName:        req.ProductName,
		ProductDescription: req.ProductDescription,
		Schedule: service.ScheduleInput{
			TotalAmount:      req.TotalAmount,
			AdvanceAmount:    req.AdvanceAmount,
			InstallmentCount: req.InstallmentCount,
			InstallmentUnit:  domain.InstallmentUnit(req.InstallmentUnit),
			StartDate:        startDate,
			DueDay:           dueDay,
		},
	})
	if err != nil {
		return respondError(c, err, "create plan")
	}

	return c.JSON(http.StatusCreated, details)
}

// PreviewPlan godoc
// @Summary Preview an installment schedule
// @Description Compute the schedule a plan would get without storing anything
// @Tags installments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body PreviewPlanRequest true "Schedule inputs"
// @Success 200 {object} service.ScheduleResult
// @Failure 400 {object} ProblemDetails
// @Router /installments/preview [post]
func (h *PlanHandler) PreviewPlan(c echo.Context) error {
	var req PreviewPlanRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	startDate, err := parseDate(req.StartDate)
	if err != nil {
		return NewValidationError(c, "Invalid start date", []ValidationError{
			{Field: "startDate", Message: "Must be in YYYY-MM-DD format"},
		})
	}
	var dueDay int32
	if req.DueDay != nil {
		dueDay = *req.DueDay
	}

	result, err := h.planService.PreviewPlan(service.ScheduleInput{
		TotalAmount:      req.TotalAmount,
		AdvanceAmount:    req.AdvanceAmount,
		InstallmentCount: req.InstallmentCount,
		InstallmentUnit:  domain.InstallmentUnit(req.InstallmentUnit),
		StartDate:        startDate,
		DueDay:           dueDay,
	})
	if err != nil {
		return respondError(c, err, "preview plan")
	}
	return c.JSON(http.StatusOK, result)
}

// ListPlans godoc
// @Summary List installment plans
// @Description Staff see every plan; customers only their own
// @Tags installments
// @Produce json
// @Security BearerAuth
// @Param customerId query string false "Filter by customer"
// @Param status query string false "active, overdue or completed"
// @Param search query string false "Product or customer name"
// @Param limit query int false "Page size (default 50, max 200)"
// @Param offset query int false "Page offset"
// @Success 200 {object} PlanListResponse
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails
// @Router /installments [get]
func (h *PlanHandler) ListPlans(c echo.Context) error {
	caller, ok := middleware.GetCaller(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	filter := domain.PlanFilter{
		CustomerID: c.QueryParam("customerId"),
		Status:     domain.PlanStatus(c.QueryParam("status")),
		Search:     c.QueryParam("search"),
	}
	if v := c.QueryParam("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return NewValidationError(c, "Invalid limit", []ValidationError{
				{Field: "limit", Message: "Must be a non-negative integer"},
			})
		}
		filter.Limit = limit
	}
	if v := c.QueryParam("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			return NewValidationError(c, "Invalid offset", []ValidationError{
				{Field: "offset", Message: "Must be a non-negative integer"},
			})
		}
		filter.Offset = offset
	}

	plans, err := h.planService.ListPlans(c.Request().Context(), caller, filter)
	if err != nil {
		return respondError(c, err, "list plans")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = service.DefaultPageSize
	}
	if limit > service.MaxPageSize {
		limit = service.MaxPageSize
	}
	return c.JSON(http.StatusOK, PlanListResponse{Plans: plans, Limit: limit, Offset: filter.Offset})
}

// GetPlanDetails godoc
// @Summary Get plan details
// @Description Full plan with the derived status of every installment
// @Tags installments
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Success 200 {object} service.PlanDetails
// @Failure 403 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /installments/details/{planId} [get]
func (h *PlanHandler) GetPlanDetails(c echo.Context) error {
	caller, ok := middleware.GetCaller(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	id, err := uuid.Parse(c.Param("planId"))
	if err != nil {
		return invalidPlanID(c)
	}

	details, err := h.planService.GetPlan(c.Request().Context(), caller, id)
	if err != nil {
		return respondError(c, err, "get plan")
	}
	return c.JSON(http.StatusOK, details)
}

// DeletePlan godoc
// @Summary Delete a plan
// @Description Removes the plan and all its installments. Admin only.
// @Tags installments
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Success 204
// @Failure 403 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /installments/{planId} [delete]
func (h *PlanHandler) DeletePlan(c echo.Context) error {
	caller, ok := middleware.GetCaller(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	id, err := uuid.Parse(c.Param("planId"))
	if err != nil {
		return invalidPlanID(c)
	}

	if err := h.planService.DeletePlan(c.Request().Context(), caller, id); err != nil {
		return respondError(c, err, "delete plan")
	}
	return c.NoContent(http.StatusNoContent)
}

// CustomerSummary godoc
// @Summary Public customer summary
// @Description Unauthenticated overview of a customer's plans without payment details
// @Tags public
// @Produce json
// @Param customerId path string true "Customer ID"
// @Success 200 {array} service.PublicPlanSummary
// @Failure 400 {object} ProblemDetails
// @Failure 429 {object} ProblemDetails
// @Router /installments/customer/{customerId} [get]
func (h *PlanHandler) CustomerSummary(c echo.Context) error {
	summaries, err := h.planService.CustomerSummary(c.Request().Context(), c.Param("customerId"))
	if err != nil {
		return respondError(c, err, "load customer summary")
	}
	return c.JSON(http.StatusOK, summaries)
}
