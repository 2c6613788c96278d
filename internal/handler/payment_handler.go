package handler

import (
	"net/http"

	"github.com/dafibh/qist/qist-backend/internal/domain"
	"github.com/dafibh/qist/qist-backend/internal/middleware"
	"github.com/dafibh/qist/qist-backend/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// PaymentHandler handles installment payment requests
type PaymentHandler struct {
	reconciliationService *service.ReconciliationService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(reconciliationService *service.ReconciliationService) *PaymentHandler {
	return &PaymentHandler{reconciliationService: reconciliationService}
}

// PayInstallmentRequest represents the pay request body. It records a
// payment for a pending installment and edits the payment of a paid one.
type PayInstallmentRequest struct {
	InstallmentNumber int32   `json:"installmentNumber"`
	PaymentMethod     string  `json:"paymentMethod"`
	Notes             *string `json:"notes,omitempty"`
	CustomAmount      *int64  `json:"customAmount,omitempty"`
	DueDate           *string `json:"dueDate,omitempty"`
}

// UnpayInstallmentRequest represents the mark-unpaid request body
type UnpayInstallmentRequest struct {
	InstallmentNumber int32 `json:"installmentNumber"`
}

// PayInstallment godoc
// @Summary Record or edit an installment payment
// @Description Records a payment on a pending installment, redistributing any difference over the later pending installments. On an already paid installment the payment details are replaced instead.
// @Tags installments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Param request body PayInstallmentRequest true "Payment"
// @Success 200 {object} service.PaymentResult
// @Failure 400 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Router /installments/{planId}/pay [put]
func (h *PaymentHandler) PayInstallment(c echo.Context) error {
	caller, ok := middleware.GetCaller(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	planID, err := uuid.Parse(c.Param("planId"))
	if err != nil {
		return invalidPlanID(c)
	}

	var req PayInstallmentRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	if req.InstallmentNumber <= 0 {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "installmentNumber", Message: "Must be a positive integer"},
		})
	}

	input := service.PaymentInput{
		InstallmentNumber: req.InstallmentNumber,
		Amount:            req.CustomAmount,
		PaymentMethod:     domain.PaymentMethod(req.PaymentMethod),
		Notes:             req.Notes,
	}
	if req.DueDate != nil && *req.DueDate != "" {
		dueDate, err := parseDate(*req.DueDate)
		if err != nil {
			return NewValidationError(c, "Invalid due date", []ValidationError{
				{Field: "dueDate", Message: "Must be in YYYY-MM-DD format"},
			})
		}
		input.DueDate = &dueDate
	}

	result, err := h.reconciliationService.Pay(c.Request().Context(), caller, planID, input)
	if err != nil {
		return respondError(c, err, "record payment")
	}
	return c.JSON(http.StatusOK, result)
}

// MarkUnpaid godoc
// @Summary Revert an installment payment
// @Description Returns a paid installment to pending with its scheduled amount. Other installments are not changed.
// @Tags installments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Param request body UnpayInstallmentRequest true "Installment to revert"
// @Success 200 {object} service.PaymentResult
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Router /installments/{planId}/unpay [put]
func (h *PaymentHandler) MarkUnpaid(c echo.Context) error {
	caller, ok := middleware.GetCaller(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	planID, err := uuid.Parse(c.Param("planId"))
	if err != nil {
		return invalidPlanID(c)
	}

	var req UnpayInstallmentRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	if req.InstallmentNumber <= 0 {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "installmentNumber", Message: "Must be a positive integer"},
		})
	}

	result, err := h.reconciliationService.MarkUnpaid(c.Request().Context(), caller, planID, req.InstallmentNumber)
	if err != nil {
		return respondError(c, err, "revert payment")
	}
	return c.JSON(http.StatusOK, result)
}

