package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/dafibh/qist/qist-backend/internal/middleware"
	"github.com/dafibh/qist/qist-backend/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// ReceiptHandler handles payment receipt uploads
type ReceiptHandler struct {
	receiptService *service.ReceiptService
}

// NewReceiptHandler creates a new ReceiptHandler
func NewReceiptHandler(receiptService *service.ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{receiptService: receiptService}
}

func parseInstallmentNumber(c echo.Context) (int32, bool) {
	n, err := strconv.ParseInt(c.Param("number"), 10, 32)
	if err != nil || n <= 0 {
		return 0, false
	}
	return int32(n), true
}

// UploadReceipt godoc
// @Summary Attach a payment receipt
// @Description Upload a JPEG or PNG receipt for a paid installment. Replaces any previous receipt.
// @Tags receipts
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Param number path int true "Installment number"
// @Param file formData file true "Receipt image"
// @Success 201 {object} service.ReceiptInfo
// @Failure 400 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Failure 503 {object} ProblemDetails
// @Router /installments/{planId}/installments/{number}/receipt [post]
func (h *ReceiptHandler) UploadReceipt(c echo.Context) error {
	caller, ok := middleware.GetCaller(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	if !h.receiptService.IsEnabled() {
		return NewServiceUnavailableError(c, "Receipt uploads are disabled (storage not configured)")
	}
	planID, err := uuid.Parse(c.Param("planId"))
	if err != nil {
		return invalidPlanID(c)
	}
	number, ok := parseInstallmentNumber(c)
	if !ok {
		return NewValidationError(c, "Invalid installment number", []ValidationError{
			{Field: "number", Message: "Must be a positive integer"},
		})
	}

	file, err := c.FormFile("file")
	if err != nil {
		return NewValidationError(c, "No file provided", []ValidationError{
			{Field: "file", Message: "File is required"},
		})
	}
	if file.Size > service.MaxReceiptSize {
		return respondError(c, service.ErrReceiptTooLarge, "upload receipt")
	}

	src, err := file.Open()
	if err != nil {
		log.Error().Err(err).Msg("Failed to open uploaded file")
		return NewInternalError(c, "Failed to process file")
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, service.MaxReceiptSize+1))
	if err != nil {
		log.Error().Err(err).Msg("Failed to read uploaded file")
		return NewInternalError(c, "Failed to read file")
	}

	info, err := h.receiptService.AttachReceipt(c.Request().Context(), caller, planID, number, data, file.Filename)
	if err != nil {
		return respondError(c, err, "upload receipt")
	}
	return c.JSON(http.StatusCreated, info)
}

// GetReceipt godoc
// @Summary Get a receipt download URL
// @Description Returns a short-lived presigned URL for the installment's receipt
// @Tags receipts
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Param number path int true "Installment number"
// @Success 200 {object} service.ReceiptInfo
// @Failure 403 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /installments/{planId}/installments/{number}/receipt [get]
func (h *ReceiptHandler) GetReceipt(c echo.Context) error {
	caller, ok := middleware.GetCaller(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	planID, err := uuid.Parse(c.Param("planId"))
	if err != nil {
		return invalidPlanID(c)
	}
	number, ok := parseInstallmentNumber(c)
	if !ok {
		return NewValidationError(c, "Invalid installment number", []ValidationError{
			{Field: "number", Message: "Must be a positive integer"},
		})
	}

	info, err := h.receiptService.ReceiptURL(c.Request().Context(), caller, planID, number)
	if err != nil {
		return respondError(c, err, "get receipt")
	}
	return c.JSON(http.StatusOK, info)
}
