package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dafibh/qist/qist-backend/internal/domain"
	"github.com/dafibh/qist/qist-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// ProblemDetails represents an RFC 7807 Problem Details response
type ProblemDetails struct {
	Type     string            `json:"type"`
	Title    string            `json:"title"`
	Status   int               `json:"status"`
	Detail   string            `json:"detail,omitempty"`
	Instance string            `json:"instance,omitempty"`
	Errors   []ValidationError `json:"errors,omitempty"`
}

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error types
const (
	ErrorTypeValidation   = "https://qist.app/errors/validation"
	ErrorTypeNotFound     = "https://qist.app/errors/not-found"
	ErrorTypeUnauthorized = "https://qist.app/errors/unauthorized"
	ErrorTypeForbidden    = "https://qist.app/errors/forbidden"
	ErrorTypeConflict     = "https://qist.app/errors/conflict"
	ErrorTypeInternal     = "https://qist.app/errors/internal"
	ErrorTypeUnavailable  = "https://qist.app/errors/service-unavailable"
)

func problem(c echo.Context, status int, errorType, title, detail string, errs []ValidationError) error {
	return c.JSON(status, ProblemDetails{
		Type:     errorType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Request().URL.Path,
		Errors:   errs,
	})
}

// NewValidationError creates a validation error response
func NewValidationError(c echo.Context, detail string, errors []ValidationError) error {
	return problem(c, http.StatusBadRequest, ErrorTypeValidation, "Validation Error", detail, errors)
}

// NewNotFoundError creates a not found error response
func NewNotFoundError(c echo.Context, detail string) error {
	return problem(c, http.StatusNotFound, ErrorTypeNotFound, "Not Found", detail, nil)
}

// NewUnauthorizedError creates an unauthorized error response
func NewUnauthorizedError(c echo.Context, detail string) error {
	return problem(c, http.StatusUnauthorized, ErrorTypeUnauthorized, "Unauthorized", detail, nil)
}

// NewForbiddenError creates a forbidden error response
func NewForbiddenError(c echo.Context, detail string) error {
	return problem(c, http.StatusForbidden, ErrorTypeForbidden, "Forbidden", detail, nil)
}

// NewConflictError creates a conflict error response
func NewConflictError(c echo.Context, detail string) error {
	return problem(c, http.StatusConflict, ErrorTypeConflict, "Conflict", detail, nil)
}

// NewInternalError creates an internal error response
func NewInternalError(c echo.Context, detail string) error {
	return problem(c, http.StatusInternalServerError, ErrorTypeInternal, "Internal Server Error", detail, nil)
}

// NewServiceUnavailableError is returned when an optional backend is not configured
func NewServiceUnavailableError(c echo.Context, detail string) error {
	return problem(c, http.StatusServiceUnavailable, ErrorTypeUnavailable, "Service Unavailable", detail, nil)
}

// validationMessage strips the sentinel prefix from a wrapped validation error
func validationMessage(err error, sentinel error) string {
	msg := strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
	if msg == "" {
		return sentinel.Error()
	}
	return msg
}

// respondError maps service and domain errors to problem responses.
// Anything unrecognised is logged and reported as a 500.
func respondError(c echo.Context, err error, action string) error {
	switch {
	case errors.Is(err, domain.ErrInvalidPlan):
		return NewValidationError(c, validationMessage(err, domain.ErrInvalidPlan), nil)
	case errors.Is(err, domain.ErrInvalidInstallmentUnit):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "installmentUnit", Message: err.Error()},
		})
	case errors.Is(err, domain.ErrInvalidAmount):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "customAmount", Message: err.Error()},
		})
	case errors.Is(err, domain.ErrInvalidPaymentMethod):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "paymentMethod", Message: err.Error()},
		})
	case errors.Is(err, domain.ErrNotesTooLong):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "notes", Message: err.Error()},
		})
	case errors.Is(err, service.ErrReceiptTooLarge),
		errors.Is(err, service.ErrReceiptInvalidFormat),
		errors.Is(err, service.ErrReceiptTooSmall),
		errors.Is(err, service.ErrReceiptInvalidData):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "file", Message: err.Error()},
		})
	case errors.Is(err, domain.ErrPlanNotFound):
		return NewNotFoundError(c, "Plan not found")
	case errors.Is(err, domain.ErrInstallmentNotFound):
		return NewNotFoundError(c, "Installment not found")
	case errors.Is(err, service.ErrReceiptNotFound):
		return NewNotFoundError(c, "Receipt not found")
	case errors.Is(err, domain.ErrForbidden):
		return NewForbiddenError(c, "You do not have access to this plan")
	case errors.Is(err, domain.ErrUnauthorized):
		return NewUnauthorizedError(c, "Authentication required")
	case errors.Is(err, domain.ErrInstallmentAlreadyPaid):
		return NewConflictError(c, "Installment is already paid")
	case errors.Is(err, domain.ErrInstallmentNotPaid):
		return NewConflictError(c, "Installment is not paid")
	case errors.Is(err, domain.ErrConcurrentModification):
		return NewConflictError(c, "Plan was modified by another request, please retry")
	case errors.Is(err, service.ErrReceiptStorageNotConfigured):
		return NewServiceUnavailableError(c, "Receipt uploads are disabled (storage not configured)")
	default:
		log.Error().Err(err).Str("path", c.Request().URL.Path).Msg("Failed to " + action)
		return NewInternalError(c, "Failed to "+action)
	}
}
