package domain

import "errors"

// Domain errors
var (
	ErrInvalidPlan            = errors.New("invalid plan")
	ErrPlanNotFound           = errors.New("plan not found")
	ErrInstallmentNotFound    = errors.New("installment not found")
	ErrInstallmentAlreadyPaid = errors.New("installment is already paid")
	ErrInstallmentNotPaid     = errors.New("installment is not paid")
	ErrInvalidAmount          = errors.New("paid amount must be positive")
	ErrNotesTooLong           = errors.New("notes must be 1000 characters or less")
	ErrInvalidPaymentMethod   = errors.New("invalid payment method")
	ErrInvalidInstallmentUnit = errors.New("installment unit must be days, weeks or months")
	ErrConcurrentModification = errors.New("plan was modified concurrently")
	ErrForbidden              = errors.New("forbidden")
	ErrUnauthorized           = errors.New("unauthorized")
)

// Validation constants
const (
	MaxProductNameLength = 200
	MaxNotesLength       = 1000
	MaxInstallmentCount  = 600
)
