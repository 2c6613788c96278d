package handler

import (
	"net/http"

	"github.com/dafibh/qist/qist-backend/internal/middleware"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
)

// RegisterRoutes sets up all API routes
func RegisterRoutes(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, publicLimiter *middleware.RateLimiter, planHandler *PlanHandler, paymentHandler *PaymentHandler, receiptHandler *ReceiptHandler) {
	// API docs
	e.GET("/swagger/*", echoSwagger.WrapHandler)
	e.GET("/openapi.json", ServeOpenAPI3Spec)

	// API version 1
	api := e.Group("/api/v1")

	auth := authMiddleware.Authenticate()
	staff := middleware.RequireStaff()
	admin := middleware.RequireAdmin()

	installments := api.Group("/installments")

	// Public customer summary (unauthenticated, rate limited per IP)
	installments.GET("/customer/:customerId", planHandler.CustomerSummary, middleware.RateLimitMiddleware(publicLimiter))

	// Plans
	installments.POST("", planHandler.CreatePlan, auth, staff)
	installments.POST("/preview", planHandler.PreviewPlan, auth, staff)
	installments.GET("", planHandler.ListPlans, auth)
	installments.GET("/details/:planId", planHandler.GetPlanDetails, auth)
	installments.DELETE("/:planId", planHandler.DeletePlan, auth, admin)

	// Payments
	installments.PUT("/:planId/pay", paymentHandler.PayInstallment, auth, staff)
	installments.PUT("/:planId/unpay", paymentHandler.MarkUnpaid, auth, staff)

	// Receipts
	installments.POST("/:planId/installments/:number/receipt", receiptHandler.UploadReceipt, auth, staff)
	installments.GET("/:planId/installments/:number/receipt", receiptHandler.GetReceipt, auth)
}

// RegisterOperationalRoutes adds liveness and metrics endpoints
func RegisterOperationalRoutes(e *echo.Echo, metricsHandler http.Handler) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if metricsHandler != nil {
		e.GET("/metrics", echo.WrapHandler(metricsHandler))
	}
}
