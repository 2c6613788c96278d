// @title Qist API
// @version 1.0
// @description Installment plan scheduling and payment reconciliation
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the Auth0 access token.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dafibh/qist/qist-backend/internal/config"
	"github.com/dafibh/qist/qist-backend/internal/handler"
	"github.com/dafibh/qist/qist-backend/internal/lock"
	"github.com/dafibh/qist/qist-backend/internal/messaging"
	"github.com/dafibh/qist/qist-backend/internal/metrics"
	"github.com/dafibh/qist/qist-backend/internal/middleware"
	"github.com/dafibh/qist/qist-backend/internal/repository/postgres"
	"github.com/dafibh/qist/qist-backend/internal/repository/storage"
	"github.com/dafibh/qist/qist-backend/internal/service"
	"github.com/dafibh/qist/qist-backend/internal/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Initialize zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Apply schema migrations
	if err := postgres.RunMigrations(cfg.DatabaseURL, "file://"+cfg.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Connect to database
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	// Verify database connection
	if err := pool.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Connected to database")

	// Per-plan locking: Redis when several instances share the database
	var locker lock.Locker = lock.NewMemoryLocker()
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid REDIS_URL")
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Fatal().Err(err).Msg("Failed to ping redis")
		}
		locker = lock.NewRedisLocker(redisClient, cfg.PlanLockTTL)
		log.Info().Msg("Using redis plan locks")
	} else {
		log.Info().Msg("Using in-process plan locks")
	}

	appMetrics := metrics.New()

	// Event fan-out: websocket hub always, Kafka when configured
	hub := websocket.NewHub()
	publisher := websocket.NewMultiPublisher(hub)
	var kafkaPublisher *messaging.KafkaPublisher
	if cfg.KafkaBrokers != "" {
		kafkaPublisher = messaging.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		publisher.Add(kafkaPublisher)
		log.Info().Str("topic", cfg.KafkaTopic).Msg("Mirroring plan events to kafka")
	}

	// Initialize repositories
	planRepo := postgres.NewPlanRepository(pool)

	var receiptStorage storage.ReceiptStorage
	if cfg.S3.Enabled() {
		s3Storage, err := storage.NewS3ReceiptStorage(context.Background(), cfg.S3)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize receipt storage")
		}
		receiptStorage = s3Storage
	} else {
		log.Warn().Msg("S3_BUCKET not set, receipt uploads disabled")
	}

	// Initialize services
	planService := service.NewPlanService(planRepo, locker)
	planService.SetEventPublisher(publisher)
	planService.SetMetrics(appMetrics)

	reconciliationService := service.NewReconciliationService(planRepo, locker)
	reconciliationService.SetEventPublisher(publisher)
	reconciliationService.SetMetrics(appMetrics)

	receiptService := service.NewReceiptService(receiptStorage, planRepo, locker)
	receiptService.SetEventPublisher(publisher)

	// Initialize auth
	claimNames := middleware.ClaimNames{Role: cfg.Auth0RoleClaim, CustomerID: cfg.Auth0CustomerClaim}
	authMiddleware, err := middleware.NewAuthMiddleware(cfg.Auth0Domain, cfg.Auth0Audience, claimNames)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create auth middleware")
	}
	wsValidator, err := websocket.NewAuth0JWTValidator(cfg.Auth0Domain, cfg.Auth0Audience, claimNames)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create websocket token validator")
	}

	publicLimiter := middleware.NewRateLimiterWithConfig(cfg.PublicRateLimit, cfg.PublicRateLimit/2)

	// Initialize handlers
	planHandler := handler.NewPlanHandler(planService)
	paymentHandler := handler.NewPaymentHandler(reconciliationService)
	receiptHandler := handler.NewReceiptHandler(receiptService)
	wsHandler := handler.NewWebSocketHandler(hub, wsValidator, cfg.CORSOrigins)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Request ID middleware
	e.Use(echomiddleware.RequestID())

	// CORS middleware
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Security headers middleware (helmet-like)
	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))

	// Request logging middleware with zerolog
	e.Use(zerologMiddleware())

	// Recovery middleware
	e.Use(echomiddleware.Recover())

	// Health check and metrics
	handler.RegisterOperationalRoutes(e, appMetrics.Handler())

	// Realtime plan events
	e.GET("/ws", wsHandler.HandleWS)

	// Register API routes
	handler.RegisterRoutes(e, authMiddleware, publicLimiter, planHandler, paymentHandler, receiptHandler)

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	hub.CloseAll()
	publicLimiter.Stop()
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to flush kafka publisher")
		}
	}

	log.Info().Msg("Server exited")
}

// zerologMiddleware returns a middleware that logs requests using zerolog
func zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			log.Info().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Msg("request")

			return nil
		}
	}
}
