package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/kyfplatform/kyf-api/pkg/config"
	"github.com/kyfplatform/kyf-api/pkg/errx"
	"github.com/kyfplatform/kyf-api/pkg/logx"
)

func main() {
	// 1. Configuration
	cfg, err := config.Load()
	if err != nil {
		logx.Fatalf("configuration error: %v", err)
	}

	// 2. Logger
	logx.SetDefaultLogger(logx.NewLogger(
		logx.ParseLevel(cfg.App.LogLevel),
		logx.Format(cfg.App.LogFormat),
	))
	logx.Infof("starting %s", cfg.App.Name)

	// 3. Dependency container
	container := NewContainer(cfg)
	defer container.Cleanup()

	// 4. Fiber app
	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
		ErrorHandler:          globalErrorHandler,
	})

	// 5. Global middleware
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return uuid.NewString()
		},
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.App.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		AllowMethods: "GET, POST, PUT, DELETE, PATCH, HEAD, OPTIONS",
	}))

	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path} | ${ip} | ${reqHeader:X-Request-ID}\n",
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Local",
	}))

	// 6. Health & info endpoints
	app.Get("/health", healthCheckHandler(container))
	app.Get("/", infoHandler(cfg))

	// 7. Routes
	container.IAM.AuthHandlers.RegisterRoutes(app)
	logx.Info("auth routes registered")

	// 8. 404 handler
	app.Use(notFoundHandler)

	// 9. Start with graceful shutdown
	startServer(app, cfg.App.Port)
}

// ============================================================================
// Handlers
// ============================================================================

func healthCheckHandler(container *Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		health := fiber.Map{
			"status":  "healthy",
			"service": container.Config.App.Name,
		}

		if err := container.DB.Ping(); err != nil {
			health["db"] = "unhealthy"
			health["status"] = "degraded"
		} else {
			health["db"] = "healthy"
		}

		if err := container.Redis.Ping(c.Context()).Err(); err != nil {
			health["redis"] = "unhealthy"
			health["status"] = "degraded"
		} else {
			health["redis"] = "healthy"
		}

		status := fiber.StatusOK
		if health["status"] == "degraded" {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(health)
	}
}

func infoHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service": cfg.App.Name,
			"endpoints": fiber.Map{
				"generate_otp":  "POST /api/v1/auth/generate_otp",
				"verify_otp":    "POST /api/v1/auth/verify_otp",
				"refresh_token": "POST /api/v1/auth/refresh_token",
				"me":            "GET /api/v1/auth/me",
				"health":        "GET /health",
			},
		})
	}
}

func notFoundHandler(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"success": false,
		"message": "Route not found",
		"errors":  []string{"The requested endpoint does not exist"},
	})
}

// ============================================================================
// Error Translator
// ============================================================================

// globalErrorHandler is the single place internal failures become client
// responses. Typed errors render their registered envelope; everything
// else collapses to a generic 500 with no internal detail.
func globalErrorHandler(c *fiber.Ctx, err error) error {
	entry := logx.WithFields(logx.Fields{
		"path":       c.Path(),
		"method":     c.Method(),
		"ip":         c.IP(),
		"request_id": c.GetRespHeader("X-Request-ID"),
	})

	if e, ok := errx.As(err); ok {
		if e.HTTPStatus >= fiber.StatusInternalServerError {
			entry.Errorf("request failed: %v", err)
		} else {
			entry.Warnf("request rejected: %v", err)
		}
		return c.Status(e.HTTPStatus).JSON(e.ToEnvelope())
	}

	if e, ok := err.(*fiber.Error); ok {
		entry.Warnf("request failed: %v", err)
		return c.Status(e.Code).JSON(errx.Envelope{
			Success: false,
			Message: e.Message,
			Errors:  []string{e.Message},
		})
	}

	entry.Errorf("unexpected error: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(errx.InternalEnvelope())
}

// ============================================================================
// Lifecycle
// ============================================================================

func startServer(app *fiber.App, port string) {
	go func() {
		logx.Infof("server listening on port %s", port)
		if err := app.Listen(":" + port); err != nil {
			logx.Fatalf("server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	logx.Infof("received signal: %v, shutting down", sig)

	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		logx.Errorf("server forced to shutdown: %v", err)
	}

	logx.Info("server exited")
}
