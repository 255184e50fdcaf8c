package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/sparkpanel/sparkd/internal/metrics"
)

// AppConfig holds fiber server settings.
type AppConfig struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewApp builds the fiber app with all routes registered.
func NewApp(h *ServerHandler, cfg AppConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "sparkd",
		DisableStartupMessage: true,
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		ErrorHandler:          errorHandler,
	})
	app.Use(recover.New())
	app.Use(requestLogger(h.logger))

	Register(app, h)
	return app
}

// Register mounts the API routes on app.
func Register(app *fiber.App, h *ServerHandler) {
	app.Get("/healthz", h.Health)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	v1 := app.Group("/api/v1")
	v1.Get("/instances", h.ListInstances)

	servers := v1.Group("/servers")
	servers.Put("/:id", h.PutServer)
	servers.Get("/:id", h.GetServer)
	servers.Delete("/:id", h.DeleteServer)
	servers.Post("/:id/stop", h.StopServer)
	servers.Post("/:id/restart", h.RestartServer)
	servers.Get("/:id/stats", h.GetStats)
	servers.Get("/:id/usage", h.GetUsage)
	servers.Get("/:id/logs", h.StreamLogs)
	servers.Post("/:id/command", h.SendCommand)

	servers.Get("/:id/tasks", h.ListTasks)
	servers.Post("/:id/tasks", h.CreateTask)
	servers.Delete("/:id/tasks/:taskId", h.DeleteTask)

	servers.Get("/:id/backups", h.ListBackups)
	servers.Post("/:id/backups", h.CreateBackup)
}

func requestLogger(logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		logger.Debug().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", c.Response().StatusCode()).
			Dur("duration", time.Since(start)).
			Msg("request")
		return err
	}
}
