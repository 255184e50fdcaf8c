package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/sparkpanel/sparkd/internal/core/domain"
)

// statusFor maps a domain error to an HTTP status.
func statusFor(err error) int {
	var (
		cfgErr     *domain.ConfigurationError
		storageErr *domain.StorageError
		engineErr  *domain.RuntimeEngineError
		consoleErr *domain.ConsoleConnectionError
		fiberErr   *fiber.Error
	)
	switch {
	case errors.As(err, &cfgErr):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.As(err, &storageErr):
		return fiber.StatusInternalServerError
	case errors.As(err, &engineErr):
		return fiber.StatusBadGateway
	case errors.As(err, &consoleErr):
		return fiber.StatusGatewayTimeout
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	default:
		return fiber.StatusInternalServerError
	}
}

func (h *ServerHandler) fail(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		h.logger.Error().Err(err).Str("path", c.Path()).Int("status", status).Msg("request failed")
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// errorHandler renders errors escaping handlers in the same JSON shape.
func errorHandler(c *fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{
		"error": err.Error(),
	})
}
