package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sparkpanel/sparkd/internal/core/domain"
)

func (h *ServerHandler) ListBackups(c *fiber.Ctx) error {
	backups, err := h.backups.ListBackups(c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	if backups == nil {
		backups = []domain.Backup{}
	}
	return c.JSON(backups)
}

func (h *ServerHandler) CreateBackup(c *fiber.Ctx) error {
	b, err := h.archiver.Create(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(b)
}
