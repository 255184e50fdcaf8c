package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/sparkpanel/sparkd/internal/core/domain"
	"github.com/sparkpanel/sparkd/internal/scheduler"
)

type CreateTaskRequest struct {
	Type    domain.TaskType `json:"type"`
	Cron    string          `json:"cron"`
	Enabled *bool           `json:"enabled"`
}

type taskView struct {
	domain.ScheduledTask
	NextRunAt *time.Time `json:"nextRunAt,omitempty"`
}

func (h *ServerHandler) ListTasks(c *fiber.Ctx) error {
	tasks, err := h.tasks.ListTasks(c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}

	views := make([]taskView, 0, len(tasks))
	for _, t := range tasks {
		v := taskView{ScheduledTask: t}
		if h.schedule != nil {
			if next, ok := h.schedule.NextRun(t.ID); ok {
				v.NextRunAt = &next
			}
		}
		views = append(views, v)
	}
	return c.JSON(views)
}

func (h *ServerHandler) CreateTask(c *fiber.Ctx) error {
	var req CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if !req.Type.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Task type must be RESTART or BACKUP",
		})
	}
	if err := scheduler.ValidateCron(req.Cron); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	serverID := c.Params("id")
	if _, err := h.servers.GetServer(serverID); err != nil {
		return h.fail(c, err)
	}

	task := domain.ScheduledTask{
		ID:        uuid.NewString(),
		ServerID:  serverID,
		Type:      req.Type,
		Cron:      req.Cron,
		Enabled:   req.Enabled == nil || *req.Enabled,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.tasks.SaveTask(task); err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(task)
}

func (h *ServerHandler) DeleteTask(c *fiber.Ctx) error {
	task, err := h.tasks.GetTask(c.Params("taskId"))
	if err != nil {
		return h.fail(c, err)
	}
	if task.ServerID != c.Params("id") {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Task not found",
		})
	}
	if err := h.tasks.DeleteTask(task.ID); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
