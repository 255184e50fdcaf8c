package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/sparkpanel/sparkd/internal/core/domain"
	"github.com/sparkpanel/sparkd/internal/core/ports"
)

var errRconDisabled = errors.New("rcon is not enabled for this server")

// Engine is the part of the container engine the API reads directly.
type Engine interface {
	Ping(ctx context.Context) error
	ListInstances(ctx context.Context) ([]domain.Instance, error)
}

// DataUsage reports the size of a server's data directory.
type DataUsage interface {
	Usage(serverID string) (int64, error)
}

// TaskSchedule reports when a scheduled task fires next.
type TaskSchedule interface {
	NextRun(taskID string) (time.Time, bool)
}

// BackupCreator archives a server's data directory on demand.
type BackupCreator interface {
	Create(ctx context.Context, serverID string) (domain.Backup, error)
}

// Deps are the collaborators of ServerHandler.
type Deps struct {
	Runtime  ports.Runtime
	Servers  ports.ServerStore
	Tasks    ports.TaskStore
	Backups  ports.BackupStore
	Archiver BackupCreator
	Console  ports.ConsoleBridge
	Engine   Engine
	Usage    DataUsage
	// Schedule is optional.
	Schedule TaskSchedule
	Logger   zerolog.Logger
}

type ServerHandler struct {
	runtime  ports.Runtime
	servers  ports.ServerStore
	tasks    ports.TaskStore
	backups  ports.BackupStore
	archiver BackupCreator
	console  ports.ConsoleBridge
	engine   Engine
	usage    DataUsage
	schedule TaskSchedule
	logger   zerolog.Logger
}

func NewServerHandler(d Deps) *ServerHandler {
	return &ServerHandler{
		runtime:  d.Runtime,
		servers:  d.Servers,
		tasks:    d.Tasks,
		backups:  d.Backups,
		archiver: d.Archiver,
		console:  d.Console,
		engine:   d.Engine,
		usage:    d.Usage,
		schedule: d.Schedule,
		logger:   d.Logger,
	}
}

// PutServer stores the definition and makes sure the server is running.
func (h *ServerHandler) PutServer(c *fiber.Ctx) error {
	var opts domain.CreateServerOptions
	if err := c.BodyParser(&opts); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	id := c.Params("id")
	if opts.ID != "" && opts.ID != id {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Body id does not match path id",
		})
	}
	opts.ID = id

	if err := opts.Validate(); err != nil {
		return h.fail(c, err)
	}
	if err := h.servers.SaveServer(opts); err != nil {
		return h.fail(c, err)
	}

	handle, err := h.runtime.CreateOrStart(c.UserContext(), opts)
	if err != nil {
		return h.fail(c, err)
	}

	status := fiber.StatusOK
	if handle.Created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(handle)
}

func (h *ServerHandler) GetServer(c *fiber.Ctx) error {
	status, err := h.runtime.Status(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	if status == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Server has no runtime instance",
		})
	}
	return c.JSON(status)
}

func (h *ServerHandler) StopServer(c *fiber.Ctx) error {
	if err := h.runtime.Stop(c.UserContext(), c.Params("id")); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ServerHandler) RestartServer(c *fiber.Ctx) error {
	opts, err := h.servers.GetServer(c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	handle, err := h.runtime.Restart(c.UserContext(), opts)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(handle)
}

// DeleteServer removes the instance, its definition and its tasks. Data and backups stay.
func (h *ServerHandler) DeleteServer(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.runtime.Remove(c.UserContext(), id); err != nil {
		return h.fail(c, err)
	}
	if err := h.servers.DeleteServer(id); err != nil {
		return h.fail(c, err)
	}
	tasks, err := h.tasks.ListTasks(id)
	if err != nil {
		return h.fail(c, err)
	}
	for _, t := range tasks {
		if err := h.tasks.DeleteTask(t.ID); err != nil {
			return h.fail(c, err)
		}
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetStats answers 204 when the server is not running.
func (h *ServerHandler) GetStats(c *fiber.Ctx) error {
	sample, err := h.runtime.GetStats(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	if sample == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.JSON(sample)
}

// GetUsage reports the disk space taken by the server's data directory.
func (h *ServerHandler) GetUsage(c *fiber.Ctx) error {
	id := c.Params("id")
	n, err := h.usage.Usage(id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"serverId":  id,
		"dataBytes": n,
	})
}

// ListInstances lists every managed container known to the engine, running or not.
func (h *ServerHandler) ListInstances(c *fiber.Ctx) error {
	instances, err := h.engine.ListInstances(c.UserContext())
	if err != nil {
		return h.fail(c, &domain.RuntimeEngineError{Op: "list", Err: err})
	}
	return c.JSON(instances)
}

type CommandRequest struct {
	Command string `json:"command"`
}

// SendCommand runs one console command through the server's RCON port.
func (h *ServerHandler) SendCommand(c *fiber.Ctx) error {
	var req CommandRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	opts, err := h.servers.GetServer(c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	rcon, ok := opts.Rcon()
	if !ok {
		return h.fail(c, &domain.ConfigurationError{Field: "rcon", Err: errRconDisabled})
	}

	reply, err := h.console.SendCommand(c.UserContext(), "", rcon.Port, rcon.Password, req.Command)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"reply": reply,
	})
}

func (h *ServerHandler) Health(c *fiber.Ctx) error {
	if err := h.engine.Ping(c.UserContext()); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unavailable",
			"error":  err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"status": "ok",
	})
}
