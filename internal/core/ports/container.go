package ports

import (
	"context"
	"io"
	"time"

	"github.com/sparkpanel/sparkd/internal/core/domain"
)

// Engine is the container engine client the core depends on.
// The engine is the single source of truth for instance state; implementations must not cache it.
type Engine interface {
	Ping(ctx context.Context) error
	PullImage(ctx context.Context, ref string) error

	// FindInstance returns the id of the instance with exactly this name, or "" when absent.
	FindInstance(ctx context.Context, name string) (string, error)
	InspectInstance(ctx context.Context, id string) (domain.Instance, error)
	ListInstances(ctx context.Context) ([]domain.Instance, error)

	CreateInstance(ctx context.Context, spec domain.InstanceSpec) (string, error)
	StartInstance(ctx context.Context, id string) error
	// StopInstance blocks until the engine reports the instance stopped.
	StopInstance(ctx context.Context, id string, timeout time.Duration) error
	RemoveInstance(ctx context.Context, id string) error

	InstanceStats(ctx context.Context, id string) (domain.StatsSnapshot, error)
	// InstanceLogs follows combined stdout/stderr starting with the last tail lines.
	InstanceLogs(ctx context.Context, id string, tail int) (io.ReadCloser, error)
}

// PathResolver maps a server id to its persistent data directory.
type PathResolver interface {
	Resolve(serverID string) (string, error)
	Ensure(serverID string) (string, error)
}

// ConsoleBridge sends one administrative command over a remote console connection.
type ConsoleBridge interface {
	SendCommand(ctx context.Context, host string, port int, password, command string) (string, error)
}

// LogStream is a live log follow started by FollowLogs.
type LogStream interface {
	Close() error
	Done() <-chan struct{}
	Err() error
}

// Runtime is the service facade used by transports (HTTP, CLI, scheduler).
type Runtime interface {
	CreateOrStart(ctx context.Context, opts domain.CreateServerOptions) (domain.InstanceHandle, error)
	Stop(ctx context.Context, serverID string) error
	Restart(ctx context.Context, opts domain.CreateServerOptions) (domain.InstanceHandle, error)
	Remove(ctx context.Context, serverID string) error
	Status(ctx context.Context, serverID string) (*domain.InstanceStatus, error)
	GetStats(ctx context.Context, serverID string) (*domain.ResourceSample, error)
	// FollowLogs returns nil when the server has no instance.
	FollowLogs(ctx context.Context, serverID string, onLine func(string)) (LogStream, error)
}
