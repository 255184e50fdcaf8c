package docker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/jsonmessage"

	"github.com/sparkpanel/sparkd/internal/core/domain"
	"github.com/sparkpanel/sparkd/internal/core/ports"
)

// Adapter implements ports.Engine using Docker SDK
type Adapter struct {
	cli *client.Client
}

// NewAdapter creates a Docker adapter. An empty host uses the DOCKER_HOST environment.
func NewAdapter(host string) (*Adapter, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &Adapter{cli: cli}, nil
}

// NewAdapterWithClient wraps an existing client.
func NewAdapterWithClient(cli *client.Client) *Adapter {
	return &Adapter{cli: cli}
}

// Client exposes the underlying client so the image builder can share it.
func (a *Adapter) Client() *client.Client {
	return a.cli
}

func (a *Adapter) Close() error {
	return a.cli.Close()
}

func (a *Adapter) Ping(ctx context.Context) error {
	if _, err := a.cli.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping docker: %w", err)
	}
	return nil
}

// PullImage pulls ref and waits for the progress stream to finish.
// An error reported inside the stream fails the pull.
func (a *Adapter) PullImage(ctx context.Context, ref string) error {
	reader, err := a.cli.ImagePull(ctx, ref, types.ImagePullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image: %w", err)
	}
	defer reader.Close()

	if err := jsonmessage.DisplayJSONMessagesStream(reader, io.Discard, 0, false, nil); err != nil {
		return fmt.Errorf("failed to pull image %s: %w", ref, err)
	}
	return nil
}

// FindInstance looks a container up by exact name, including stopped ones.
func (a *Adapter) FindInstance(ctx context.Context, name string) (string, error) {
	containers, err := a.cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("name", "^/"+regexp.QuoteMeta(name)+"$")),
	})
	if err != nil {
		return "", fmt.Errorf("failed to list containers: %w", err)
	}

	// The engine's name filter is a regexp; compare again to be exact.
	for _, c := range containers {
		for _, n := range c.Names {
			if strings.TrimPrefix(n, "/") == name {
				return c.ID, nil
			}
		}
	}
	return "", nil
}

func (a *Adapter) InspectInstance(ctx context.Context, id string) (domain.Instance, error) {
	info, err := a.cli.ContainerInspect(ctx, id)
	if err != nil {
		return domain.Instance{}, fmt.Errorf("failed to inspect container: %w", err)
	}
	return toInstance(info), nil
}

// ListInstances returns every container carrying the server id label.
func (a *Adapter) ListInstances(ctx context.Context) ([]domain.Instance, error) {
	containers, err := a.cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", domain.LabelServerID)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	result := make([]domain.Instance, 0, len(containers))
	for _, c := range containers {
		result = append(result, fromSummary(c))
	}
	return result, nil
}

func (a *Adapter) CreateInstance(ctx context.Context, spec domain.InstanceSpec) (string, error) {
	cfg, hostCfg := createConfig(spec)
	resp, err := a.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, spec.Name)
	if err != nil {
		return "", fmt.Errorf("failed to create container: %w", err)
	}
	return resp.ID, nil
}

func (a *Adapter) StartInstance(ctx context.Context, id string) error {
	if err := a.cli.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return fmt.Errorf("failed to start container: %w", err)
	}
	return nil
}

// StopInstance asks the engine to stop the container, killing it after timeout.
// The call returns once the container has stopped.
func (a *Adapter) StopInstance(ctx context.Context, id string, timeout time.Duration) error {
	secs := int(timeout.Seconds())
	if err := a.cli.ContainerStop(ctx, id, container.StopOptions{Timeout: &secs}); err != nil {
		return fmt.Errorf("failed to stop container: %w", err)
	}
	return nil
}

// RemoveInstance force-removes the container and its writable layer.
func (a *Adapter) RemoveInstance(ctx context.Context, id string) error {
	if err := a.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil {
		return fmt.Errorf("failed to remove container: %w", err)
	}
	return nil
}

// InstanceStats takes one non-streaming stats reading. The engine waits for a second
// sample so the reading carries both current and prior CPU counters.
func (a *Adapter) InstanceStats(ctx context.Context, id string) (domain.StatsSnapshot, error) {
	resp, err := a.cli.ContainerStats(ctx, id, false)
	if err != nil {
		return domain.StatsSnapshot{}, fmt.Errorf("failed to get container stats: %w", err)
	}
	defer resp.Body.Close()

	var stats types.StatsJSON
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return domain.StatsSnapshot{}, fmt.Errorf("failed to decode container stats: %w", err)
	}
	return toSnapshot(stats), nil
}

// InstanceLogs follows stdout and stderr, starting with the last tail lines.
func (a *Adapter) InstanceLogs(ctx context.Context, id string, tail int) (io.ReadCloser, error) {
	options := container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
		Tail:       strconv.Itoa(tail),
	}
	rc, err := a.cli.ContainerLogs(ctx, id, options)
	if err != nil {
		return nil, fmt.Errorf("failed to attach to container logs: %w", err)
	}
	return rc, nil
}

var _ ports.Engine = (*Adapter)(nil)
