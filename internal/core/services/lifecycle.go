package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/sparkpanel/sparkd/internal/core/domain"
	"github.com/sparkpanel/sparkd/internal/core/ports"
	"github.com/sparkpanel/sparkd/internal/metrics"
)

// Config tunes the lifecycle services.
type Config struct {
	NamePrefix  string
	StopTimeout time.Duration
	LogTail     int
}

func (c Config) withDefaults() Config {
	if c.NamePrefix == "" {
		c.NamePrefix = domain.DefaultNamePrefix
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = 30 * time.Second
	}
	if c.LogTail <= 0 {
		c.LogTail = 100
	}
	return c
}

// InstanceName derives the engine instance name for a server id.
func (c Config) InstanceName(serverID string) string {
	return c.NamePrefix + serverID
}

// Manager creates, starts, stops and removes server runtime instances.
//
// Nothing about instance state is kept between calls; every operation looks the instance
// up again right before acting. Concurrent createOrStart and remove calls for the same id
// can race, callers needing strict ordering must serialize per server id themselves.
type Manager struct {
	engine      ports.Engine
	paths       ports.PathResolver
	provisioner *Provisioner
	cfg         Config
	logger      zerolog.Logger
}

func NewManager(engine ports.Engine, paths ports.PathResolver, provisioner *Provisioner, cfg Config, logger zerolog.Logger) *Manager {
	return &Manager{
		engine:      engine,
		paths:       paths,
		provisioner: provisioner,
		cfg:         cfg.withDefaults(),
		logger:      logger,
	}
}

// CreateOrStart makes sure the server's instance exists and is running.
// Calling it again for a running server only re-checks state.
func (m *Manager) CreateOrStart(ctx context.Context, opts domain.CreateServerOptions) (handle domain.InstanceHandle, err error) {
	timer := metrics.NewTimer()
	defer func() { metrics.ObserveOperation("create_or_start", timer, err) }()

	if err := opts.Validate(); err != nil {
		return handle, err
	}

	name := m.cfg.InstanceName(opts.ID)
	dir, err := m.paths.Ensure(opts.ID)
	if err != nil {
		return handle, storageError("ensure data path", opts.ID, err)
	}

	spec := BuildInstanceSpec(name, dir, opts)

	m.provisioner.tryEnsureImage(ctx, opts.ID, opts.Image, opts.Source)

	handle = domain.InstanceHandle{Name: name, ServerID: opts.ID}

	id, err := m.engine.FindInstance(ctx, name)
	if err != nil {
		return handle, engineError("find", opts.ID, err)
	}
	if id == "" {
		id, err = m.engine.CreateInstance(ctx, spec)
		if err != nil {
			return handle, engineError("create", opts.ID, err)
		}
		handle.Created = true
		m.logger.Info().Str("server_id", opts.ID).Str("instance", id).Msg("instance created")
	}
	handle.ID = id

	inst, err := m.engine.InspectInstance(ctx, id)
	if err != nil {
		return handle, engineError("inspect", opts.ID, err)
	}
	if !inst.Running {
		if err := m.engine.StartInstance(ctx, id); err != nil {
			return handle, engineError("start", opts.ID, err)
		}
		handle.Started = true
		m.logger.Info().Str("server_id", opts.ID).Str("instance", id).Msg("instance started")
	}

	return handle, nil
}

// Stop gracefully stops the server's instance. A missing or stopped instance is not an error.
func (m *Manager) Stop(ctx context.Context, serverID string) (err error) {
	timer := metrics.NewTimer()
	defer func() { metrics.ObserveOperation("stop", timer, err) }()

	inst, found, err := m.lookup(ctx, serverID)
	if err != nil || !found {
		return err
	}
	if !inst.Running {
		return nil
	}
	return m.stopInstance(ctx, serverID, inst.ID)
}

// Remove stops the instance if needed and force-removes it. The data directory is kept.
func (m *Manager) Remove(ctx context.Context, serverID string) (err error) {
	timer := metrics.NewTimer()
	defer func() { metrics.ObserveOperation("remove", timer, err) }()

	inst, found, err := m.lookup(ctx, serverID)
	if err != nil || !found {
		return err
	}
	if inst.Running {
		if err := m.stopInstance(ctx, serverID, inst.ID); err != nil {
			return err
		}
	}
	if err := m.engine.RemoveInstance(ctx, inst.ID); err != nil {
		return engineError("remove", serverID, err)
	}
	m.logger.Info().Str("server_id", serverID).Str("instance", inst.ID).Msg("instance removed")
	return nil
}

// Restart stops the server and brings it back with opts.
func (m *Manager) Restart(ctx context.Context, opts domain.CreateServerOptions) (domain.InstanceHandle, error) {
	if err := opts.Validate(); err != nil {
		return domain.InstanceHandle{}, err
	}
	if err := m.Stop(ctx, opts.ID); err != nil {
		return domain.InstanceHandle{}, err
	}
	return m.CreateOrStart(ctx, opts)
}

// Status reports the instance state, or nil when the server has no instance.
func (m *Manager) Status(ctx context.Context, serverID string) (*domain.InstanceStatus, error) {
	inst, found, err := m.lookup(ctx, serverID)
	if err != nil || !found {
		return nil, err
	}
	status := &domain.InstanceStatus{
		ServerID:   serverID,
		InstanceID: inst.ID,
		Name:       inst.Name,
		Image:      inst.Image,
		State:      inst.State,
		Running:    inst.Running,
		StartedAt:  inst.StartedAt,
	}
	if inst.Running && !inst.StartedAt.IsZero() {
		status.Uptime = time.Since(inst.StartedAt).Truncate(time.Second)
	}
	return status, nil
}

func (m *Manager) stopInstance(ctx context.Context, serverID, id string) error {
	if err := m.engine.StopInstance(ctx, id, m.cfg.StopTimeout); err != nil {
		return engineError("stop", serverID, err)
	}
	m.logger.Info().Str("server_id", serverID).Str("instance", id).Msg("instance stopped")
	return nil
}

// lookup finds and inspects the instance of serverID.
func (m *Manager) lookup(ctx context.Context, serverID string) (domain.Instance, bool, error) {
	return lookupInstance(ctx, m.engine, m.cfg, serverID)
}

func lookupInstance(ctx context.Context, engine ports.Engine, cfg Config, serverID string) (domain.Instance, bool, error) {
	if err := domain.ValidateServerID(serverID); err != nil {
		return domain.Instance{}, false, err
	}
	id, err := engine.FindInstance(ctx, cfg.InstanceName(serverID))
	if err != nil {
		return domain.Instance{}, false, engineError("find", serverID, err)
	}
	if id == "" {
		return domain.Instance{}, false, nil
	}
	inst, err := engine.InspectInstance(ctx, id)
	if err != nil {
		return domain.Instance{}, false, engineError("inspect", serverID, err)
	}
	return inst, true, nil
}

// storageError wraps err unless it already is a StorageError or a ConfigurationError.
func storageError(op, serverID string, err error) error {
	var storageErr *domain.StorageError
	var cfgErr *domain.ConfigurationError
	if errors.As(err, &storageErr) || errors.As(err, &cfgErr) {
		return err
	}
	return &domain.StorageError{Op: op, ServerID: serverID, Err: err}
}

func engineError(op, serverID string, err error) error {
	return &domain.RuntimeEngineError{Op: op, ServerID: serverID, Err: err}
}

// BuildInstanceSpec translates server options into an engine create request.
func BuildInstanceSpec(name, dataDir string, opts domain.CreateServerOptions) domain.InstanceSpec {
	return domain.InstanceSpec{
		Name:          name,
		Image:         opts.Image,
		Env:           BuildEnv(opts),
		Ports:         BuildPortBindings(opts),
		Binds:         []string{fmt.Sprintf("%s:%s", dataDir, domain.DataMountPath)},
		Resources:     BuildResources(opts),
		RestartPolicy: domain.RestartUnlessStopped,
		Labels: map[string]string{
			domain.LabelServerID:   opts.ID,
			domain.LabelServerName: opts.Name,
		},
	}
}

// BuildPortBindings always binds the game port, and the rcon port only when rcon is
// fully configured.
func BuildPortBindings(opts domain.CreateServerOptions) []domain.PortBinding {
	bindings := []domain.PortBinding{{ContainerPort: domain.GamePort, HostPort: opts.Port}}
	if rcon, ok := opts.Rcon(); ok {
		bindings = append(bindings, domain.PortBinding{ContainerPort: domain.RconPort, HostPort: rcon.Port})
	}
	return bindings
}

func BuildEnv(opts domain.CreateServerOptions) []string {
	env := []string{
		"EULA=TRUE",
		"VERSION=" + opts.Version,
		"TYPE=" + opts.Type,
		"UID=1000",
		"GID=1000",
		"USE_AIKAR_FLAGS=true",
	}
	if rcon, ok := opts.Rcon(); ok {
		env = append(env,
			"ENABLE_RCON=TRUE",
			"RCON_PASSWORD="+rcon.Password,
		)
	}
	return env
}

// BuildResources converts megabytes to bytes and cores to nano-CPUs (floored).
func BuildResources(opts domain.CreateServerOptions) domain.Resources {
	var r domain.Resources
	if opts.MemoryLimitMB != nil {
		mem := *opts.MemoryLimitMB * 1024 * 1024
		r.MemoryBytes = &mem
	}
	if opts.CPULimit != nil {
		nano := int64(math.Floor(*opts.CPULimit * 1e9))
		r.NanoCPUs = &nano
	}
	return r
}
