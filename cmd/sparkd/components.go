package main

import (
	"fmt"

	"github.com/sparkpanel/sparkd/internal/adapters/builder"
	"github.com/sparkpanel/sparkd/internal/adapters/docker"
	"github.com/sparkpanel/sparkd/internal/adapters/storage"
	"github.com/sparkpanel/sparkd/internal/config"
	"github.com/sparkpanel/sparkd/internal/core/services"
	"github.com/sparkpanel/sparkd/internal/log"
)

// core holds the engine-facing services shared by the daemon and the one-shot commands.
type core struct {
	engine    *docker.Adapter
	paths     *storage.LocalPaths
	runtime   *services.Runtime
	inspector *services.Inspector
}

func newCore(cfg config.Config) (*core, error) {
	engine, err := docker.NewAdapter(cfg.Docker.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize docker adapter: %w", err)
	}

	paths, err := storage.NewLocalPaths(cfg.Data.Root, cfg.Backup.Root)
	if err != nil {
		engine.Close()
		return nil, fmt.Errorf("failed to initialize data paths: %w", err)
	}

	svcCfg := services.Config{
		NamePrefix:  cfg.Docker.NamePrefix,
		StopTimeout: cfg.Docker.StopTimeout,
		LogTail:     cfg.Docker.LogTail,
	}

	imageBuilder := builder.NewBuilderAdapter(engine.Client(), log.WithComponent("builder"))
	provisioner := services.NewProvisioner(engine, imageBuilder, log.WithComponent("provisioner"))
	manager := services.NewManager(engine, paths, provisioner, svcCfg, log.WithComponent("lifecycle"))
	inspector := services.NewInspector(engine, svcCfg)
	relay := services.NewLogRelay(engine, svcCfg, log.WithComponent("logs"))

	return &core{
		engine:    engine,
		paths:     paths,
		runtime:   services.NewRuntime(manager, inspector, relay),
		inspector: inspector,
	}, nil
}

func (c *core) Close() error {
	return c.engine.Close()
}
