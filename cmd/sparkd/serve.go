package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sparkpanel/sparkd/internal/adapters/bolt"
	httpapi "github.com/sparkpanel/sparkd/internal/adapters/http"
	"github.com/sparkpanel/sparkd/internal/adapters/rcon"
	"github.com/sparkpanel/sparkd/internal/backup"
	"github.com/sparkpanel/sparkd/internal/core/services"
	"github.com/sparkpanel/sparkd/internal/log"
	"github.com/sparkpanel/sparkd/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the daemon and its HTTP API",
	Long: `Run the sparkd daemon.

The daemon serves the HTTP API, runs scheduled restarts and backups,
applies backup retention and publishes per-server usage metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
			cfg.HTTP.Listen = listen
		}
		logger := log.WithComponent("daemon")

		c, err := newCore(cfg)
		if err != nil {
			return err
		}
		defer c.Close()

		pingCtx, cancel := context.WithTimeout(cmd.Context(), cfg.Console.Timeout)
		if err := c.engine.Ping(pingCtx); err != nil {
			logger.Warn().Err(err).Msg("docker engine not reachable yet")
		}
		cancel()

		store, err := bolt.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		archiver := backup.NewArchiver(c.paths, store, log.WithComponent("backup"))
		retention := backup.NewRetention(store, backup.Policy{
			Days:     cfg.Backup.RetentionDays,
			MaxCount: cfg.Backup.MaxCount,
		}, log.WithComponent("retention"))

		sched := scheduler.New(store, store, c.runtime, archiver, retention, scheduler.Config{
			Tick:        cfg.Scheduler.Tick,
			Timezone:    cfg.Scheduler.Timezone,
			TaskTimeout: cfg.Scheduler.TaskTimeout,
		}, log.WithComponent("scheduler"))
		sched.Start()

		poller := services.NewStatsPoller(c.inspector, store, cfg.Stats.Interval, log.WithComponent("stats"))
		poller.Start()

		handler := httpapi.NewServerHandler(httpapi.Deps{
			Runtime:  c.runtime,
			Servers:  store,
			Tasks:    store,
			Backups:  store,
			Archiver: archiver,
			Console:  rcon.NewBridge(cfg.Console.Timeout, log.WithComponent("console")),
			Engine:   c.engine,
			Usage:    c.paths,
			Schedule: sched,
			Logger:   log.WithComponent("http"),
		})
		app := httpapi.NewApp(handler, httpapi.AppConfig{
			ReadTimeout:  cfg.HTTP.ReadTimeout,
			WriteTimeout: cfg.HTTP.WriteTimeout,
		})

		errCh := make(chan error, 1)
		go func() {
			if err := app.Listen(cfg.HTTP.Listen); err != nil {
				errCh <- fmt.Errorf("HTTP server error: %w", err)
			}
		}()
		logger.Info().Str("listen", cfg.HTTP.Listen).Str("version", Version).Msg("sparkd started")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		var runErr error
		select {
		case sig := <-sigCh:
			logger.Info().Str("signal", sig.String()).Msg("shutting down")
		case runErr = <-errCh:
			logger.Error().Err(runErr).Msg("shutting down")
		}

		if err := app.ShutdownWithTimeout(cfg.HTTP.ShutdownTimeout); err != nil {
			logger.Warn().Err(err).Msg("HTTP shutdown incomplete")
		}
		poller.Stop()
		sched.Stop()

		logger.Info().Msg("shutdown complete")
		return runErr
	},
}

func init() {
	serveCmd.Flags().String("listen", "", "HTTP listen address (overrides config)")
}
