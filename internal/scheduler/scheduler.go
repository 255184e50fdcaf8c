// Package scheduler runs scheduled RESTART and BACKUP tasks and the daily backup
// retention sweep.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sparkpanel/sparkd/internal/core/domain"
	"github.com/sparkpanel/sparkd/internal/core/ports"
	"github.com/sparkpanel/sparkd/internal/metrics"
)

// RetentionCron is when the backup retention sweep runs.
const RetentionCron = "0 4 * * *"

// Restarter restarts a server from its stored definition.
type Restarter interface {
	Restart(ctx context.Context, opts domain.CreateServerOptions) (domain.InstanceHandle, error)
}

// BackupCreator archives a server's data directory.
type BackupCreator interface {
	Create(ctx context.Context, serverID string) (domain.Backup, error)
}

// RetentionApplier removes backups outside the retention policy.
type RetentionApplier interface {
	Apply(ctx context.Context, now time.Time) (int, error)
}

// Config configures the scheduler.
type Config struct {
	Tick     time.Duration
	Timezone string
	// TaskTimeout bounds a single task run.
	TaskTimeout time.Duration
}

type entry struct {
	cron string
	next time.Time
}

// Scheduler polls the task store and fires due tasks. Tasks run one at a time.
type Scheduler struct {
	tasks     ports.TaskStore
	servers   ports.ServerStore
	restarter Restarter
	backups   BackupCreator
	retention RetentionApplier
	cfg       Config
	logger    zerolog.Logger

	// tickMu serializes ticks; mu guards entries only.
	tickMu        sync.Mutex
	mu            sync.Mutex
	entries       map[string]entry
	retentionNext time.Time

	stopCh  chan struct{}
	stopped chan struct{}
}

func New(tasks ports.TaskStore, servers ports.ServerStore, restarter Restarter, backups BackupCreator, retention RetentionApplier, cfg Config, logger zerolog.Logger) *Scheduler {
	if cfg.Tick <= 0 {
		cfg.Tick = 15 * time.Second
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 10 * time.Minute
	}
	return &Scheduler{
		tasks:     tasks,
		servers:   servers,
		restarter: restarter,
		backups:   backups,
		retention: retention,
		cfg:       cfg,
		logger:    logger,
		entries:   make(map[string]entry),
		stopCh:    make(chan struct{}),
		stopped:   make(chan struct{}),
	}
}

// Start begins the scheduling loop
func (s *Scheduler) Start() {
	go s.run()
}

// Stop ends the loop and waits for a running task to finish.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	<-s.stopped
}

func (s *Scheduler) run() {
	defer close(s.stopped)

	ticker := time.NewTicker(s.cfg.Tick)
	defer ticker.Stop()

	s.Tick(context.Background(), time.Now())
	for {
		select {
		case now := <-ticker.C:
			s.Tick(context.Background(), now)
		case <-s.stopCh:
			return
		}
	}
}

// Tick runs every task due at now. Tasks seen for the first time, or whose cron
// changed, are scheduled from now without catching up on missed runs.
// Ticks are serialized; NextRun is not blocked while tasks run.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	for _, task := range s.collectDue(now) {
		s.runTask(ctx, task, now)
	}
	s.sweepRetention(ctx, now)
}

// collectDue refreshes the schedule and returns the tasks due at now. Due tasks are
// already moved to their following run.
func (s *Scheduler) collectDue(now time.Time) []domain.ScheduledTask {
	tasks, err := s.tasks.ListTasks("")
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list scheduled tasks")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var due []domain.ScheduledTask
	seen := make(map[string]bool, len(tasks))
	for _, task := range tasks {
		if !task.Enabled {
			continue
		}
		seen[task.ID] = true

		e, ok := s.entries[task.ID]
		known := ok && e.cron == task.Cron
		if known && now.Before(e.next) {
			continue
		}

		next, err := NextAfter(task.Cron, s.cfg.Timezone, now)
		if err != nil {
			s.logger.Warn().Err(err).Str("task", task.ID).Msg("invalid cron, task skipped")
			delete(s.entries, task.ID)
			continue
		}
		s.entries[task.ID] = entry{cron: task.Cron, next: next}
		if known {
			due = append(due, task)
		}
	}

	for id := range s.entries {
		if !seen[id] {
			delete(s.entries, id)
		}
	}
	return due
}

// NextRun returns when a task is next due, if it is scheduled.
func (s *Scheduler) NextRun(taskID string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[taskID]
	return e.next, ok
}

func (s *Scheduler) runTask(ctx context.Context, task domain.ScheduledTask, now time.Time) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.TaskTimeout)
	defer cancel()

	logger := s.logger.With().Str("task", task.ID).Str("server_id", task.ServerID).Str("type", string(task.Type)).Logger()
	logger.Info().Msg("running scheduled task")

	err := s.execute(ctx, task)
	metrics.ScheduledTaskRunsTotal.WithLabelValues(string(task.Type), metrics.Result(err)).Inc()

	task.LastRunAt = &now
	task.LastError = ""
	if err != nil {
		task.LastError = err.Error()
		logger.Error().Err(err).Msg("scheduled task failed")
	}
	if err := s.tasks.SaveTask(task); err != nil {
		logger.Warn().Err(err).Msg("failed to record task run")
	}
}

func (s *Scheduler) execute(ctx context.Context, task domain.ScheduledTask) error {
	switch task.Type {
	case domain.TaskRestart:
		opts, err := s.servers.GetServer(task.ServerID)
		if err != nil {
			return fmt.Errorf("failed to load server definition: %w", err)
		}
		_, err = s.restarter.Restart(ctx, opts)
		return err
	case domain.TaskBackup:
		_, err := s.backups.Create(ctx, task.ServerID)
		return err
	default:
		return fmt.Errorf("unknown task type %q", task.Type)
	}
}

func (s *Scheduler) sweepRetention(ctx context.Context, now time.Time) {
	if s.retention == nil {
		return
	}
	if s.retentionNext.IsZero() {
		s.retentionNext, _ = NextAfter(RetentionCron, s.cfg.Timezone, now)
		return
	}
	if now.Before(s.retentionNext) {
		return
	}
	if _, err := s.retention.Apply(ctx, now); err != nil {
		s.logger.Error().Err(err).Msg("backup retention failed")
	}
	s.retentionNext, _ = NextAfter(RetentionCron, s.cfg.Timezone, now)
}
