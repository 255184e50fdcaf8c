package services

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/sparkpanel/sparkd/internal/core/ports"
	"github.com/sparkpanel/sparkd/internal/logstream"
	"github.com/sparkpanel/sparkd/internal/metrics"
)

// LogRelay follows instance logs and delivers them line by line.
// Every call opens its own engine stream; streams are never shared between callers.
type LogRelay struct {
	engine ports.Engine
	cfg    Config
	logger zerolog.Logger
}

func NewLogRelay(engine ports.Engine, cfg Config, logger zerolog.Logger) *LogRelay {
	return &LogRelay{engine: engine, cfg: cfg.withDefaults(), logger: logger}
}

// FollowLogs attaches to the server's log stream, replaying the last lines first.
// It returns nil when the server has no instance. onLine is called from a single
// goroutine until the stream ends or the handle is closed.
func (r *LogRelay) FollowLogs(ctx context.Context, serverID string, onLine func(string)) (*StreamHandle, error) {
	inst, found, err := lookupInstance(ctx, r.engine, r.cfg, serverID)
	if err != nil || !found {
		return nil, err
	}

	// The stream lives until Close, not until the caller's request ends.
	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	rc, err := r.engine.InstanceLogs(streamCtx, inst.ID, r.cfg.LogTail)
	if err != nil {
		cancel()
		return nil, engineError("logs", serverID, err)
	}

	h := &StreamHandle{rc: rc, cancel: cancel, done: make(chan struct{})}
	metrics.LogStreamsActive.Inc()

	go func() {
		defer metrics.LogStreamsActive.Dec()
		defer close(h.done)

		err := logstream.Pump(rc, !inst.TTY, onLine)
		if err != nil && !h.closed.Load() {
			h.err = engineError("logs", serverID, err)
			r.logger.Warn().Err(err).Str("server_id", serverID).Msg("log stream ended with error")
		}
		_ = rc.Close()
		cancel()
	}()

	return h, nil
}

// StreamHandle controls a running log follow.
type StreamHandle struct {
	rc     io.ReadCloser
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
	closed atomic.Bool
	err    error
}

// Close stops the stream and waits for the last onLine call to return.
func (h *StreamHandle) Close() error {
	var err error
	h.once.Do(func() {
		h.closed.Store(true)
		h.cancel()
		err = h.rc.Close()
	})
	<-h.done
	return err
}

// Done is closed once the stream has ended.
func (h *StreamHandle) Done() <-chan struct{} {
	return h.done
}

// Err returns the error that ended the stream, if any. Valid after Done is closed.
func (h *StreamHandle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

var _ ports.LogStream = (*StreamHandle)(nil)
