package services

import (
	"context"
	"time"

	"github.com/sparkpanel/sparkd/internal/core/domain"
	"github.com/sparkpanel/sparkd/internal/core/ports"
)

// Inspector samples resource usage of running instances.
type Inspector struct {
	engine ports.Engine
	cfg    Config
	now    func() time.Time
}

func NewInspector(engine ports.Engine, cfg Config) *Inspector {
	return &Inspector{engine: engine, cfg: cfg.withDefaults(), now: time.Now}
}

// GetStats returns a fresh sample, or nil when the server has no running instance.
func (i *Inspector) GetStats(ctx context.Context, serverID string) (*domain.ResourceSample, error) {
	inst, found, err := lookupInstance(ctx, i.engine, i.cfg, serverID)
	if err != nil || !found || !inst.Running {
		return nil, err
	}

	snap, err := i.engine.InstanceStats(ctx, inst.ID)
	if err != nil {
		return nil, engineError("stats", serverID, err)
	}

	sample := snap.Sample()
	if sample.SampledAt.IsZero() {
		sample.SampledAt = i.now()
	}
	if !inst.StartedAt.IsZero() {
		sample.Uptime = sample.SampledAt.Sub(inst.StartedAt).Truncate(time.Second)
	}
	return &sample, nil
}
