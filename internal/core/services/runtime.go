package services

import (
	"context"

	"github.com/sparkpanel/sparkd/internal/core/domain"
	"github.com/sparkpanel/sparkd/internal/core/ports"
)

// Runtime bundles the lifecycle, inspection and log services behind ports.Runtime.
type Runtime struct {
	*Manager
	inspector *Inspector
	relay     *LogRelay
}

func NewRuntime(manager *Manager, inspector *Inspector, relay *LogRelay) *Runtime {
	return &Runtime{Manager: manager, inspector: inspector, relay: relay}
}

func (r *Runtime) GetStats(ctx context.Context, serverID string) (*domain.ResourceSample, error) {
	return r.inspector.GetStats(ctx, serverID)
}

func (r *Runtime) FollowLogs(ctx context.Context, serverID string, onLine func(string)) (ports.LogStream, error) {
	h, err := r.relay.FollowLogs(ctx, serverID, onLine)
	if err != nil || h == nil {
		return nil, err
	}
	return h, nil
}

var _ ports.Runtime = (*Runtime)(nil)
