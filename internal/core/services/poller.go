package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sparkpanel/sparkd/internal/core/domain"
	"github.com/sparkpanel/sparkd/internal/metrics"
)

// ServerLister lists the known server definitions.
type ServerLister interface {
	ListServers() ([]domain.CreateServerOptions, error)
}

// StatsSource is satisfied by Inspector.
type StatsSource interface {
	GetStats(ctx context.Context, serverID string) (*domain.ResourceSample, error)
}

// StatsPoller periodically samples every known server and publishes usage gauges.
type StatsPoller struct {
	stats    StatsSource
	servers  ServerLister
	interval time.Duration
	logger   zerolog.Logger

	mu      sync.Mutex
	latest  map[string]domain.ResourceSample
	stopCh  chan struct{}
	stopped chan struct{}
}

func NewStatsPoller(stats StatsSource, servers ServerLister, interval time.Duration, logger zerolog.Logger) *StatsPoller {
	return &StatsPoller{
		stats:    stats,
		servers:  servers,
		interval: interval,
		logger:   logger,
		latest:   make(map[string]domain.ResourceSample),
		stopCh:   make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Start begins polling in the background
func (p *StatsPoller) Start() {
	go p.run()
}

// Stop ends polling and waits for the loop to exit
func (p *StatsPoller) Stop() {
	close(p.stopCh)
	<-p.stopped
}

func (p *StatsPoller) run() {
	defer close(p.stopped)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), p.interval)
			p.Poll(ctx)
			cancel()
		case <-p.stopCh:
			return
		}
	}
}

// Poll samples every server once. Servers without a running instance have their gauges
// cleared; errors are logged and the server is skipped.
func (p *StatsPoller) Poll(ctx context.Context) {
	servers, err := p.servers.ListServers()
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to list servers for stats")
		return
	}

	known := make(map[string]bool, len(servers))
	for _, s := range servers {
		known[s.ID] = true
	}
	p.forgetRemoved(known)

	for _, s := range servers {
		sample, err := p.stats.GetStats(ctx, s.ID)
		if err != nil {
			p.logger.Warn().Err(err).Str("server_id", s.ID).Msg("stats sample failed")
			continue
		}

		p.mu.Lock()
		if sample == nil {
			delete(p.latest, s.ID)
			metrics.ClearServer(s.ID)
		} else {
			p.latest[s.ID] = *sample
			metrics.SetServerSample(s.ID, sample.CPUPercent, sample.MemoryUsage, sample.MemoryLimit,
				sample.NetIO.RxBytes, sample.NetIO.TxBytes)
		}
		p.mu.Unlock()
	}
}

// forgetRemoved drops samples and gauges of servers no longer defined.
func (p *StatsPoller) forgetRemoved(known map[string]bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id := range p.latest {
		if !known[id] {
			delete(p.latest, id)
			metrics.ClearServer(id)
		}
	}
}

// lastSample returns the last sample taken for a server.
func (p *StatsPoller) lastSample(serverID string) (domain.ResourceSample, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.latest[serverID]
	return s, ok
}
