package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkpanel/sparkd/internal/core/domain"
)

func TestGetStatsAbsent(t *testing.T) {
	engine := newFakeEngine()
	inspector := NewInspector(engine, Config{})

	sample, err := inspector.GetStats(context.Background(), "srv-1")
	require.NoError(t, err)
	assert.Nil(t, sample)
	assert.NotContains(t, engine.Ops(), "stats")
}

func TestGetStatsRunning(t *testing.T) {
	engine := newFakeEngine()
	engine.addInstance("c1", "spark_mc_srv-1", true)
	started := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	engine.instances["c1"].StartedAt = started
	engine.stats = domain.StatsSnapshot{
		Read:        started.Add(90 * time.Second),
		CPU:         domain.CPUCounters{TotalUsage: 1200, SystemUsage: 11000, OnlineCPUs: 2},
		PreCPU:      domain.CPUCounters{TotalUsage: 1000, SystemUsage: 10000},
		MemoryUsage: 256,
		MemoryLimit: 1024,
		Networks: map[string]domain.NetIO{
			"eth0": {RxBytes: 5, TxBytes: 7},
		},
	}
	inspector := NewInspector(engine, Config{})

	sample, err := inspector.GetStats(context.Background(), "srv-1")
	require.NoError(t, err)
	require.NotNil(t, sample)
	assert.InDelta(t, 40.0, sample.CPUPercent, 1e-9)
	assert.Equal(t, uint64(256), sample.MemoryUsage)
	assert.Equal(t, domain.NetIO{RxBytes: 5, TxBytes: 7}, sample.NetIO)
	assert.Equal(t, 90*time.Second, sample.Uptime)
}

func TestGetStatsZeroSystemDelta(t *testing.T) {
	engine := newFakeEngine()
	engine.addInstance("c1", "spark_mc_srv-1", true)
	engine.stats = domain.StatsSnapshot{
		CPU:    domain.CPUCounters{TotalUsage: 1200, SystemUsage: 10000, OnlineCPUs: 2},
		PreCPU: domain.CPUCounters{TotalUsage: 1000, SystemUsage: 10000},
	}
	inspector := NewInspector(engine, Config{})
	fixed := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	inspector.now = func() time.Time { return fixed }

	sample, err := inspector.GetStats(context.Background(), "srv-1")
	require.NoError(t, err)
	require.NotNil(t, sample)
	assert.Equal(t, 0.0, sample.CPUPercent)
	assert.Equal(t, fixed, sample.SampledAt)
}

func TestGetStatsExactNameOnly(t *testing.T) {
	engine := newFakeEngine()
	engine.addInstance("c10", "spark_mc_srv-10", true)
	inspector := NewInspector(engine, Config{})

	sample, err := inspector.GetStats(context.Background(), "srv-1")
	require.NoError(t, err)
	assert.Nil(t, sample)
}
