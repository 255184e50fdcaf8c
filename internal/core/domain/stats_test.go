package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCPUPercent(t *testing.T) {
	assert.InDelta(t, 40.0, CPUPercent(200, 1000, 2), 1e-9)
	assert.Equal(t, 0.0, CPUPercent(200, 0, 2))
	assert.Equal(t, 0.0, CPUPercent(-5, 1000, 2))
}

func TestSnapshotSample(t *testing.T) {
	read := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	snap := StatsSnapshot{
		Read:        read,
		CPU:         CPUCounters{TotalUsage: 1200, SystemUsage: 11000, OnlineCPUs: 2},
		PreCPU:      CPUCounters{TotalUsage: 1000, SystemUsage: 10000},
		MemoryUsage: 512,
		MemoryLimit: 1024,
		Networks: map[string]NetIO{
			"eth0": {RxBytes: 10, TxBytes: 20},
			"eth1": {RxBytes: 1, TxBytes: 2},
		},
	}

	s := snap.Sample()
	assert.InDelta(t, 40.0, s.CPUPercent, 1e-9)
	assert.Equal(t, uint64(512), s.MemoryUsage)
	assert.Equal(t, uint64(1024), s.MemoryLimit)
	assert.Equal(t, NetIO{RxBytes: 11, TxBytes: 22}, s.NetIO)
	assert.Equal(t, read, s.SampledAt)
}

func TestSnapshotSampleOnlineCPUFallback(t *testing.T) {
	snap := StatsSnapshot{
		CPU:    CPUCounters{TotalUsage: 300, SystemUsage: 2000, PerCPUCount: 4},
		PreCPU: CPUCounters{TotalUsage: 100, SystemUsage: 1000},
	}
	assert.InDelta(t, 80.0, snap.Sample().CPUPercent, 1e-9)

	snap.CPU.PerCPUCount = 0
	assert.InDelta(t, 20.0, snap.Sample().CPUPercent, 1e-9)
}

func TestSnapshotSampleEmpty(t *testing.T) {
	s := StatsSnapshot{}.Sample()
	assert.Equal(t, 0.0, s.CPUPercent)
	assert.Equal(t, NetIO{}, s.NetIO)
}
