package domain

import "time"

// CPUCounters are cumulative CPU counters from one engine reading.
type CPUCounters struct {
	TotalUsage  uint64
	SystemUsage uint64
	OnlineCPUs  uint32
	PerCPUCount int
}

// NetIO is the sum of received and transmitted bytes.
type NetIO struct {
	RxBytes uint64 `json:"rx_bytes"`
	TxBytes uint64 `json:"tx_bytes"`
}

// StatsSnapshot is one non-streaming stats reading holding both the current and the
// immediately prior CPU counters.
type StatsSnapshot struct {
	Read        time.Time
	CPU         CPUCounters
	PreCPU      CPUCounters
	MemoryUsage uint64
	MemoryLimit uint64
	Networks    map[string]NetIO
}

// ResourceSample is the derived utilization of one instance.
type ResourceSample struct {
	CPUPercent  float64       `json:"cpuPercent"`
	MemoryUsage uint64        `json:"memoryUsage"`
	MemoryLimit uint64        `json:"memoryLimit"`
	NetIO       NetIO         `json:"netIO"`
	SampledAt   time.Time     `json:"sampledAt"`
	Uptime      time.Duration `json:"uptime,omitempty"`
}

// CPUPercent returns cpuDelta/systemDelta scaled by the online CPU count.
// A zero system delta means nothing was measured and yields 0.
func CPUPercent(cpuDelta, systemDelta float64, onlineCPUs uint32) float64 {
	if systemDelta <= 0 || cpuDelta <= 0 {
		return 0
	}
	return (cpuDelta / systemDelta) * float64(onlineCPUs) * 100
}

// Sample computes a ResourceSample from the snapshot.
func (s StatsSnapshot) Sample() ResourceSample {
	cpuDelta := float64(s.CPU.TotalUsage) - float64(s.PreCPU.TotalUsage)
	systemDelta := float64(s.CPU.SystemUsage) - float64(s.PreCPU.SystemUsage)

	online := s.CPU.OnlineCPUs
	if online == 0 {
		online = uint32(s.CPU.PerCPUCount)
	}
	if online == 0 {
		online = 1
	}

	var net NetIO
	for _, n := range s.Networks {
		net.RxBytes += n.RxBytes
		net.TxBytes += n.TxBytes
	}

	return ResourceSample{
		CPUPercent:  CPUPercent(cpuDelta, systemDelta, online),
		MemoryUsage: s.MemoryUsage,
		MemoryLimit: s.MemoryLimit,
		NetIO:       net,
		SampledAt:   s.Read,
	}
}
