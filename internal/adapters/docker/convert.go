package docker

import (
	"strconv"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"

	"github.com/sparkpanel/sparkd/internal/core/domain"
)

func createConfig(spec domain.InstanceSpec) (*container.Config, *container.HostConfig) {
	exposed := nat.PortSet{}
	bindings := nat.PortMap{}
	for _, p := range spec.Ports {
		port := nat.Port(p.ContainerPort)
		exposed[port] = struct{}{}
		bindings[port] = []nat.PortBinding{{HostPort: strconv.Itoa(p.HostPort)}}
	}

	cfg := &container.Config{
		Image:        spec.Image,
		Env:          spec.Env,
		ExposedPorts: exposed,
		Labels:       spec.Labels,
		OpenStdin:    true,
	}

	hostCfg := &container.HostConfig{
		Binds:        spec.Binds,
		PortBindings: bindings,
	}
	if spec.RestartPolicy == domain.RestartUnlessStopped {
		hostCfg.RestartPolicy = container.RestartPolicy{Name: container.RestartPolicyUnlessStopped}
	}
	if spec.Resources.MemoryBytes != nil {
		hostCfg.Resources.Memory = *spec.Resources.MemoryBytes
	}
	if spec.Resources.NanoCPUs != nil {
		hostCfg.Resources.NanoCPUs = *spec.Resources.NanoCPUs
	}
	return cfg, hostCfg
}

func toInstance(info types.ContainerJSON) domain.Instance {
	var inst domain.Instance
	if info.ContainerJSONBase != nil {
		inst.ID = info.ID
		inst.Name = strings.TrimPrefix(info.Name, "/")
		if info.State != nil {
			inst.State = info.State.Status
			inst.Running = info.State.Running
			if t, err := time.Parse(time.RFC3339Nano, info.State.StartedAt); err == nil && t.Year() > 1 {
				inst.StartedAt = t
			}
		}
	}
	if info.Config != nil {
		inst.Image = info.Config.Image
		inst.TTY = info.Config.Tty
		inst.Labels = info.Config.Labels
	}
	return inst
}

func fromSummary(c types.Container) domain.Instance {
	name := ""
	if len(c.Names) > 0 {
		name = strings.TrimPrefix(c.Names[0], "/")
	}
	return domain.Instance{
		ID:      c.ID,
		Name:    name,
		Image:   c.Image,
		State:   c.State,
		Running: c.State == "running",
		Labels:  c.Labels,
	}
}

func toSnapshot(s types.StatsJSON) domain.StatsSnapshot {
	snap := domain.StatsSnapshot{
		Read: s.Read,
		CPU: domain.CPUCounters{
			TotalUsage:  s.CPUStats.CPUUsage.TotalUsage,
			SystemUsage: s.CPUStats.SystemUsage,
			OnlineCPUs:  s.CPUStats.OnlineCPUs,
			PerCPUCount: len(s.CPUStats.CPUUsage.PercpuUsage),
		},
		PreCPU: domain.CPUCounters{
			TotalUsage:  s.PreCPUStats.CPUUsage.TotalUsage,
			SystemUsage: s.PreCPUStats.SystemUsage,
			OnlineCPUs:  s.PreCPUStats.OnlineCPUs,
			PerCPUCount: len(s.PreCPUStats.CPUUsage.PercpuUsage),
		},
		MemoryUsage: s.MemoryStats.Usage,
		MemoryLimit: s.MemoryStats.Limit,
		Networks:    make(map[string]domain.NetIO, len(s.Networks)),
	}
	for name, n := range s.Networks {
		snap.Networks[name] = domain.NetIO{RxBytes: n.RxBytes, TxBytes: n.TxBytes}
	}
	return snap
}
