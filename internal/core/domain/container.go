package domain

import "time"

// Container-side constants of the game server image.
const (
	GamePort      = "25565/tcp"
	RconPort      = "25575/tcp"
	DataMountPath = "/data"

	DefaultNamePrefix = "spark_mc_"

	LabelServerID   = "sparkpanel.serverId"
	LabelServerName = "sparkpanel.name"
)

// RestartUnlessStopped restarts the instance unless it was explicitly stopped.
const RestartUnlessStopped = "unless-stopped"

// PortBinding maps a container port ("25565/tcp") to a host port.
type PortBinding struct {
	ContainerPort string `json:"containerPort"`
	HostPort      int    `json:"hostPort"`
}

// Resources holds engine-level limits. Nil fields are not passed to the engine.
type Resources struct {
	MemoryBytes *int64 `json:"memoryBytes,omitempty"`
	NanoCPUs    *int64 `json:"nanoCpus,omitempty"`
}

// InstanceSpec is everything the engine needs to create an instance.
type InstanceSpec struct {
	Name          string
	Image         string
	Env           []string
	Ports         []PortBinding
	Binds         []string
	Resources     Resources
	RestartPolicy string
	Labels        map[string]string
}

// Instance is a runtime instance as observed from the engine.
type Instance struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Image     string            `json:"image"`
	State     string            `json:"state"` // created, running, exited, etc.
	Running   bool              `json:"running"`
	TTY       bool              `json:"tty"`
	StartedAt time.Time         `json:"startedAt,omitempty"`
	Labels    map[string]string `json:"labels,omitempty"`
}

// ServerID returns the logical server id the instance was tagged with.
func (i Instance) ServerID() string {
	return i.Labels[LabelServerID]
}

// InstanceHandle is returned by createOrStart.
type InstanceHandle struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ServerID string `json:"serverId"`
	Created  bool   `json:"created"`
	Started  bool   `json:"started"`
}
