package domain

import (
	"regexp"
	"time"
)

var serverIDPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]{0,127}$`)

// ImageSource describes a git repository the image is built from instead of pulled.
type ImageSource struct {
	Repository string `json:"repository" yaml:"repository"`
	Ref        string `json:"ref,omitempty" yaml:"ref,omitempty"`
	Dockerfile string `json:"dockerfile,omitempty" yaml:"dockerfile,omitempty"`
}

// CreateServerOptions is the declarative description of one game server runtime.
type CreateServerOptions struct {
	ID            string       `json:"id" yaml:"id"`
	Name          string       `json:"name" yaml:"name"`
	Image         string       `json:"image" yaml:"image"`
	Source        *ImageSource `json:"source,omitempty" yaml:"source,omitempty"`
	Version       string       `json:"version" yaml:"version"`
	Type          string       `json:"type" yaml:"type"`
	CPULimit      *float64     `json:"cpuLimit,omitempty" yaml:"cpuLimit,omitempty"`
	MemoryLimitMB *int64       `json:"memoryLimitMb,omitempty" yaml:"memoryLimitMb,omitempty"`
	Port          int          `json:"port" yaml:"port"`
	RconEnabled   bool         `json:"rconEnabled,omitempty" yaml:"rconEnabled,omitempty"`
	RconPort      *int         `json:"rconPort,omitempty" yaml:"rconPort,omitempty"`
	RconPassword  *string      `json:"rconPassword,omitempty" yaml:"rconPassword,omitempty"`
}

// RconConfig is the resolved remote console channel of a server.
type RconConfig struct {
	Port     int
	Password string
}

// ValidateServerID rejects ids that cannot be used as an instance name or directory name.
func ValidateServerID(id string) error {
	if id == "" {
		return &ConfigurationError{Field: "id", Err: ErrMissingID}
	}
	if !serverIDPattern.MatchString(id) {
		return &ConfigurationError{Field: "id", Err: ErrInvalidID}
	}
	return nil
}

// Validate checks the options before any engine call is made.
func (o CreateServerOptions) Validate() error {
	if err := ValidateServerID(o.ID); err != nil {
		return err
	}
	if o.Image == "" {
		return &ConfigurationError{Field: "image", Err: ErrMissingImage}
	}
	if !validPort(o.Port) {
		return &ConfigurationError{Field: "port", Err: ErrInvalidPort}
	}
	if o.CPULimit != nil && *o.CPULimit <= 0 {
		return &ConfigurationError{Field: "cpuLimit", Err: ErrInvalidLimit}
	}
	if o.MemoryLimitMB != nil && *o.MemoryLimitMB <= 0 {
		return &ConfigurationError{Field: "memoryLimitMb", Err: ErrInvalidLimit}
	}
	if !o.RconEnabled && (o.RconPort != nil || o.RconPassword != nil) {
		return &ConfigurationError{Field: "rcon", Err: ErrPartialRcon}
	}
	if o.RconEnabled {
		if o.RconPort == nil || o.RconPassword == nil || *o.RconPassword == "" {
			return &ConfigurationError{Field: "rcon", Err: ErrPartialRcon}
		}
		if !validPort(*o.RconPort) {
			return &ConfigurationError{Field: "rconPort", Err: ErrInvalidPort}
		}
	}
	return nil
}

// Rcon returns the console channel when all three rcon fields are set.
func (o CreateServerOptions) Rcon() (RconConfig, bool) {
	if !o.RconEnabled || o.RconPort == nil || o.RconPassword == nil {
		return RconConfig{}, false
	}
	return RconConfig{Port: *o.RconPort, Password: *o.RconPassword}, true
}

func validPort(p int) bool {
	return p > 0 && p <= 65535
}

// InstanceStatus is the observed state of a server's runtime instance.
type InstanceStatus struct {
	ServerID   string        `json:"serverId"`
	InstanceID string        `json:"instanceId"`
	Name       string        `json:"name"`
	Image      string        `json:"image"`
	State      string        `json:"state"`
	Running    bool          `json:"running"`
	StartedAt  time.Time     `json:"startedAt,omitempty"`
	Uptime     time.Duration `json:"uptime"`
}
