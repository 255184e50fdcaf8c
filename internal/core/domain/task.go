package domain

import "time"

// TaskType is the action a scheduled task performs.
type TaskType string

const (
	TaskRestart TaskType = "RESTART"
	TaskBackup  TaskType = "BACKUP"
)

// Valid reports whether t is a known task type.
func (t TaskType) Valid() bool {
	return t == TaskRestart || t == TaskBackup
}

// ScheduledTask runs an action against one server on a cron schedule.
type ScheduledTask struct {
	ID        string     `json:"id"`
	ServerID  string     `json:"serverId"`
	Type      TaskType   `json:"type"`
	Cron      string     `json:"cron"`
	Enabled   bool       `json:"enabled"`
	LastRunAt *time.Time `json:"lastRunAt,omitempty"`
	LastError string     `json:"lastError,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Backup is one archive of a server data directory.
type Backup struct {
	ID        string    `json:"id"`
	ServerID  string    `json:"serverId"`
	Path      string    `json:"path"`
	SizeBytes int64     `json:"sizeBytes"`
	CreatedAt time.Time `json:"createdAt"`
}
