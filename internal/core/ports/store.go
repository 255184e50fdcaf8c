package ports

import "github.com/sparkpanel/sparkd/internal/core/domain"

// ServerStore keeps the last applied server definitions, used by scheduled restarts.
type ServerStore interface {
	SaveServer(opts domain.CreateServerOptions) error
	GetServer(id string) (domain.CreateServerOptions, error)
	DeleteServer(id string) error
	ListServers() ([]domain.CreateServerOptions, error)
}

// TaskStore persists scheduled tasks.
type TaskStore interface {
	SaveTask(task domain.ScheduledTask) error
	GetTask(id string) (domain.ScheduledTask, error)
	DeleteTask(id string) error
	// ListTasks returns the tasks of one server, or all tasks when serverID is empty.
	ListTasks(serverID string) ([]domain.ScheduledTask, error)
}

// BackupStore persists backup records.
type BackupStore interface {
	SaveBackup(b domain.Backup) error
	DeleteBackup(id string) error
	// ListBackups returns the backups of one server, or all backups when serverID is empty.
	ListBackups(serverID string) ([]domain.Backup, error)
}
