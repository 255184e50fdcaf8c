package bolt

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/sparkpanel/sparkd/internal/core/domain"
	"github.com/sparkpanel/sparkd/internal/core/ports"
)

var (
	// Bucket names
	bucketServers = []byte("servers")
	bucketTasks   = []byte("tasks")
	bucketBackups = []byte("backups")
)

// openTimeout bounds the wait for the file lock held by another process.
const openTimeout = 2 * time.Second

// Store keeps server definitions, scheduled tasks and backup records in BoltDB.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database dir: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketServers, bucketTasks, bucketBackups} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) put(bucket []byte, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
}

func (s *Store) get(bucket []byte, key string, v any) error {
	return s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucket).Get([]byte(key))
		if data == nil {
			return fmt.Errorf("%s %s: %w", bucket, key, domain.ErrNotFound)
		}
		return json.Unmarshal(data, v)
	})
}

func (s *Store) delete(bucket []byte, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Delete([]byte(key))
	})
}

func list[T any](s *Store, bucket []byte, keep func(T) bool) ([]T, error) {
	var out []T
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).ForEach(func(k, v []byte) error {
			var item T
			if err := json.Unmarshal(v, &item); err != nil {
				return fmt.Errorf("failed to decode %s %s: %w", bucket, k, err)
			}
			if keep == nil || keep(item) {
				out = append(out, item)
			}
			return nil
		})
	})
	return out, err
}

// Server definitions
func (s *Store) SaveServer(opts domain.CreateServerOptions) error {
	return s.put(bucketServers, opts.ID, opts)
}

func (s *Store) GetServer(id string) (domain.CreateServerOptions, error) {
	var opts domain.CreateServerOptions
	err := s.get(bucketServers, id, &opts)
	return opts, err
}

func (s *Store) DeleteServer(id string) error {
	return s.delete(bucketServers, id)
}

func (s *Store) ListServers() ([]domain.CreateServerOptions, error) {
	return list[domain.CreateServerOptions](s, bucketServers, nil)
}

// Scheduled tasks
func (s *Store) SaveTask(task domain.ScheduledTask) error {
	return s.put(bucketTasks, task.ID, task)
}

func (s *Store) GetTask(id string) (domain.ScheduledTask, error) {
	var task domain.ScheduledTask
	err := s.get(bucketTasks, id, &task)
	return task, err
}

func (s *Store) DeleteTask(id string) error {
	return s.delete(bucketTasks, id)
}

func (s *Store) ListTasks(serverID string) ([]domain.ScheduledTask, error) {
	tasks, err := list(s, bucketTasks, func(t domain.ScheduledTask) bool {
		return serverID == "" || t.ServerID == serverID
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].CreatedAt.Before(tasks[j].CreatedAt) })
	return tasks, nil
}

// Backups
func (s *Store) SaveBackup(b domain.Backup) error {
	return s.put(bucketBackups, b.ID, b)
}

func (s *Store) DeleteBackup(id string) error {
	return s.delete(bucketBackups, id)
}

// ListBackups returns backups newest first.
func (s *Store) ListBackups(serverID string) ([]domain.Backup, error) {
	backups, err := list(s, bucketBackups, func(b domain.Backup) bool {
		return serverID == "" || b.ServerID == serverID
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(backups, func(i, j int) bool { return backups[i].CreatedAt.After(backups[j].CreatedAt) })
	return backups, nil
}

var (
	_ ports.ServerStore = (*Store)(nil)
	_ ports.TaskStore   = (*Store)(nil)
	_ ports.BackupStore = (*Store)(nil)
)
