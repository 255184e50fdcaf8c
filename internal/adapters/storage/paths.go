package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sparkpanel/sparkd/internal/core/domain"
	"github.com/sparkpanel/sparkd/internal/core/ports"
)

// LocalPaths resolves per-server data and backup directories on the local filesystem.
type LocalPaths struct {
	dataRoot   string
	backupRoot string
}

// NewLocalPaths returns a resolver rooted at dataRoot and backupRoot.
// Roots are made absolute since they are handed to the engine as bind sources.
func NewLocalPaths(dataRoot, backupRoot string) (*LocalPaths, error) {
	data, err := filepath.Abs(dataRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data root: %w", err)
	}
	backups, err := filepath.Abs(backupRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve backup root: %w", err)
	}
	return &LocalPaths{dataRoot: data, backupRoot: backups}, nil
}

// Resolve returns the data directory of a server. It has no side effects.
func (p *LocalPaths) Resolve(serverID string) (string, error) {
	if err := domain.ValidateServerID(serverID); err != nil {
		return "", err
	}
	return filepath.Join(p.dataRoot, serverID), nil
}

// Ensure creates the data directory and its parents if needed.
func (p *LocalPaths) Ensure(serverID string) (string, error) {
	dir, err := p.Resolve(serverID)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &domain.StorageError{Op: "mkdir", ServerID: serverID, Path: dir, Err: err}
	}
	return dir, nil
}

// BackupDir returns the directory holding a server's backups.
func (p *LocalPaths) BackupDir(serverID string) (string, error) {
	if err := domain.ValidateServerID(serverID); err != nil {
		return "", err
	}
	return filepath.Join(p.backupRoot, serverID), nil
}

// Usage returns the total size in bytes of a server's data directory.
// A missing directory counts as empty.
func (p *LocalPaths) Usage(serverID string) (int64, error) {
	dir, err := p.Resolve(serverID)
	if err != nil {
		return 0, err
	}

	var total int64
	err = filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, &domain.StorageError{Op: "usage", ServerID: serverID, Path: dir, Err: err}
	}
	return total, nil
}

var _ ports.PathResolver = (*LocalPaths)(nil)
