// Package backup archives server data directories and enforces backup retention.
package backup

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"

	"github.com/sparkpanel/sparkd/internal/core/domain"
	"github.com/sparkpanel/sparkd/internal/core/ports"
)

// Dirs resolves the directories the archiver reads from and writes to.
type Dirs interface {
	Resolve(serverID string) (string, error)
	BackupDir(serverID string) (string, error)
}

// Archiver writes tar.gz snapshots of server data directories.
type Archiver struct {
	dirs   Dirs
	store  ports.BackupStore
	now    func() time.Time
	logger zerolog.Logger
}

func NewArchiver(dirs Dirs, store ports.BackupStore, logger zerolog.Logger) *Archiver {
	return &Archiver{dirs: dirs, store: store, now: time.Now, logger: logger}
}

// Create archives the server's data directory and records the backup.
// The data directory is only read.
func (a *Archiver) Create(ctx context.Context, serverID string) (domain.Backup, error) {
	src, err := a.dirs.Resolve(serverID)
	if err != nil {
		return domain.Backup{}, err
	}
	if _, err := os.Stat(src); err != nil {
		return domain.Backup{}, &domain.StorageError{Op: "backup", ServerID: serverID, Path: src, Err: err}
	}
	dstDir, err := a.dirs.BackupDir(serverID)
	if err != nil {
		return domain.Backup{}, err
	}
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return domain.Backup{}, &domain.StorageError{Op: "backup", ServerID: serverID, Path: dstDir, Err: err}
	}

	id := uuid.NewString()
	created := a.now().UTC()
	dst := filepath.Join(dstDir, archiveName(created, id))

	size, err := writeArchive(ctx, src, dst)
	if err != nil {
		return domain.Backup{}, &domain.StorageError{Op: "backup", ServerID: serverID, Path: dst, Err: err}
	}

	b := domain.Backup{
		ID:        id,
		ServerID:  serverID,
		Path:      dst,
		SizeBytes: size,
		CreatedAt: created,
	}
	if err := a.store.SaveBackup(b); err != nil {
		_ = os.Remove(dst)
		return domain.Backup{}, fmt.Errorf("failed to record backup: %w", err)
	}

	a.logger.Info().Str("server_id", serverID).Str("path", dst).Int64("size", size).Msg("backup created")
	return b, nil
}

// archiveName is unique per backup even when two backups share a second.
func archiveName(created time.Time, id string) string {
	short := strings.ReplaceAll(id, "-", "")
	if len(short) > 8 {
		short = short[:8]
	}
	return created.Format("20060102T150405Z") + "-" + short + ".tar.gz"
}

// writeArchive writes src as a gzipped tarball to dst through a temp file and returns its size.
func writeArchive(ctx context.Context, src, dst string) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".backup-*")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	gz := gzip.NewWriter(tmp)
	tw := tar.NewWriter(gz)

	if err := addTree(ctx, tw, src); err != nil {
		return 0, err
	}
	if err := tw.Close(); err != nil {
		return 0, err
	}
	if err := gz.Close(); err != nil {
		return 0, err
	}
	if err := tmp.Sync(); err != nil {
		return 0, err
	}
	info, err := tmp.Stat()
	if err != nil {
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func addTree(ctx context.Context, tw *tar.Writer, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		link := ""
		if info.Mode()&fs.ModeSymlink != 0 {
			if link, err = os.Readlink(path); err != nil {
				return err
			}
		} else if !info.Mode().IsRegular() && !info.IsDir() {
			return nil
		}

		hdr, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if info.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
}
