// Package fat32 implements the FAT32 partition driver behind the backend
// contract. Directory structure, attributes and file content are persisted
// in a device image managed through modernc.org/sqlite, which works without
// CGO. The device string is the image location; ":memory:" is accepted.
package fat32

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/valeos/vfs/data"
)

// partitionSize is the reported capacity of the partition. Usage is
// accounted in 4096-byte pages.
const (
	partitionSize = 64 << 20
	pageSize      = 4096
)

// FileSystem is a FAT32 partition driver. The database handle is opened
// lazily in Init, which runs exactly once after mount registration.
type FileSystem struct {
	mu sync.RWMutex
	db *sql.DB

	mountPoint string
	device     string
}

// New creates a driver for the partition on device, mounted at mountPoint.
// No I/O happens until Init.
func New(mountPoint, device string) *FileSystem {
	return &FileSystem{
		mountPoint: mountPoint,
		device:     device,
	}
}

// Init opens the device image and prepares the on-disk structure,
// including the root directory entry.
func (f *FileSystem) Init(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	db, err := sql.Open("sqlite", f.device)
	if err != nil {
		return fmt.Errorf("fat32: open device %s: %w", f.device, err)
	}

	// A single connection keeps in-memory device images coherent.
	db.SetMaxOpenConns(1)

	schema := `
	CREATE TABLE IF NOT EXISTS fat32_files (
		path     TEXT PRIMARY KEY,
		name     TEXT NOT NULL,
		dir      INTEGER NOT NULL DEFAULT 0,
		system   INTEGER NOT NULL DEFAULT 0,
		hidden   INTEGER NOT NULL DEFAULT 0,
		size     INTEGER NOT NULL DEFAULT 0,
		created  INTEGER NOT NULL DEFAULT 0,
		modified INTEGER NOT NULL DEFAULT 0,
		accessed INTEGER NOT NULL DEFAULT 0,
		data     BLOB
	);
	`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return fmt.Errorf("fat32: initialize device %s: %w", f.device, err)
	}

	now := time.Now().Unix()
	_, err = db.ExecContext(ctx, `
		INSERT OR IGNORE INTO fat32_files (path, name, dir, created, modified, accessed)
		VALUES ('', '', 1, ?, ?, ?)
	`, now, now, now)
	if err != nil {
		db.Close()
		return fmt.Errorf("fat32: create root directory: %w", err)
	}

	f.db = db
	return nil
}

// StatFs reports the partition capacity and the free space left after
// page-quantized usage.
func (f *FileSystem) StatFs(ctx context.Context, info *data.StatFsInfo) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var used uint64
	row := f.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(((size + ?) / ?) * ?), 0) FROM fat32_files WHERE dir = 0
	`, pageSize-1, pageSize, pageSize)
	if err := row.Scan(&used); err != nil {
		return data.ErrIO
	}

	info.TotalSize = partitionSize
	if used > partitionSize {
		used = partitionSize
	}
	info.FreeSize = partitionSize - used

	return nil
}

// GetFile returns metadata for the entry at p.
func (f *FileSystem) GetFile(ctx context.Context, p data.Path) (*data.FileMetadata, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.getFile(ctx, pathKey(p))
}

func (f *FileSystem) getFile(ctx context.Context, key string) (*data.FileMetadata, error) {
	row := f.db.QueryRowContext(ctx, `
		SELECT name, dir, system, hidden, size, created, modified, accessed
		FROM fat32_files WHERE path = ?
	`, key)

	var meta data.FileMetadata
	var dir, system, hidden int
	err := row.Scan(&meta.Name, &dir, &system, &hidden, &meta.Size,
		&meta.Created, &meta.Modified, &meta.Accessed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, data.ErrNotExists
	}
	if err != nil {
		return nil, data.ErrIO
	}

	meta.Directory = dir != 0
	meta.System = system != 0
	meta.Hidden = hidden != 0

	return &meta, nil
}

// Touch creates an empty file at p. The parent directory must exist.
func (f *FileSystem) Touch(ctx context.Context, p data.Path) error {
	return f.createEntry(ctx, p, false)
}

// Mkdir creates a directory at p. The parent directory must exist.
func (f *FileSystem) Mkdir(ctx context.Context, p data.Path) error {
	return f.createEntry(ctx, p, true)
}

func (f *FileSystem) createEntry(ctx context.Context, p data.Path, dir bool) error {
	if p.Len() == 0 {
		return data.ErrExists
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	key := pathKey(p)

	if _, err := f.getFile(ctx, key); err == nil {
		return data.ErrExists
	} else if !errors.Is(err, data.ErrNotExists) {
		return err
	}

	parent, err := f.getFile(ctx, parentKey(key))
	if err != nil {
		return err
	}
	if !parent.Directory {
		return data.ErrNotDirectory
	}

	dirFlag := 0
	if dir {
		dirFlag = 1
	}

	now := time.Now().Unix()
	_, err = f.db.ExecContext(ctx, `
		INSERT INTO fat32_files (path, name, dir, created, modified, accessed, data)
		VALUES (?, ?, ?, ?, ?, ?, x'')
	`, key, p.Segment(p.Len()-1), dirFlag, now, now, now)
	if err != nil {
		return data.ErrIO
	}

	return nil
}

// Remove deletes the entry at p. Directories are removed together with
// their contents. The partition root cannot be removed.
func (f *FileSystem) Remove(ctx context.Context, p data.Path) error {
	if p.Len() == 0 {
		return data.ErrUnsupported
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	key := pathKey(p)

	if _, err := f.getFile(ctx, key); err != nil {
		return err
	}

	_, err := f.db.ExecContext(ctx, `
		DELETE FROM fat32_files WHERE path = ? OR path LIKE ?
	`, key, key+"/%")
	if err != nil {
		return data.ErrIO
	}

	return nil
}

// pathKey joins backend-local segments into the storage key. The mount's
// own root maps to the empty key.
func pathKey(p data.Path) string {
	return strings.Join(p.Segments(), "/")
}

func parentKey(key string) string {
	if i := strings.LastIndexByte(key, '/'); i >= 0 {
		return key[:i]
	}
	return ""
}
