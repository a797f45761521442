// Package sysfs exposes registered kernel values as a read-only synthetic
// filesystem. Values are either static strings or computed on every read.
package sysfs

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/btree"

	"github.com/valeos/vfs/data"
)

// Value produces the current content of a sysfs file.
type Value func() string

// FileSystem is the sysfs backend. The value index is a B-tree keyed by the
// backend-local path, which keeps listings in lexicographic order and makes
// prefix scans cheap. Directories are implied by the registered paths.
type FileSystem struct {
	mu sync.RWMutex

	mountPoint string
	values     *btree.Map[string, Value]
	created    uint64
}

func New(mountPoint string) *FileSystem {
	return &FileSystem{
		mountPoint: mountPoint,
		values:     btree.NewMap[string, Value](0),
		created:    uint64(time.Now().Unix()),
	}
}

// SetValue registers a static value at the given backend-local path,
// replacing any previous value.
func (s *FileSystem) SetValue(path, value string) {
	s.SetDynamic(path, func() string { return value })
}

// SetDynamic registers a computed value at the given backend-local path.
func (s *FileSystem) SetDynamic(path string, fn Value) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values.Set(pathKey(path), fn)
}

// DeleteValue removes the value at the given backend-local path.
func (s *FileSystem) DeleteValue(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values.Delete(pathKey(path))
}

func (s *FileSystem) Init(ctx context.Context) error {
	return nil
}

func (s *FileSystem) StatFs(ctx context.Context, info *data.StatFsInfo) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total uint64
	s.values.Scan(func(key string, fn Value) bool {
		total += uint64(len(fn()))
		return true
	})

	info.TotalSize = total
	info.FreeSize = 0

	return nil
}

func (s *FileSystem) GetFile(ctx context.Context, p data.Path) (*data.FileMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := strings.Join(p.Segments(), "/")
	if key == "" {
		return s.dirMetadata(""), nil
	}

	if fn, exists := s.values.Get(key); exists {
		return s.fileMetadata(p.Segment(p.Len()-1), fn), nil
	}

	if s.hasChildren(key) {
		return s.dirMetadata(p.Segment(p.Len() - 1)), nil
	}

	return nil, data.ErrNotExists
}

func (s *FileSystem) Touch(ctx context.Context, p data.Path) error {
	return data.ErrUnsupported
}

func (s *FileSystem) Mkdir(ctx context.Context, p data.Path) error {
	return data.ErrUnsupported
}

func (s *FileSystem) Remove(ctx context.Context, p data.Path) error {
	return data.ErrUnsupported
}

// Read copies the current value content starting at offset.
func (s *FileSystem) Read(ctx context.Context, p data.Path, buf []byte, offset uint64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := strings.Join(p.Segments(), "/")

	fn, exists := s.values.Get(key)
	if !exists {
		if key == "" || s.hasChildren(key) {
			return 0, data.ErrIsDirectory
		}
		return 0, data.ErrNotExists
	}

	content := fn()
	if offset >= uint64(len(content)) {
		return 0, nil
	}

	return copy(buf, content[offset:]), nil
}

func (s *FileSystem) Write(ctx context.Context, p data.Path, buf []byte, offset uint64) (int, error) {
	return 0, data.ErrUnsupported
}

func (s *FileSystem) Clear(ctx context.Context, p data.Path, count, offset uint64) (int, error) {
	return 0, data.ErrUnsupported
}

func (s *FileSystem) Truncate(ctx context.Context, p data.Path, size uint64) error {
	return data.ErrUnsupported
}

// ReadDir lists the direct children of the directory at p in lexicographic
// order, as stored in the B-tree.
func (s *FileSystem) ReadDir(ctx context.Context, p data.Path) ([]data.FileMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := strings.Join(p.Segments(), "/")
	if key != "" {
		if _, exists := s.values.Get(key); exists {
			return nil, data.ErrNotDirectory
		}
		if !s.hasChildren(key) {
			return nil, data.ErrNotExists
		}
	}

	prefix := key
	if prefix != "" {
		prefix += "/"
	}

	var files []data.FileMetadata
	seen := make(map[string]bool)

	s.values.Scan(func(child string, fn Value) bool {
		if !strings.HasPrefix(child, prefix) {
			return true
		}

		rel := child[len(prefix):]
		if i := strings.IndexByte(rel, '/'); i > 0 {
			// Nested value, surface the implied directory once.
			name := rel[:i]
			if !seen[name] {
				seen[name] = true
				files = append(files, *s.dirMetadata(name))
			}
		} else if rel != "" {
			files = append(files, *s.fileMetadata(rel, fn))
		}

		return true
	})

	return files, nil
}

// hasChildren reports whether any value lives under key. Callers hold the
// read lock.
func (s *FileSystem) hasChildren(key string) bool {
	prefix := key + "/"
	found := false

	s.values.Scan(func(child string, fn Value) bool {
		if strings.HasPrefix(child, prefix) {
			found = true
			return false
		}
		return true
	})

	return found
}

func (s *FileSystem) fileMetadata(name string, fn Value) *data.FileMetadata {
	return &data.FileMetadata{
		Name:     name,
		Size:     uint64(len(fn())),
		System:   true,
		Created:  s.created,
		Modified: s.created,
		Accessed: s.created,
	}
}

func (s *FileSystem) dirMetadata(name string) *data.FileMetadata {
	return &data.FileMetadata{
		Name:      name,
		Directory: true,
		System:    true,
		Created:   s.created,
		Modified:  s.created,
		Accessed:  s.created,
	}
}

func pathKey(path string) string {
	return strings.Trim(path, "/")
}
