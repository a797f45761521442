// Package devfs exposes registered devices as a flat synthetic filesystem.
// File content maps directly onto device reads and writes at an offset.
package devfs

import (
	"context"
	"sync"
	"time"

	"github.com/tidwall/btree"

	"github.com/valeos/vfs/data"
)

// Device is the I/O surface a devfs entry delegates to.
type Device interface {
	// ReadAt copies device content starting at offset into buf. A short
	// (possibly zero) count at the end of the device is success.
	ReadAt(buf []byte, offset uint64) (int, error)

	// WriteAt stores buf into the device starting at offset and returns
	// the number of bytes accepted.
	WriteAt(buf []byte, offset uint64) (int, error)

	// Size returns the device capacity in bytes, 0 for stream devices.
	Size() uint64
}

// FileSystem is the devfs backend: a single-level namespace of device
// nodes, listed in lexicographic order.
type FileSystem struct {
	mu sync.RWMutex

	mountPoint string
	devices    *btree.Map[string, Device]
	created    uint64
}

// New creates a devfs with the standard null and zero devices registered.
func New(mountPoint string) *FileSystem {
	f := &FileSystem{
		mountPoint: mountPoint,
		devices:    btree.NewMap[string, Device](0),
		created:    uint64(time.Now().Unix()),
	}

	f.devices.Set("null", NullDevice{})
	f.devices.Set("zero", ZeroDevice{})

	return f
}

// Register adds a device node. Returns data.ErrExists when the name is
// already taken.
func (f *FileSystem) Register(name string, dev Device) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.devices.Get(name); exists {
		return data.ErrExists
	}

	f.devices.Set(name, dev)
	return nil
}

func (f *FileSystem) Init(ctx context.Context) error {
	return nil
}

func (f *FileSystem) StatFs(ctx context.Context, info *data.StatFsInfo) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var total uint64
	f.devices.Scan(func(name string, dev Device) bool {
		total += dev.Size()
		return true
	})

	info.TotalSize = total
	info.FreeSize = 0

	return nil
}

func (f *FileSystem) GetFile(ctx context.Context, p data.Path) (*data.FileMetadata, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if p.Len() == 0 {
		return &data.FileMetadata{
			Directory: true,
			Created:   f.created,
			Modified:  f.created,
			Accessed:  f.created,
		}, nil
	}

	dev, err := f.lookup(p)
	if err != nil {
		return nil, err
	}

	return f.deviceMetadata(p.Segment(0), dev), nil
}

func (f *FileSystem) Touch(ctx context.Context, p data.Path) error {
	return data.ErrUnsupported
}

func (f *FileSystem) Mkdir(ctx context.Context, p data.Path) error {
	return data.ErrUnsupported
}

func (f *FileSystem) Remove(ctx context.Context, p data.Path) error {
	return data.ErrUnsupported
}

func (f *FileSystem) Read(ctx context.Context, p data.Path, buf []byte, offset uint64) (int, error) {
	f.mu.RLock()
	dev, err := f.lookup(p)
	f.mu.RUnlock()
	if err != nil {
		return 0, err
	}

	return dev.ReadAt(buf, offset)
}

func (f *FileSystem) Write(ctx context.Context, p data.Path, buf []byte, offset uint64) (int, error) {
	f.mu.RLock()
	dev, err := f.lookup(p)
	f.mu.RUnlock()
	if err != nil {
		return 0, err
	}

	return dev.WriteAt(buf, offset)
}

func (f *FileSystem) Clear(ctx context.Context, p data.Path, count, offset uint64) (int, error) {
	f.mu.RLock()
	dev, err := f.lookup(p)
	f.mu.RUnlock()
	if err != nil {
		return 0, err
	}

	return dev.WriteAt(make([]byte, count), offset)
}

func (f *FileSystem) Truncate(ctx context.Context, p data.Path, size uint64) error {
	return data.ErrUnsupported
}

func (f *FileSystem) ReadDir(ctx context.Context, p data.Path) ([]data.FileMetadata, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if p.Len() > 0 {
		if _, err := f.lookup(p); err != nil {
			return nil, err
		}
		return nil, data.ErrNotDirectory
	}

	var files []data.FileMetadata
	f.devices.Scan(func(name string, dev Device) bool {
		files = append(files, *f.deviceMetadata(name, dev))
		return true
	})

	return files, nil
}

// lookup resolves a backend-local path to a device. The namespace is flat,
// so anything deeper than one segment cannot exist. Callers hold the lock.
func (f *FileSystem) lookup(p data.Path) (Device, error) {
	if p.Len() != 1 {
		return nil, data.ErrNotExists
	}

	dev, exists := f.devices.Get(p.Segment(0))
	if !exists {
		return nil, data.ErrNotExists
	}

	return dev, nil
}

func (f *FileSystem) deviceMetadata(name string, dev Device) *data.FileMetadata {
	return &data.FileMetadata{
		Name:     name,
		Size:     dev.Size(),
		Created:  f.created,
		Modified: f.created,
		Accessed: f.created,
	}
}
