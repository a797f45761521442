// Package vfs implements the kernel's virtual filesystem core: a single
// hierarchical namespace dispatching every operation to the filesystem
// backend owning the longest matching mount-point prefix.
//
// Facade operations return a signed status word: a non-negative count,
// length or descriptor on success, or the additive inverse of a data.Errno
// on failure. Backend errors pass through unchanged.
package vfs

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/valeos/vfs/data"
	"github.com/valeos/vfs/fs"
	"github.com/valeos/vfs/fs/devfs"
	"github.com/valeos/vfs/fs/fat32"
	"github.com/valeos/vfs/fs/procfs"
	"github.com/valeos/vfs/fs/sysfs"
	"github.com/valeos/vfs/log"
	"github.com/valeos/vfs/sched"
)

// VirtualFileSystem is the mount registry and path-dispatch engine. The
// registry is written only by Mount and MountFd and read by every other
// operation; entries are never removed.
type VirtualFileSystem struct {
	mu     sync.RWMutex
	mounts []*mountEntry

	sched  Scheduler
	procs  procfs.Provider
	clock  procfs.Clock
	logger *log.Logger

	rootDevice string

	sys *sysfs.FileSystem
	dev *devfs.FileSystem
}

// noProcesses serves an empty process list when the scheduler does not
// expose one.
type noProcesses struct{}

func (noProcesses) Processes() []procfs.Process {
	return nil
}

// New creates a VFS with no mounts. Call Init to build the boot-time
// layout, or Mount to attach filesystems one by one.
func New(opts ...Option) (*VirtualFileSystem, error) {
	options := newDefaultOptions()
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	if options.Scheduler == nil {
		options.Scheduler = sched.New()
	}

	logger := options.Logger
	if logger == nil {
		logger = log.NewLogger("vfs", options.LogLevel, options.LogFile, options.NoTerminalLog)
	}

	v := &VirtualFileSystem{
		sched:      options.Scheduler,
		procs:      noProcesses{},
		clock:      options.Clock,
		logger:     logger,
		rootDevice: options.RootDevice,
	}

	if provider, ok := options.Scheduler.(procfs.Provider); ok {
		v.procs = provider
	}

	return v, nil
}

// SysFs returns the sysfs backend once mounted, for value registration.
func (v *VirtualFileSystem) SysFs() *sysfs.FileSystem {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return v.sys
}

// DevFs returns the devfs backend once mounted, for device registration.
func (v *VirtualFileSystem) DevFs() *devfs.FileSystem {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return v.dev
}

// Init builds the boot-time mount layout: the FAT32 root partition, then
// sysfs, devfs and procfs. Once every mount is registered, each backend is
// initialized exactly once.
func (v *VirtualFileSystem) Init(ctx context.Context) error {
	boot := []struct {
		fsType     FsType
		mountPoint string
		device     string
	}{
		{FsTypeFat32, "/", v.rootDevice},
		{FsTypeSysFs, "/sys/", "none"},
		{FsTypeDevFs, "/dev/", "none"},
		{FsTypeProcFs, "/proc/", "none"},
	}

	for _, m := range boot {
		if status := v.Mount(ctx, m.fsType, m.mountPoint, m.device); status < 0 {
			return data.Errno(-status)
		}
	}

	return v.InitBackends(ctx)
}

// InitBackends runs the deferred initialization of every mount registered
// through the raw Mount form. Already-initialized backends are skipped, so
// the call is safe after late mounts.
func (v *VirtualFileSystem) InitBackends(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, m := range v.mounts {
		if m.inited {
			continue
		}

		if err := m.backend.Init(ctx); err != nil {
			v.logger.Error("vfs: init of %s at %s failed: %v", m.fsType, m.mountPoint, err)
			return err
		}
		m.inited = true
	}

	return nil
}

// Mount registers a filesystem of the requested variant at mountPoint.
// Backend initialization is deferred to InitBackends. Duplicate mount
// points are rejected so no two live mounts share identical segments.
func (v *VirtualFileSystem) Mount(ctx context.Context, typ FsType, mountPoint, device string) int64 {
	if mountPoint == "" {
		return data.Status(data.ErrInvalidFilePath)
	}

	return v.mount(ctx, typ, canonicalMountPoint(mountPoint), device, false)
}

// MountFd is the descriptor form of Mount: both the mount point and the
// device are taken from live descriptors. The backend is initialized
// immediately instead of waiting for InitBackends.
func (v *VirtualFileSystem) MountFd(ctx context.Context, typ FsType, mpFd, devFd int64) int64 {
	if !v.sched.HasHandle(mpFd) {
		return data.Status(data.ErrInvalidFileDescriptor)
	}
	if !v.sched.HasHandle(devFd) {
		return data.Status(data.ErrInvalidFileDescriptor)
	}

	mountPoint := joinHandle(v.sched.Handle(mpFd))
	device := joinHandle(v.sched.Handle(devFd))

	return v.mount(ctx, typ, mountPoint, device, true)
}

func (v *VirtualFileSystem) mount(ctx context.Context, typ FsType, mountPoint, device string, initNow bool) int64 {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, m := range v.mounts {
		if m.mountPoint == mountPoint {
			return data.Status(data.ErrAlreadyMounted)
		}
	}

	backend, err := v.newBackend(typ, mountPoint, device)
	if err != nil {
		return data.Status(err)
	}

	entry := newMountEntry(typ, mountPoint, device, backend)

	if initNow {
		if err := backend.Init(ctx); err != nil {
			v.logger.Error("vfs: init of %s at %s failed: %v", typ, mountPoint, err)
			return data.Status(err)
		}
		entry.inited = true
	}

	v.mounts = append(v.mounts, entry)
	v.logger.Debug("vfs: mounted file system %s at %s (%s)", device, mountPoint, entry.id)

	return 0
}

// newBackend constructs the backend variant for a mount. Callers hold the
// write lock.
func (v *VirtualFileSystem) newBackend(typ FsType, mountPoint, device string) (fs.FileSystem, error) {
	switch typ {
	case FsTypeFat32:
		return fat32.New(mountPoint, device), nil
	case FsTypeSysFs:
		v.sys = sysfs.New(mountPoint)
		return v.sys, nil
	case FsTypeDevFs:
		v.dev = devfs.New(mountPoint)
		return v.dev, nil
	case FsTypeProcFs:
		return procfs.New(mountPoint, v.procs, v.clock), nil
	default:
		return nil, data.ErrInvalidFileSystem
	}
}

// joinHandle renders a descriptor's absolute path in the canonical mount
// form: every segment followed by a slash, the bare root as "/".
func joinHandle(p data.Path) string {
	var sb strings.Builder
	sb.WriteByte('/')
	for i := 0; i < p.Len(); i++ {
		sb.WriteString(p.Segment(i))
		sb.WriteByte('/')
	}
	return sb.String()
}

// Open resolves the path and returns a fresh descriptor for it. Opening a
// mount's own root never consults the backend. With OpenCreate, a missing
// file is created through Touch before the descriptor is registered.
func (v *VirtualFileSystem) Open(ctx context.Context, path string, flags data.OpenFlags) int64 {
	entry, abs, local, err := v.resolve(path)
	if err != nil {
		return data.Status(err)
	}

	if local.IsRoot() {
		return v.sched.RegisterHandle(abs)
	}

	_, err = entry.backend.GetFile(ctx, local)
	if flags.Has(data.OpenCreate) && errors.Is(err, data.ErrNotExists) {
		err = entry.backend.Touch(ctx, local)
	}
	if err != nil {
		return data.Status(err)
	}

	return v.sched.RegisterHandle(abs)
}

// Close releases the descriptor if it is live, and is a silent noop
// otherwise.
func (v *VirtualFileSystem) Close(ctx context.Context, fd int64) {
	if v.sched.HasHandle(fd) {
		v.sched.ReleaseHandle(fd)
	}
}

// Stat fills info for the file behind fd. The root directory of a mount is
// synthesized as an empty 4096-byte directory instead of asking the
// backend.
func (v *VirtualFileSystem) Stat(ctx context.Context, fd int64, info *data.StatInfo) int64 {
	if !v.sched.HasHandle(fd) {
		return data.Status(data.ErrInvalidFileDescriptor)
	}

	entry, local, err := v.resolveAbsolute(v.sched.Handle(fd))
	if err != nil {
		return data.Status(err)
	}

	if local.Len() == 0 {
		*info = data.StatInfo{
			Size:  4096,
			Flags: data.StatFlagDirectory,
		}
		return 0
	}

	meta, err := entry.backend.GetFile(ctx, local)
	if err != nil {
		return data.Status(err)
	}

	*info = data.StatInfo{
		Size:     meta.Size,
		Flags:    meta.Flags(),
		Created:  meta.Created,
		Modified: meta.Modified,
		Accessed: meta.Accessed,
	}

	return 0
}

// resolveHandle validates fd and rejects the degenerate empty path before
// dispatching, shared by the descriptor-based data operations.
func (v *VirtualFileSystem) resolveHandle(fd int64) (*mountEntry, data.Path, error) {
	if !v.sched.HasHandle(fd) {
		return nil, data.Path{}, data.ErrInvalidFileDescriptor
	}

	base := v.sched.Handle(fd)
	if base.Len() == 0 {
		return nil, data.Path{}, data.ErrInvalidFilePath
	}

	return v.resolveAbsolute(base)
}

// Read copies file content starting at offset into buf and returns the
// number of bytes read; short reads at end of file are success.
func (v *VirtualFileSystem) Read(ctx context.Context, fd int64, buf []byte, offset uint64) int64 {
	entry, local, err := v.resolveHandle(fd)
	if err != nil {
		return data.Status(err)
	}

	read, err := entry.backend.Read(ctx, local, buf, offset)
	if err != nil {
		return data.Status(err)
	}

	return int64(read)
}

// Write stores buf at offset, growing the file as needed, and returns the
// number of bytes written.
func (v *VirtualFileSystem) Write(ctx context.Context, fd int64, buf []byte, offset uint64) int64 {
	entry, local, err := v.resolveHandle(fd)
	if err != nil {
		return data.Status(err)
	}

	written, err := entry.backend.Write(ctx, local, buf, offset)
	if err != nil {
		return data.Status(err)
	}

	return int64(written)
}

// Clear zero-fills count bytes starting at offset and returns the number
// of bytes cleared.
func (v *VirtualFileSystem) Clear(ctx context.Context, fd int64, count, offset uint64) int64 {
	entry, local, err := v.resolveHandle(fd)
	if err != nil {
		return data.Status(err)
	}

	written, err := entry.backend.Clear(ctx, local, count, offset)
	if err != nil {
		return data.Status(err)
	}

	return int64(written)
}

// Truncate extends or shrinks the file behind fd to size bytes.
func (v *VirtualFileSystem) Truncate(ctx context.Context, fd int64, size uint64) int64 {
	entry, local, err := v.resolveHandle(fd)
	if err != nil {
		return data.Status(err)
	}

	return data.Status(entry.backend.Truncate(ctx, local, size))
}

// DirectRead is the path form of Read: no descriptor is consulted.
func (v *VirtualFileSystem) DirectRead(ctx context.Context, path string, buf []byte, offset uint64) int64 {
	entry, _, local, err := v.resolve(path)
	if err != nil {
		return data.Status(err)
	}

	read, err := entry.backend.Read(ctx, local, buf, offset)
	if err != nil {
		return data.Status(err)
	}

	return int64(read)
}

// DirectWrite is the path form of Write.
func (v *VirtualFileSystem) DirectWrite(ctx context.Context, path string, buf []byte, offset uint64) int64 {
	entry, _, local, err := v.resolve(path)
	if err != nil {
		return data.Status(err)
	}

	written, err := entry.backend.Write(ctx, local, buf, offset)
	if err != nil {
		return data.Status(err)
	}

	return int64(written)
}

// DirectReadAll reads the whole file at path into a fresh buffer sized
// from its metadata. The returned slice has length equal to the returned
// count; a NUL terminator follows it in the backing array.
func (v *VirtualFileSystem) DirectReadAll(ctx context.Context, path string) ([]byte, int64) {
	entry, _, local, err := v.resolve(path)
	if err != nil {
		return nil, data.Status(err)
	}

	meta, err := entry.backend.GetFile(ctx, local)
	if err != nil {
		return nil, data.Status(err)
	}

	buf := make([]byte, meta.Size+1)
	read, err := entry.backend.Read(ctx, local, buf[:meta.Size], 0)
	if err != nil {
		return nil, data.Status(err)
	}

	buf[read] = 0

	return buf[:read], int64(read)
}

// Mkdir creates a directory at path.
func (v *VirtualFileSystem) Mkdir(ctx context.Context, path string) int64 {
	entry, _, local, err := v.resolve(path)
	if err != nil {
		return data.Status(err)
	}

	return data.Status(entry.backend.Mkdir(ctx, local))
}

// Rm removes the file or directory at path.
func (v *VirtualFileSystem) Rm(ctx context.Context, path string) int64 {
	entry, _, local, err := v.resolve(path)
	if err != nil {
		return data.Status(err)
	}

	return data.Status(entry.backend.Remove(ctx, local))
}

// StatFs fills info with the statistics of the filesystem owning
// mountPoint.
func (v *VirtualFileSystem) StatFs(ctx context.Context, mountPoint string, info *data.StatFsInfo) int64 {
	entry, _, _, err := v.resolve(mountPoint)
	if err != nil {
		return data.Status(err)
	}

	return data.Status(entry.backend.StatFs(ctx, info))
}

// Entries serializes the directory listing behind fd into buf and returns
// the total byte count written, or -BUFFER_SMALL when buf cannot hold it.
func (v *VirtualFileSystem) Entries(ctx context.Context, fd int64, buf []byte) int64 {
	if !v.sched.HasHandle(fd) {
		return data.Status(data.ErrInvalidFileDescriptor)
	}

	entry, local, err := v.resolveAbsolute(v.sched.Handle(fd))
	if err != nil {
		return data.Status(err)
	}

	files, err := entry.backend.ReadDir(ctx, local)
	if err != nil {
		return data.Status(err)
	}

	total := entriesSize(files)
	if uint64(len(buf)) < total {
		return data.Status(data.ErrBufferSmall)
	}

	serializeEntries(files, buf)

	return int64(total)
}

// Mounts serializes the live mount registry into buf in registration
// order and returns the total byte count written.
func (v *VirtualFileSystem) Mounts(ctx context.Context, buf []byte) int64 {
	v.mu.RLock()
	defer v.mu.RUnlock()

	total := mountsSize(v.mounts)
	if uint64(len(buf)) < total {
		return data.Status(data.ErrBufferSmall)
	}

	serializeMounts(v.mounts, buf)

	return int64(total)
}
