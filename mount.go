package vfs

import (
	"strings"

	"github.com/google/uuid"

	"github.com/valeos/vfs/data"
	"github.com/valeos/vfs/fs"
)

// FsType selects the filesystem backend variant for a mount.
type FsType int

const (
	FsTypeUnknown FsType = iota
	FsTypeFat32
	FsTypeSysFs
	FsTypeDevFs
	FsTypeProcFs
)

func (t FsType) String() string {
	switch t {
	case FsTypeFat32:
		return "FAT32"
	case FsTypeSysFs:
		return "sysfs"
	case FsTypeDevFs:
		return "devfs"
	case FsTypeProcFs:
		return "procfs"
	default:
		return "Unknown"
	}
}

// mountEntry is one record of the mount registry. The entry exclusively
// owns its backend; entries are never removed, so backends live for the
// remainder of the process.
type mountEntry struct {
	id         uuid.UUID
	fsType     FsType
	device     string
	mountPoint string
	segments   []string
	backend    fs.FileSystem

	// inited guards the exactly-once backend initialization.
	inited bool
}

func newMountEntry(typ FsType, mountPoint, device string, backend fs.FileSystem) *mountEntry {
	return &mountEntry{
		id:         uuid.New(),
		fsType:     typ,
		device:     device,
		mountPoint: mountPoint,
		segments:   splitMountPoint(mountPoint),
		backend:    backend,
	}
}

// canonicalMountPoint normalizes a mount point string: the root is "/",
// everything else carries exactly one leading and one trailing slash.
func canonicalMountPoint(path string) string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return "/"
	}
	return "/" + trimmed + "/"
}

// splitMountPoint derives the cached segment vector; the root mount keeps
// an empty vector.
func splitMountPoint(mountPoint string) []string {
	parts := strings.Split(mountPoint, "/")
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}

// prefixes reports whether the entry's mount point is a prefix of the
// absolute path p.
func (m *mountEntry) prefixes(p data.Path) bool {
	if len(m.segments) > p.Len() {
		return false
	}
	for i, seg := range m.segments {
		if p.Segment(i) != seg {
			return false
		}
	}
	return true
}

// lookupMount selects the mount owning the absolute path p: the one with
// the longest mount-point prefix, falling back to the root mount, which
// prefixes everything. Ties cannot occur because identical mount points
// are rejected at registration.
func (v *VirtualFileSystem) lookupMount(p data.Path) (*mountEntry, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var best *mountEntry
	bestLen := -1

	for _, m := range v.mounts {
		if m.prefixes(p) && len(m.segments) > bestLen {
			best = m
			bestLen = len(m.segments)
		}
	}

	if best == nil {
		return nil, data.ErrInvalidFileSystem
	}

	return best, nil
}

// resolve maps a raw path string to its owning mount, the absolute Path,
// and the backend-local Path (the suffix after the mount-point prefix).
// Relative strings resolve against the scheduler's working directory.
func (v *VirtualFileSystem) resolve(path string) (*mountEntry, data.Path, data.Path, error) {
	if path == "" {
		return nil, data.Path{}, data.Path{}, data.ErrInvalidFilePath
	}

	var abs data.Path
	if strings.HasPrefix(path, "/") {
		abs = data.ParsePath(path)
	} else {
		abs = data.JoinPath(v.sched.WorkingDirectory(), path)
	}

	entry, local, err := v.resolveAbsolute(abs)
	return entry, abs, local, err
}

// resolveAbsolute dispatches an already-absolute Path.
func (v *VirtualFileSystem) resolveAbsolute(abs data.Path) (*mountEntry, data.Path, error) {
	entry, err := v.lookupMount(abs)
	if err != nil {
		return nil, data.Path{}, err
	}

	return entry, abs.SubPath(len(entry.segments)), nil
}
