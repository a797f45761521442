package vfs

import "github.com/valeos/vfs/data"

// Scheduler is the narrow slice of the process scheduler the VFS consumes:
// the current working directory and the per-process descriptor table. The
// VFS never stores descriptors; it validates and resolves them here on
// every call.
type Scheduler interface {
	// WorkingDirectory returns the current process's working directory
	// as an absolute Path.
	WorkingDirectory() data.Path

	// HasHandle reports whether fd is a live descriptor.
	HasHandle(fd int64) bool

	// Handle returns the absolute path associated with fd.
	Handle(fd int64) data.Path

	// RegisterHandle allocates a descriptor for the given absolute path.
	RegisterHandle(p data.Path) int64

	// ReleaseHandle frees fd.
	ReleaseHandle(fd int64)
}
