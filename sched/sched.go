// Package sched provides a reference implementation of the scheduler
// interface the VFS core consumes: the per-process working directory, the
// file-descriptor table, and the process list served through procfs.
package sched

import (
	"sync"

	"github.com/valeos/vfs/data"
	"github.com/valeos/vfs/fs/procfs"
)

// Table owns file descriptors and the current working directory. The VFS
// never stores descriptors itself; it validates and resolves them here on
// every call.
type Table struct {
	mu sync.RWMutex

	wd      data.Path
	handles map[int64]data.Path
	next    int64

	procs []procfs.Process
}

// New creates a table with the working directory set to the root.
// Descriptors start at 3, leaving the conventional stdio range free.
func New() *Table {
	return &Table{
		wd:      data.ParsePath("/"),
		handles: make(map[int64]data.Path),
		next:    3,
	}
}

// WorkingDirectory returns the current process working directory.
func (t *Table) WorkingDirectory() data.Path {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.wd
}

// SetWorkingDirectory replaces the current working directory.
func (t *Table) SetWorkingDirectory(p data.Path) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.wd = p
}

// HasHandle reports whether fd is a live descriptor.
func (t *Table) HasHandle(fd int64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	_, exists := t.handles[fd]
	return exists
}

// Handle returns the absolute path associated with fd. The zero Path is
// returned for unknown descriptors; callers check HasHandle first.
func (t *Table) Handle(fd int64) data.Path {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.handles[fd]
}

// RegisterHandle allocates a fresh descriptor for the given absolute path.
func (t *Table) RegisterHandle(p data.Path) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	fd := t.next
	t.next++
	t.handles[fd] = p

	return fd
}

// ReleaseHandle frees fd. Unknown descriptors are ignored.
func (t *Table) ReleaseHandle(fd int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.handles, fd)
}

// HandleCount returns the number of live descriptors.
func (t *Table) HandleCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.handles)
}

// RegisterProcess adds a process to the list served through procfs.
func (t *Table) RegisterProcess(pid uint64, name, state string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.procs = append(t.procs, procfs.Process{
		PID:   pid,
		Name:  name,
		State: state,
	})
}

// Processes returns a copy of the live process list.
func (t *Table) Processes() []procfs.Process {
	t.mu.RLock()
	defer t.mu.RUnlock()

	procs := make([]procfs.Process, len(t.procs))
	copy(procs, t.procs)

	return procs
}
