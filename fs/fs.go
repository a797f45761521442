// Package fs defines the capability contract every filesystem backend
// implements. The VFS core dispatches to backends exclusively through this
// interface and never inspects backend internals.
package fs

import (
	"context"

	"github.com/valeos/vfs/data"
)

// FileSystem is the uniform capability set of a mounted backend. All paths
// are backend-local: the owning mount's prefix has already been stripped,
// and an empty path denotes the mount's own root directory.
//
// Operations report failure through errors carrying a data.Errno;
// out-values are only valid on a nil error.
type FileSystem interface {
	// Init finishes backend initialization. It is called exactly once
	// after the mount has been registered.
	Init(ctx context.Context) error

	// StatFs fills info with filesystem-wide statistics.
	StatFs(ctx context.Context, info *data.StatFsInfo) error

	// GetFile returns metadata for the file or directory at p.
	// Returns data.ErrNotExists when the path is absent.
	GetFile(ctx context.Context, p data.Path) (*data.FileMetadata, error)

	// Touch creates an empty file at p.
	Touch(ctx context.Context, p data.Path) error

	// Mkdir creates a directory at p.
	Mkdir(ctx context.Context, p data.Path) error

	// Remove deletes the file or directory at p.
	Remove(ctx context.Context, p data.Path) error

	// Read copies file content starting at offset into buf and returns
	// the number of bytes read. A short read at end of file is success.
	Read(ctx context.Context, p data.Path, buf []byte, offset uint64) (int, error)

	// Write stores buf into the file starting at offset, growing the file
	// as needed, and returns the number of bytes written.
	Write(ctx context.Context, p data.Path, buf []byte, offset uint64) (int, error)

	// Clear zero-fills count bytes starting at offset and returns the
	// number of bytes cleared.
	Clear(ctx context.Context, p data.Path, count, offset uint64) (int, error)

	// Truncate extends or shrinks the file to size bytes.
	Truncate(ctx context.Context, p data.Path, size uint64) error

	// ReadDir lists the directory at p. Entry order is backend-defined.
	ReadDir(ctx context.Context, p data.Path) ([]data.FileMetadata, error)
}
