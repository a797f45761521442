// Package procfs exposes scheduler state as a read-only synthetic
// filesystem: one directory per live process plus a global uptime file.
// File contents are computed on every read, never stored.
package procfs

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/valeos/vfs/data"
)

// Process describes one live process as reported by the provider.
type Process struct {
	PID   uint64
	Name  string
	State string
}

// Provider is the view of the scheduler procfs reads from.
type Provider interface {
	Processes() []Process
}

// Clock supplies the current time. Injecting one makes uptime
// deterministic under test; a nil clock falls back to the system time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// FileSystem is the procfs backend.
//
// Layout:
//
//	uptime          seconds since boot
//	<pid>/name      process name
//	<pid>/status    scheduler state
type FileSystem struct {
	mountPoint string
	provider   Provider
	clock      Clock
	booted     time.Time
}

func New(mountPoint string, provider Provider, clock Clock) *FileSystem {
	if clock == nil {
		clock = systemClock{}
	}

	return &FileSystem{
		mountPoint: mountPoint,
		provider:   provider,
		clock:      clock,
		booted:     clock.Now(),
	}
}

func (f *FileSystem) Init(ctx context.Context) error {
	return nil
}

func (f *FileSystem) StatFs(ctx context.Context, info *data.StatFsInfo) error {
	var total uint64
	for _, proc := range f.provider.Processes() {
		total += uint64(len(proc.Name) + len(proc.State) + 2)
	}

	info.TotalSize = total + uint64(len(f.uptime()))
	info.FreeSize = 0

	return nil
}

func (f *FileSystem) GetFile(ctx context.Context, p data.Path) (*data.FileMetadata, error) {
	booted := uint64(f.booted.Unix())

	switch p.Len() {
	case 0:
		return &data.FileMetadata{
			Directory: true,
			Created:   booted,
			Modified:  booted,
			Accessed:  booted,
		}, nil

	case 1:
		if p.Segment(0) == "uptime" {
			return f.fileMetadata("uptime", f.uptime()), nil
		}

		if _, err := f.process(p.Segment(0)); err != nil {
			return nil, err
		}

		return &data.FileMetadata{
			Name:      p.Segment(0),
			Directory: true,
			Created:   booted,
			Modified:  booted,
			Accessed:  booted,
		}, nil

	case 2:
		content, err := f.processFile(p.Segment(0), p.Segment(1))
		if err != nil {
			return nil, err
		}
		return f.fileMetadata(p.Segment(1), content), nil

	default:
		return nil, data.ErrNotExists
	}
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
	var content string

	switch p.Len() {
	case 0:
		return 0, data.ErrIsDirectory
	case 1:
		if p.Segment(0) != "uptime" {
			if _, err := f.process(p.Segment(0)); err != nil {
				return 0, err
			}
			return 0, data.ErrIsDirectory
		}
		content = f.uptime()
	case 2:
		var err error
		content, err = f.processFile(p.Segment(0), p.Segment(1))
		if err != nil {
			return 0, err
		}
	default:
		return 0, data.ErrNotExists
	}

	if offset >= uint64(len(content)) {
		return 0, nil
	}

	return copy(buf, content[offset:]), nil
}

func (f *FileSystem) Write(ctx context.Context, p data.Path, buf []byte, offset uint64) (int, error) {
	return 0, data.ErrUnsupported
}

func (f *FileSystem) Clear(ctx context.Context, p data.Path, count, offset uint64) (int, error) {
	return 0, data.ErrUnsupported
}

func (f *FileSystem) Truncate(ctx context.Context, p data.Path, size uint64) error {
	return data.ErrUnsupported
}

func (f *FileSystem) ReadDir(ctx context.Context, p data.Path) ([]data.FileMetadata, error) {
	booted := uint64(f.booted.Unix())

	switch p.Len() {
	case 0:
		procs := f.provider.Processes()
		sort.Slice(procs, func(i, j int) bool {
			return procs[i].PID < procs[j].PID
		})

		files := make([]data.FileMetadata, 0, len(procs)+1)
		files = append(files, *f.fileMetadata("uptime", f.uptime()))
		for _, proc := range procs {
			files = append(files, data.FileMetadata{
				Name:      strconv.FormatUint(proc.PID, 10),
				Directory: true,
				Created:   booted,
				Modified:  booted,
				Accessed:  booted,
			})
		}

		return files, nil

	case 1:
		if p.Segment(0) == "uptime" {
			return nil, data.ErrNotDirectory
		}

		proc, err := f.process(p.Segment(0))
		if err != nil {
			return nil, err
		}

		return []data.FileMetadata{
			*f.fileMetadata("name", proc.Name+"\n"),
			*f.fileMetadata("status", proc.State+"\n"),
		}, nil

	default:
		if _, err := f.processFile(p.Segment(0), p.Segment(1)); err != nil {
			return nil, err
		}
		return nil, data.ErrNotDirectory
	}
}

func (f *FileSystem) uptime() string {
	return fmt.Sprintf("%d\n", uint64(f.clock.Now().Sub(f.booted).Seconds()))
}

func (f *FileSystem) process(segment string) (*Process, error) {
	pid, err := strconv.ParseUint(segment, 10, 64)
	if err != nil {
		return nil, data.ErrNotExists
	}

	for _, proc := range f.provider.Processes() {
		if proc.PID == pid {
			return &proc, nil
		}
	}

	return nil, data.ErrNotExists
}

func (f *FileSystem) processFile(pidSegment, name string) (string, error) {
	proc, err := f.process(pidSegment)
	if err != nil {
		return "", err
	}

	switch name {
	case "name":
		return proc.Name + "\n", nil
	case "status":
		return proc.State + "\n", nil
	default:
		return "", data.ErrNotExists
	}
}

func (f *FileSystem) fileMetadata(name, content string) *data.FileMetadata {
	booted := uint64(f.booted.Unix())

	return &data.FileMetadata{
		Name:     name,
		Size:     uint64(len(content)),
		Created:  booted,
		Modified: booted,
		Accessed: booted,
	}
}
