package vfs

import (
	"github.com/valeos/vfs/fs/procfs"
	"github.com/valeos/vfs/log"
)

// DefaultRootDevice is the partition the boot-time layout mounts at the
// global root. Embedders override it when the root lives elsewhere.
const DefaultRootDevice = "/dev/hda1"

type Options struct {
	Scheduler  Scheduler
	RootDevice string
	Clock      procfs.Clock

	Logger        *log.Logger
	LogLevel      log.LogLevel
	LogFile       string
	NoTerminalLog bool
}

type Option func(*Options) error

func newDefaultOptions() *Options {
	return &Options{
		RootDevice: DefaultRootDevice,
		LogLevel:   log.Info,
	}
}

// WithScheduler injects the scheduler the VFS consults for working
// directories and descriptors.
func WithScheduler(s Scheduler) Option {
	return func(opts *Options) error {
		opts.Scheduler = s
		return nil
	}
}

// WithRootDevice overrides the device mounted at the global root during
// Init.
func WithRootDevice(device string) Option {
	return func(opts *Options) error {
		opts.RootDevice = device
		return nil
	}
}

// WithClock injects the time source procfs computes uptime from. Without
// one the system clock is used.
func WithClock(clock procfs.Clock) Option {
	return func(opts *Options) error {
		opts.Clock = clock
		return nil
	}
}

// WithLogger injects a prepared logger, overriding the log options below.
func WithLogger(logger *log.Logger) Option {
	return func(opts *Options) error {
		opts.Logger = logger
		return nil
	}
}

func WithLogLevel(level log.LogLevel) Option {
	return func(opts *Options) error {
		opts.LogLevel = level
		return nil
	}
}

func WithLogFile(file string) Option {
	return func(opts *Options) error {
		opts.LogFile = file
		return nil
	}
}

func WithoutTerminalLog() Option {
	return func(opts *Options) error {
		opts.NoTerminalLog = true
		return nil
	}
}
