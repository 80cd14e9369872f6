package daemon

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"

	"helperd/config"
	"helperd/logging"
)

// ErrAlreadyRunning indicates another process holds the instance lock.
var ErrAlreadyRunning = errors.New("another instance is already running")

// Options configures how the process is daemonized.
type Options struct {
	// Name identifies the application; it names the default lock file.
	Name string
	// Pidfile receives the process id. Empty disables pid file handling.
	Pidfile string
	// User and Group name the identity to drop privileges to. Both empty
	// leaves the current identity untouched.
	User  string
	Group string
	// PreventCore disables core dump generation before privileges drop.
	PreventCore bool
}

// FromConfig builds Options from the Daemon configuration section.
func FromConfig(name string, d config.Daemon) Options {
	return Options{
		Name:        name,
		Pidfile:     d.Pidfile,
		User:        d.User,
		Group:       d.Group,
		PreventCore: d.PreventCore,
	}
}

// Daemon owns the instance lock and pid file for a running service.
type Daemon struct {
	opts   Options
	logger *slog.Logger

	lockPath string
	lock     *flock.Flock
	pidPath  string

	active atomic.Bool
}

// New prepares a Daemon. Nothing touches the filesystem until Start.
func New(opts Options, logger *slog.Logger) *Daemon {
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := lockPathFor(opts)
	return &Daemon{
		opts:     opts,
		logger:   logger,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
		pidPath:  opts.Pidfile,
	}
}

// LockPath returns the path of the instance lock file.
func (d *Daemon) LockPath() string { return d.lockPath }

// Start acquires the instance lock, writes the pid file, and applies the
// process-level settings (core dump limit, privilege drop).
func (d *Daemon) Start() error {
	if d.active.Load() {
		return errors.New("daemon already started")
	}

	if dir := filepath.Dir(d.lockPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create lock directory: %w", err)
		}
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", d.lockPath, err)
	}
	if !ok {
		return fmt.Errorf("lock %s held: %w", d.lockPath, ErrAlreadyRunning)
	}

	if err := d.writePIDFile(); err != nil {
		_ = d.lock.Unlock()
		return err
	}

	if d.opts.PreventCore {
		if err := disableCoreDumps(); err != nil {
			d.logger.Warn("unable to disable core dumps", logging.Error(err))
		}
	}

	identity, requested, err := ResolveIdentity(d.opts.User, d.opts.Group)
	if err != nil {
		d.releaseFiles()
		return err
	}
	if requested {
		if err := applyIdentity(identity); err != nil {
			d.releaseFiles()
			return fmt.Errorf("drop privileges to %s: %w", identity, err)
		}
		d.logger.Info("dropped privileges",
			logging.Int("uid", identity.UID),
			logging.Int("gid", identity.GID))
	}

	d.active.Store(true)
	d.logger.Info("daemon resources acquired", logging.String("lock", d.lockPath))
	return nil
}

// Stop removes the pid file and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.active.Load() {
		return
	}
	d.releaseFiles()
	d.active.Store(false)
	d.logger.Info("daemon resources released")
}

func (d *Daemon) releaseFiles() {
	if d.pidPath != "" {
		if err := os.Remove(d.pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			d.logger.Warn("unable to remove pid file", logging.Error(err))
		}
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("unable to release lock", logging.Error(err))
	}
}

func (d *Daemon) writePIDFile() error {
	if d.pidPath == "" {
		return nil
	}
	if dir := filepath.Dir(d.pidPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create pid directory: %w", err)
		}
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	if err := os.WriteFile(d.pidPath, []byte(value), 0o644); err != nil {
		return fmt.Errorf("write pid file %s: %w", d.pidPath, err)
	}
	return nil
}

func lockPathFor(opts Options) string {
	if opts.Pidfile != "" {
		base := strings.TrimSuffix(filepath.Base(opts.Pidfile), filepath.Ext(opts.Pidfile))
		return filepath.Join(filepath.Dir(opts.Pidfile), base+".lock")
	}
	name := opts.Name
	if name == "" {
		name = filepath.Base(os.Args[0])
	}
	return filepath.Join(os.TempDir(), name+".lock")
}
