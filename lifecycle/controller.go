package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"helperd/config"
	"helperd/logging"
)

var errRestart = errors.New("restart requested")

type action uint8

const (
	actionNone action = iota
	actionStop
	actionRestart
)

// Controller owns the lifecycle state machine and the tick loop. A single
// goroutine, the one that calls Run, executes every hook; signal delivery is
// the only asynchronous input and arrives through the Router queue.
type Controller struct {
	runner      Runner
	cfg         *config.Store
	logs        *logging.Setup
	logger      *slog.Logger
	router      *Router
	interactive bool
	interval    time.Duration

	state    atomic.Int32
	stopFlag atomic.Bool
}

// Option configures optional Controller behavior.
type Option func(*Controller)

// WithWakeInterval overrides the configured wake interval. Zero keeps the
// configuration value.
func WithWakeInterval(d time.Duration) Option {
	return func(c *Controller) { c.interval = d }
}

// WithInteractive marks the process as attached to a terminal, which keeps
// debug_only logging handlers alive across reloads.
func WithInteractive(interactive bool) Option {
	return func(c *Controller) { c.interactive = interactive }
}

// New constructs a Controller in the initializing state. store and logs may
// be nil when the embedding application manages configuration and logging
// itself; reloads then become no-ops.
func New(runner Runner, store *config.Store, logs *logging.Setup, logger *slog.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = logging.NewNop()
	}
	c := &Controller{
		runner: runner,
		cfg:    store,
		logs:   logs,
		logger: logger,
		router: NewRouter(),
	}
	c.state.Store(int32(StateInitializing))
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Router exposes the signal queue so embedders can inject synthetic events,
// for example from a configuration file watcher.
func (c *Controller) Router() *Router { return c.router }

// State returns the current lifecycle state.
func (c *Controller) State() State { return State(c.state.Load()) }

// IsRunning reports whether the controller is initializing, idle, or active.
func (c *Controller) IsRunning() bool {
	switch c.State() {
	case StateInitializing, StateIdle, StateActive:
		return true
	}
	return false
}

// IsSleeping reports whether the controller is waiting out a wake interval.
func (c *Controller) IsSleeping() bool { return c.State() == StateSleeping }

// IsStopped reports whether the controller has fully stopped.
func (c *Controller) IsStopped() bool { return c.State() == StateStopped }

// IsWaitingToStop reports whether a stop has been requested but cleanup has
// not started yet.
func (c *Controller) IsWaitingToStop() bool { return c.State() == StateStopRequested }

// IsStopping reports whether a stop or restart has been requested. Process
// implementations can poll this to exit long-running work early.
func (c *Controller) IsStopping() bool { return c.stopFlag.Load() }

// Stop requests a graceful shutdown, equivalent to receiving SIGTERM. It
// takes effect at the next tick boundary.
func (c *Controller) Stop() { c.router.Inject(SignalTerm) }

// RequestReload requests an in-place configuration reload, equivalent to
// receiving SIGUSR1.
func (c *Controller) RequestReload() { c.router.Inject(SignalUsr1) }

// Run executes the lifecycle until a stop is requested or ctx is cancelled.
// A HUP-triggered restart tears the loop down through Cleanup, re-reads
// configuration and logging, and runs Setup again without returning.
func (c *Controller) Run(ctx context.Context) error {
	c.router.Start()
	defer c.router.Stop()

	for {
		err := c.runOnce(ctx)
		if errors.Is(err, errRestart) {
			c.restart()
			continue
		}
		return err
	}
}

func (c *Controller) runOnce(ctx context.Context) error {
	if binder, ok := c.runner.(Binder); ok {
		binder.Bind(c.cfg, c.logger)
	}
	if err := c.safeSetup(); err != nil {
		c.state.Store(int32(StateStopped))
		return &SetupError{Err: err}
	}
	c.setState(StateActive)

	next := time.Now()
	for {
		act := c.applySignals()
		if ctx.Err() != nil && act == actionNone {
			c.stopFlag.Store(true)
			act = actionStop
		}
		switch act {
		case actionStop:
			return c.shutdown(false)
		case actionRestart:
			return c.shutdown(true)
		}

		if !time.Now().Before(next) {
			c.setState(StateIdle)
			c.setState(StateActive)
			if err := c.safeProcess(); err != nil {
				perr := &ProcessError{Err: err}
				c.logger.Error("process hook failed; continuing with next tick", logging.Error(perr))
			}
			next = time.Now().Add(c.wakeInterval())
			c.setState(StateIdle)
		}

		c.setState(StateSleeping)
		c.sleepUntil(ctx, next)
	}
}

// applySignals drains the queue and applies every event in arrival order.
// Once a stop or restart is requested, later reload and USR2 events in the
// same batch are discarded: shutdown beats reload.
func (c *Controller) applySignals() action {
	result := actionNone
	for _, event := range c.router.Drain() {
		switch event.Signal {
		case SignalTerm:
			c.logger.Info("received TERM, initiating shutdown")
			c.stopFlag.Store(true)
			result = actionStop
		case SignalHup:
			c.logger.Info("received HUP, initiating restart")
			c.stopFlag.Store(true)
			if result != actionStop {
				result = actionRestart
			}
		case SignalUsr1:
			if c.stopFlag.Load() {
				c.logger.Debug("ignoring reload while shutting down")
				continue
			}
			c.reload()
		case SignalUsr2:
			if c.stopFlag.Load() {
				continue
			}
			if handler, ok := c.runner.(Usr2Handler); ok {
				handler.HandleUsr2()
			} else {
				c.logger.Info("received USR2")
			}
		}
	}
	return result
}

func (c *Controller) reload() {
	if c.cfg == nil {
		c.logger.Debug("reload requested but no configuration store is attached")
		return
	}
	changed, err := c.cfg.Reload()
	if err != nil {
		c.logger.Warn("configuration reload failed, previous configuration remains active", logging.Error(err))
		return
	}
	if !changed {
		c.logger.Info("configuration unchanged")
		return
	}
	c.applyLoggingConfig()
	if notifier, ok := c.runner.(ReloadNotifier); ok {
		notifier.ConfigurationReloaded()
	}
	c.logger.Info("configuration reloaded")
}

// restart runs between loop incarnations after a HUP shutdown: full config
// re-parse through the same path as a USR1 reload, then a fresh Setup.
func (c *Controller) restart() {
	c.logger.Info("restarting")
	if c.cfg != nil {
		if _, err := c.cfg.Reload(); err != nil {
			c.logger.Warn("configuration reload failed during restart, previous configuration remains active", logging.Error(err))
		} else {
			c.applyLoggingConfig()
		}
	}
	c.stopFlag.Store(false)
	c.state.Store(int32(StateInitializing))
}

func (c *Controller) applyLoggingConfig() {
	if c.logs == nil || c.cfg == nil {
		return
	}
	merged := config.MergeLogging(c.cfg.Snapshot().Logging)
	if _, err := c.logs.Update(merged, c.interactive); err != nil {
		c.logger.Warn("logging reconfiguration failed, previous handlers remain active", logging.Error(err))
	}
}

func (c *Controller) shutdown(restart bool) error {
	c.setState(StateStopRequested)
	c.setState(StateStopping)
	if err := c.safeCleanup(); err != nil {
		cerr := &CleanupError{Err: err}
		c.logger.Error("cleanup hook failed, shutdown continues", logging.Error(cerr))
	}
	c.setState(StateStopped)
	c.logger.Info("stopped")
	if restart {
		return errRestart
	}
	return nil
}

func (c *Controller) sleepUntil(ctx context.Context, next time.Time) {
	remaining := time.Until(next)
	if remaining <= 0 || c.router.hasPending() {
		return
	}

	// Clear a wake left over from an already-drained event, then re-check so
	// an Inject racing the clear is not lost.
	select {
	case <-c.router.wake:
	default:
	}
	if c.router.hasPending() {
		return
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-c.router.wake:
	case <-ctx.Done():
	}
}

func (c *Controller) wakeInterval() time.Duration {
	if c.interval > 0 {
		return c.interval
	}
	if c.cfg != nil {
		return c.cfg.WakeInterval()
	}
	return config.DefaultWakeIntervalSeconds * time.Second
}

func (c *Controller) setState(to State) {
	from := c.State()
	if from == to {
		return
	}
	if !validNext(from, to) {
		c.logger.Warn("rejected state transition",
			logging.String("from", from.String()),
			logging.String("to", to.String()))
		return
	}
	c.state.Store(int32(to))
	c.logger.Debug("state changed",
		logging.String("from", from.String()),
		logging.String("to", to.String()))
}

func (c *Controller) safeSetup() error {
	return c.invoke("setup", c.runner.Setup)
}

func (c *Controller) safeProcess() error {
	return c.invoke("process", c.runner.Process)
}

func (c *Controller) safeCleanup() error {
	return c.invoke("cleanup", c.runner.Cleanup)
}

// invoke converts a hook panic into an error so one bad iteration cannot
// take the daemon down.
func (c *Controller) invoke(name string, hook func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%s panicked: %v", name, rec)
		}
	}()
	return hook()
}
