package lifecycle

import (
	"log/slog"

	"helperd/config"
)

// Runner is the application surface the Controller drives. Setup runs once
// before the loop (and again after a restart), Process runs on every wake
// interval, and Cleanup runs during shutdown. Process and Cleanup are never
// invoked concurrently with themselves or each other.
type Runner interface {
	Setup() error
	Process() error
	Cleanup() error
}

// Binder is implemented by runners that need the configuration store and
// logger the controller was built with. Bind runs before every Setup,
// including the one after a restart.
type Binder interface {
	Bind(cfg *config.Store, logger *slog.Logger)
}

// Usr2Handler is implemented by runners that want the USR2 signal. Without
// it, USR2 is logged and otherwise ignored.
type Usr2Handler interface {
	HandleUsr2()
}

// ReloadNotifier is implemented by runners that want a callback after the
// configuration has been reloaded successfully.
type ReloadNotifier interface {
	ConfigurationReloaded()
}
