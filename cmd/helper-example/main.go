// Command helper-example is a minimal daemon built on the helperd runtime.
// It counts wake intervals and logs a configurable greeting, exercising
// configuration access, reload notification, and the USR2 hook.
package main

import (
	"log/slog"
	"os"

	"helperd"
	"helperd/config"
	"helperd/lifecycle"
	"helperd/logging"
)

const version = "1.0.0"

type app struct {
	cfg       *config.Store
	logger    *slog.Logger
	processed int
}

var _ lifecycle.Runner = (*app)(nil)

func (a *app) Bind(cfg *config.Store, logger *slog.Logger) {
	a.cfg = cfg
	a.logger = logger
}

func (a *app) Setup() error {
	a.logger.Info("example starting",
		logging.Any("greeting", a.cfg.Get("greeting", "hello")))
	return nil
}

func (a *app) Process() error {
	a.processed++
	a.logger.Info("processing", logging.Int("iteration", a.processed))
	return nil
}

func (a *app) Cleanup() error {
	a.logger.Info("example stopping", logging.Int("iterations", a.processed))
	return nil
}

func (a *app) HandleUsr2() {
	a.logger.Info("received USR2", logging.Int("iterations", a.processed))
}

func (a *app) ConfigurationReloaded() {
	a.logger.Info("greeting refreshed",
		logging.Any("greeting", a.cfg.Get("greeting", "hello")))
}

func main() {
	os.Exit(helperd.Run(&app{}, helperd.Options{
		Name:        "helper-example",
		Version:     version,
		Description: "Example daemon built on the helperd runtime",
	}))
}
