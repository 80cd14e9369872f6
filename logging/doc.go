// Package logging assembles structured slog loggers from a merged Logging
// configuration mapping.
//
// It owns the console, JSON, and file handlers, the fanout and per-logger
// level plumbing, and the debug_only stripping that keeps terminal-bound
// handlers out of daemonized processes. A Setup value is constructed once at
// startup, swapped on reload, and torn down on restart so there is no
// process-global configuration state.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits records with the same shape and routing.
package logging
