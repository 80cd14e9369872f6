package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"sync"
)

type formatterSpec struct {
	timeFormat string
	addSource  bool
}

// Setup owns the handler tree built from an effective logging configuration.
// Loggers are not bound to a particular tree: every logger a Setup hands out
// routes through the tree current at the time each record is emitted, so an
// Update redirects all of them at once, including loggers derived with With.
type Setup struct {
	mu          sync.Mutex
	interactive bool
	effective   map[string]any
	root        slog.Handler
	named       map[string]slog.Handler
	closers     []io.Closer
}

// NewSetup builds a Setup from a merged logging configuration mapping (see
// config.MergeLogging). interactive reports whether the process is attached
// to a terminal; it controls debug_only handler stripping.
func NewSetup(merged map[string]any, interactive bool) (*Setup, error) {
	effective := StripDebugOnly(merged, interactive)
	root, named, closers, err := build(effective)
	if err != nil {
		return nil, err
	}
	return &Setup{
		interactive: interactive,
		effective:   effective,
		root:        root,
		named:       named,
		closers:     closers,
	}, nil
}

// Logger returns the root logger.
func (s *Setup) Logger() *slog.Logger {
	return slog.New(&routedHandler{setup: s})
}

// Named returns a logger for the given name, tagged with it as component.
// When the loggers section configures the name the logger follows that
// configuration; otherwise it follows the root, and it switches between the
// two if a reload adds or removes the entry.
func (s *Setup) Named(name string) *slog.Logger {
	logger := slog.New(&routedHandler{setup: s, name: name})
	return logger.With(String(FieldComponent, name))
}

// Update rebuilds the handler tree from a new merged configuration and
// redirects every handed-out logger to it. The old tree stays in effect when
// the new one fails to build. Returns whether anything changed.
func (s *Setup) Update(merged map[string]any, interactive bool) (bool, error) {
	effective := StripDebugOnly(merged, interactive)

	s.mu.Lock()
	defer s.mu.Unlock()
	if interactive == s.interactive && reflect.DeepEqual(effective, s.effective) {
		return false, nil
	}

	root, named, closers, err := build(effective)
	if err != nil {
		return false, err
	}
	old := s.closers
	s.interactive = interactive
	s.effective = effective
	s.root = root
	s.named = named
	s.closers = closers
	closeAll(old)
	return true, nil
}

// Close releases any file writers the handler tree opened. Loggers handed
// out earlier keep working but discard everything.
func (s *Setup) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	closeAll(s.closers)
	s.closers = nil
	s.root = NoopHandler{}
	s.named = nil
	return nil
}

func (s *Setup) handlerFor(name string) slog.Handler {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name != "" {
		if h, ok := s.named[name]; ok {
			return h
		}
	}
	return s.root
}

// routedHandler is the handler behind every logger a Setup hands out. It
// resolves the current tree on each call instead of capturing one, which is
// what lets a reload take effect for loggers created before it. Derivations
// made with With or WithGroup are replayed onto whichever tree is current.
type routedHandler struct {
	setup *Setup
	name  string
	wraps []func(slog.Handler) slog.Handler
}

func (h *routedHandler) resolve() slog.Handler {
	current := h.setup.handlerFor(h.name)
	for _, wrap := range h.wraps {
		current = wrap(current)
	}
	return current
}

func (h *routedHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.resolve().Enabled(ctx, level)
}

func (h *routedHandler) Handle(ctx context.Context, record slog.Record) error {
	return h.resolve().Handle(ctx, record)
}

func (h *routedHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	return h.derive(func(next slog.Handler) slog.Handler { return next.WithAttrs(attrs) })
}

func (h *routedHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.derive(func(next slog.Handler) slog.Handler { return next.WithGroup(name) })
}

func (h *routedHandler) derive(wrap func(slog.Handler) slog.Handler) slog.Handler {
	wraps := make([]func(slog.Handler) slog.Handler, 0, len(h.wraps)+1)
	wraps = append(wraps, h.wraps...)
	wraps = append(wraps, wrap)
	return &routedHandler{setup: h.setup, name: h.name, wraps: wraps}
}

func closeAll(closers []io.Closer) {
	for _, closer := range closers {
		_ = closer.Close()
	}
}

func build(cfg map[string]any) (slog.Handler, map[string]slog.Handler, []io.Closer, error) {
	formatters, err := buildFormatters(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	handlers, closers, err := buildHandlers(cfg, formatters)
	if err != nil {
		closeAll(closers)
		return nil, nil, nil, err
	}

	fail := func(err error) (slog.Handler, map[string]slog.Handler, []io.Closer, error) {
		closeAll(closers)
		return nil, nil, nil, err
	}

	rootSection, _ := cfg[keyRoot].(map[string]any)
	root, err := resolveSection("root", rootSection, handlers)
	if err != nil {
		return fail(err)
	}

	named := map[string]slog.Handler{}
	if loggers, ok := cfg[keyLoggers].(map[string]any); ok {
		for name, raw := range loggers {
			section, ok := raw.(map[string]any)
			if !ok {
				return fail(fmt.Errorf("logging: logger %q must be a mapping", name))
			}
			handler, err := resolveSection(name, section, handlers)
			if err != nil {
				return fail(err)
			}
			named[name] = handler
		}
	}

	return root, named, closers, nil
}

func buildFormatters(cfg map[string]any) (map[string]formatterSpec, error) {
	specs := map[string]formatterSpec{}
	raw, ok := cfg["formatters"].(map[string]any)
	if !ok {
		return specs, nil
	}
	for name, value := range raw {
		section, ok := value.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("logging: formatter %q must be a mapping", name)
		}
		spec := formatterSpec{}
		if v, ok := section["time_format"].(string); ok {
			spec.timeFormat = v
		}
		if v, ok := section["add_source"].(bool); ok {
			spec.addSource = v
		}
		specs[name] = spec
	}
	return specs, nil
}

func buildHandlers(cfg map[string]any, formatters map[string]formatterSpec) (map[string]slog.Handler, []io.Closer, error) {
	built := map[string]slog.Handler{}
	var closers []io.Closer

	raw, ok := cfg[keyHandlers].(map[string]any)
	if !ok {
		return built, nil, nil
	}
	for name, value := range raw {
		section, ok := value.(map[string]any)
		if !ok {
			return nil, closers, fmt.Errorf("logging: handler %q must be a mapping", name)
		}

		level := slog.LevelInfo
		if v, ok := section["level"].(string); ok {
			parsed, err := parseLevel(v)
			if err != nil {
				return nil, closers, fmt.Errorf("logging: handler %q: %w", name, err)
			}
			level = parsed
		}

		format := formatterSpec{}
		if ref, ok := section["formatter"].(string); ok && ref != "" {
			spec, exists := formatters[ref]
			if !exists {
				return nil, closers, fmt.Errorf("logging: handler %q references unknown formatter %q", name, ref)
			}
			format = spec
		}

		kind, _ := section["type"].(string)
		switch kind {
		case "console", "":
			built[name] = newConsoleHandler(os.Stdout, level, format)
		case "json":
			built[name] = newJSONHandler(os.Stdout, level, format.addSource)
		case "file":
			path, _ := section["path"].(string)
			if path == "" {
				return nil, closers, fmt.Errorf("logging: handler %q: file handlers require a path", name)
			}
			if dir := filepath.Dir(path); dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, closers, fmt.Errorf("logging: handler %q: %w", name, err)
				}
			}
			file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
			if err != nil {
				return nil, closers, fmt.Errorf("logging: handler %q: %w", name, err)
			}
			closers = append(closers, file)
			built[name] = newJSONHandler(file, level, format.addSource)
		default:
			return nil, closers, fmt.Errorf("logging: handler %q has unsupported type %q", name, kind)
		}
	}
	return built, closers, nil
}

func resolveSection(name string, section map[string]any, handlers map[string]slog.Handler) (slog.Handler, error) {
	if section == nil {
		return NoopHandler{}, nil
	}

	var refs []any
	if raw, ok := section[keyHandlers].([]any); ok {
		refs = raw
	}
	resolved := make([]slog.Handler, 0, len(refs))
	for _, ref := range refs {
		handlerName, ok := ref.(string)
		if !ok {
			return nil, fmt.Errorf("logging: logger %q has a non-string handler reference", name)
		}
		handler, exists := handlers[handlerName]
		if !exists {
			return nil, fmt.Errorf("logging: logger %q references unknown handler %q", name, handlerName)
		}
		resolved = append(resolved, handler)
	}

	combined := combineHandlers(resolved)
	if v, ok := section["level"].(string); ok {
		level, err := parseLevel(v)
		if err != nil {
			return nil, fmt.Errorf("logging: logger %q: %w", name, err)
		}
		combined = minLevelHandler{level: level, next: combined}
	}
	return combined, nil
}
