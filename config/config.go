package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed sample_config.yaml
var sampleConfig string

// Section names required at the top level of every configuration file.
const (
	SectionApplication = "Application"
	SectionDaemon      = "Daemon"
	SectionLogging     = "Logging"
)

// Error describes a configuration document that could not be loaded or
// reloaded. The previous configuration, if any, remains in effect.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Daemon holds the daemonization settings from the Daemon section.
type Daemon struct {
	User        string
	Group       string
	Pidfile     string
	PreventCore bool
}

// Snapshot is one fully parsed configuration document. Snapshots are
// immutable; a reload produces a new one.
type Snapshot struct {
	Application map[string]any
	Daemon      Daemon
	Logging     map[string]any
}

// Store owns the current configuration Snapshot and knows how to rebuild it
// from disk. Readers always observe either the fully old or fully new
// document, never a partial merge.
type Store struct {
	path    string
	current atomic.Pointer[Snapshot]
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Store, error) {
	expanded, err := expandPath(path)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	snap, err := loadFile(expanded)
	if err != nil {
		return nil, err
	}
	s := &Store{path: expanded}
	s.current.Store(snap)
	return s, nil
}

// Parse builds a Store from an in-memory YAML document. The resulting store
// has no backing file, so Reload is a no-op.
func Parse(data []byte) (*Store, error) {
	snap, err := parseDocument(data)
	if err != nil {
		return nil, &Error{Err: err}
	}
	s := &Store{}
	s.current.Store(snap)
	return s, nil
}

// Path returns the resolved configuration file path, or "" for a store built
// with Parse.
func (s *Store) Path() string { return s.path }

// Snapshot returns the current configuration document.
func (s *Store) Snapshot() *Snapshot { return s.current.Load() }

// Reload re-reads the backing file. On any failure the previous snapshot
// stays authoritative and the error is reported. The returned bool indicates
// whether the document actually changed.
func (s *Store) Reload() (bool, error) {
	if s.path == "" {
		return false, nil
	}
	snap, err := loadFile(s.path)
	if err != nil {
		return false, err
	}
	if reflect.DeepEqual(snap, s.current.Load()) {
		return false, nil
	}
	s.current.Store(snap)
	return true, nil
}

// Get looks up a dotted key under the Application section, returning def when
// any path element is absent. It never fails for missing keys.
func (s *Store) Get(key string, def any) any {
	value := any(s.Snapshot().Application)
	for _, part := range strings.Split(key, ".") {
		section, ok := value.(map[string]any)
		if !ok {
			return def
		}
		value, ok = section[part]
		if !ok {
			return def
		}
	}
	return value
}

// WakeInterval returns the configured delay between process invocations.
// Parsing guarantees the value is a positive number, so the fallback only
// covers snapshots built elsewhere.
func (s *Store) WakeInterval() time.Duration {
	seconds, ok := intValue(s.Snapshot().Application["wake_interval"])
	if !ok || seconds <= 0 {
		seconds = DefaultWakeIntervalSeconds
	}
	return time.Duration(seconds) * time.Second
}

func loadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	snap, err := parseDocument(data)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	return snap, nil
}

func parseDocument(data []byte) (*Snapshot, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}

	snap := &Snapshot{}
	for _, section := range []string{SectionApplication, SectionDaemon, SectionLogging} {
		raw, err := requireSection(doc, section)
		if err != nil {
			return nil, err
		}
		switch section {
		case SectionApplication:
			snap.Application = withApplicationDefaults(raw)
		case SectionDaemon:
			daemon, err := decodeDaemon(raw)
			if err != nil {
				return nil, err
			}
			snap.Daemon = daemon
		case SectionLogging:
			snap.Logging = raw
		}
	}

	if seconds, ok := intValue(snap.Application["wake_interval"]); !ok || seconds <= 0 {
		return nil, fmt.Errorf("Application.wake_interval must be a positive number of seconds")
	}
	return snap, nil
}

func requireSection(doc map[string]any, name string) (map[string]any, error) {
	raw, ok := doc[name]
	if !ok {
		// Accept the lowercase spelling some deployments use.
		raw, ok = doc[strings.ToLower(name)]
	}
	if !ok {
		return nil, fmt.Errorf("missing required section %q", name)
	}
	if raw == nil {
		return map[string]any{}, nil
	}
	section, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("section %q must be a mapping", name)
	}
	return section, nil
}

func decodeDaemon(section map[string]any) (Daemon, error) {
	d := Daemon{PreventCore: true}
	var ok bool
	if raw, exists := section["user"]; exists && raw != nil {
		if d.User, ok = raw.(string); !ok {
			return d, fmt.Errorf("Daemon.user must be a string")
		}
	}
	if raw, exists := section["group"]; exists && raw != nil {
		if d.Group, ok = raw.(string); !ok {
			return d, fmt.Errorf("Daemon.group must be a string")
		}
	}
	if raw, exists := section["pidfile"]; exists && raw != nil {
		if d.Pidfile, ok = raw.(string); !ok {
			return d, fmt.Errorf("Daemon.pidfile must be a string")
		}
		expanded, err := expandPath(d.Pidfile)
		if err != nil {
			return d, fmt.Errorf("Daemon.pidfile: %w", err)
		}
		d.Pidfile = expanded
	}
	if raw, exists := section["prevent_core"]; exists && raw != nil {
		if d.PreventCore, ok = raw.(bool); !ok {
			return d, fmt.Errorf("Daemon.prevent_core must be a boolean")
		}
	}
	return d, nil
}

func withApplicationDefaults(section map[string]any) map[string]any {
	merged := cloneMap(defaultApplication())
	for key, value := range section {
		merged[key] = value
	}
	return merged
}

func intValue(raw any) (int, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes an annotated sample configuration file to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
