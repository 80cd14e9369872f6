package config

import "time"

// DefaultWakeIntervalSeconds is used when Application.wake_interval is absent.
const DefaultWakeIntervalSeconds = 60

func defaultApplication() map[string]any {
	return map[string]any{
		"wake_interval": DefaultWakeIntervalSeconds,
	}
}

// DefaultLogging returns the built-in logging configuration that user
// supplied Logging sections are merged onto. The console handler is marked
// debug_only so it is active only when running attached to a terminal.
func DefaultLogging() map[string]any {
	return map[string]any{
		"formatters": map[string]any{
			"verbose": map[string]any{
				"time_format": time.RFC3339,
				"add_source":  false,
			},
		},
		"handlers": map[string]any{
			"console": map[string]any{
				"type":       "console",
				"level":      "debug",
				"formatter":  "verbose",
				"debug_only": true,
			},
		},
		"loggers": map[string]any{
			"helperd": map[string]any{
				"handlers": []any{"console"},
				"level":    "info",
			},
		},
		"root": map[string]any{
			"handlers": []any{"console"},
			"level":    "info",
		},
	}
}
