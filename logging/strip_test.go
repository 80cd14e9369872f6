package logging_test

import (
	"path/filepath"
	"testing"

	"helperd/config"
	"helperd/logging"
)

func debugOnlyConfig() map[string]any {
	return map[string]any{
		"handlers": map[string]any{
			"console": map[string]any{
				"type":       "console",
				"debug_only": true,
			},
			"file": map[string]any{
				"type": "file",
				"path": "/tmp/app.log",
			},
		},
		"loggers": map[string]any{
			"app": map[string]any{
				"handlers": []any{"console", "file"},
				"level":    "info",
			},
		},
		"root": map[string]any{
			"handlers": []any{"console"},
		},
	}
}

func TestStripAlwaysRemovesMarker(t *testing.T) {
	stripped := logging.StripDebugOnly(debugOnlyConfig(), true)
	console := stripped["handlers"].(map[string]any)["console"].(map[string]any)
	if _, present := console["debug_only"]; present {
		t.Fatal("debug_only marker must never reach handler construction")
	}
}

func TestStripInteractiveKeepsHandler(t *testing.T) {
	stripped := logging.StripDebugOnly(debugOnlyConfig(), true)
	if _, ok := stripped["handlers"].(map[string]any)["console"]; !ok {
		t.Fatal("interactive runs keep debug_only handlers")
	}
}

func TestStripNonInteractiveRemovesHandlerAndReferences(t *testing.T) {
	stripped := logging.StripDebugOnly(debugOnlyConfig(), false)

	handlers := stripped["handlers"].(map[string]any)
	if _, ok := handlers["console"]; ok {
		t.Fatal("debug_only handler must be removed when not interactive")
	}
	if _, ok := handlers["file"]; !ok {
		t.Fatal("unrelated handlers must survive")
	}

	app := stripped["loggers"].(map[string]any)["app"].(map[string]any)
	refs := app["handlers"].([]any)
	if len(refs) != 1 || refs[0] != "file" {
		t.Fatalf("logger must lose only the removed reference, got %v", refs)
	}

	root := stripped["root"].(map[string]any)
	if got := root["handlers"].([]any); len(got) != 0 {
		t.Fatalf("root must lose the removed reference, got %v", got)
	}
}

func TestStripResultStillBuilds(t *testing.T) {
	cfg := debugOnlyConfig()
	cfg["handlers"].(map[string]any)["file"].(map[string]any)["path"] = filepath.Join(t.TempDir(), "app.log")
	setup, err := logging.NewSetup(config.MergeLogging(cfg), false)
	if err != nil {
		t.Fatalf("stripped config must still build a setup: %v", err)
	}
	defer setup.Close()
}

func TestStripDoesNotMutateInput(t *testing.T) {
	input := debugOnlyConfig()
	logging.StripDebugOnly(input, false)

	console := input["handlers"].(map[string]any)["console"].(map[string]any)
	if console["debug_only"] != true {
		t.Fatal("input mapping must stay untouched")
	}
}
