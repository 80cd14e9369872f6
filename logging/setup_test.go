package logging_test

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"helperd/config"
	"helperd/logging"
)

func fileConfig(path string) map[string]any {
	return map[string]any{
		"handlers": map[string]any{
			"file": map[string]any{
				"type":  "file",
				"path":  path,
				"level": "debug",
			},
		},
		"loggers": map[string]any{
			"app": map[string]any{
				"handlers": []any{"file"},
				"level":    "warn",
			},
		},
		"root": map[string]any{
			"handlers": []any{"file"},
			"level":    "info",
		},
	}
}

func readRecords(t *testing.T, path string) []map[string]any {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log file: %v", err)
	}
	defer file.Close()

	var records []map[string]any
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var record map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			t.Fatalf("parse log line %q: %v", scanner.Text(), err)
		}
		records = append(records, record)
	}
	return records
}

func TestSetupWritesToFileHandler(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "helperd.log")
	setup, err := logging.NewSetup(config.MergeLogging(fileConfig(logPath)), false)
	if err != nil {
		t.Fatalf("NewSetup returned error: %v", err)
	}
	defer setup.Close()

	setup.Logger().Info("hello", logging.String("key", "value"))
	setup.Logger().Debug("suppressed by root level")

	records := readRecords(t, logPath)
	if len(records) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(records))
	}
	if records[0]["msg"] != "hello" {
		t.Fatalf("unexpected message: %v", records[0]["msg"])
	}
	if records[0]["key"] != "value" {
		t.Fatalf("unexpected attr: %v", records[0]["key"])
	}
}

func TestNamedLoggerLevelOverride(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "helperd.log")
	setup, err := logging.NewSetup(config.MergeLogging(fileConfig(logPath)), false)
	if err != nil {
		t.Fatalf("NewSetup returned error: %v", err)
	}
	defer setup.Close()

	app := setup.Named("app")
	app.Info("filtered by logger level")
	app.Warn("emitted")

	records := readRecords(t, logPath)
	if len(records) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(records))
	}
	if records[0]["component"] != "app" {
		t.Fatalf("named logger must carry its component attr: %v", records[0])
	}
}

func TestNamedFallsBackToRoot(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "helperd.log")
	setup, err := logging.NewSetup(config.MergeLogging(fileConfig(logPath)), false)
	if err != nil {
		t.Fatalf("NewSetup returned error: %v", err)
	}
	defer setup.Close()

	setup.Named("unconfigured").Info("via root")
	records := readRecords(t, logPath)
	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}
	if records[0]["component"] != "unconfigured" {
		t.Fatalf("fallback logger must tag its component: %v", records[0])
	}
}

func TestDanglingHandlerReferenceFailsToBuild(t *testing.T) {
	cfg := config.MergeLogging(map[string]any{
		"root": map[string]any{
			"handlers": []any{"nope"},
		},
	})
	if _, err := logging.NewSetup(cfg, true); err == nil {
		t.Fatal("expected dangling reference error")
	}
}

func TestUpdateSwapsHandlers(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.log")
	second := filepath.Join(dir, "second.log")

	setup, err := logging.NewSetup(config.MergeLogging(fileConfig(first)), false)
	if err != nil {
		t.Fatalf("NewSetup returned error: %v", err)
	}
	defer setup.Close()

	changed, err := setup.Update(config.MergeLogging(fileConfig(second)), false)
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if !changed {
		t.Fatal("expected update to report a change")
	}

	setup.Logger().Info("after update")
	if records := readRecords(t, second); len(records) != 1 {
		t.Fatalf("expected record in new file, got %d", len(records))
	}
	if records := readRecords(t, first); len(records) != 0 {
		t.Fatalf("old file must not receive new records, got %d", len(records))
	}
}

func TestHeldLoggerFollowsUpdate(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.log")
	second := filepath.Join(dir, "second.log")

	setup, err := logging.NewSetup(config.MergeLogging(fileConfig(first)), false)
	if err != nil {
		t.Fatalf("NewSetup returned error: %v", err)
	}
	defer setup.Close()

	// Both loggers are created before the update and must follow it.
	root := setup.Logger()
	tagged := root.With(logging.String(logging.FieldRunID, "r1"))
	root.Info("before")

	changed, err := setup.Update(config.MergeLogging(fileConfig(second)), false)
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if !changed {
		t.Fatal("expected update to report a change")
	}

	root.Info("after")
	tagged.Info("after tagged")

	if records := readRecords(t, first); len(records) != 1 || records[0]["msg"] != "before" {
		t.Fatalf("old file must hold only the pre-update record, got %v", records)
	}
	records := readRecords(t, second)
	if len(records) != 2 {
		t.Fatalf("records emitted after the update must land in the new file, got %d", len(records))
	}
	if records[0]["msg"] != "after" {
		t.Fatalf("unexpected first post-update record: %v", records[0])
	}
	if records[1]["msg"] != "after tagged" || records[1]["run_id"] != "r1" {
		t.Fatalf("derived logger must keep its attrs across the update: %v", records[1])
	}
}

func TestHeldNamedLoggerFollowsUpdate(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.log")
	second := filepath.Join(dir, "second.log")

	setup, err := logging.NewSetup(config.MergeLogging(fileConfig(first)), false)
	if err != nil {
		t.Fatalf("NewSetup returned error: %v", err)
	}
	defer setup.Close()

	app := setup.Named("app")
	if _, err := setup.Update(config.MergeLogging(fileConfig(second)), false); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	app.Warn("after update")

	records := readRecords(t, second)
	if len(records) != 1 {
		t.Fatalf("expected the record in the new file, got %d", len(records))
	}
	if records[0]["component"] != "app" {
		t.Fatalf("named logger must keep its component across the update: %v", records[0])
	}
}

func TestUpdateUnchangedConfigIsNoop(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "helperd.log")
	cfg := config.MergeLogging(fileConfig(logPath))
	setup, err := logging.NewSetup(cfg, false)
	if err != nil {
		t.Fatalf("NewSetup returned error: %v", err)
	}
	defer setup.Close()

	changed, err := setup.Update(config.MergeLogging(fileConfig(logPath)), false)
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if changed {
		t.Fatal("identical config must not report a change")
	}
}

func TestUpdateFailureKeepsOldTree(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "helperd.log")
	setup, err := logging.NewSetup(config.MergeLogging(fileConfig(logPath)), false)
	if err != nil {
		t.Fatalf("NewSetup returned error: %v", err)
	}
	defer setup.Close()

	broken := config.MergeLogging(map[string]any{
		"root": map[string]any{"handlers": []any{"missing"}},
	})
	if _, err := setup.Update(broken, false); err == nil {
		t.Fatal("expected update failure")
	}

	setup.Logger().Info("still routed to the old tree")
	if records := readRecords(t, logPath); len(records) != 1 {
		t.Fatalf("old tree must stay in effect, got %d records", len(records))
	}
}
