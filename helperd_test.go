package helperd_test

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"helperd"
	"helperd/config"
)

type nopRunner struct{}

func (nopRunner) Setup() error   { return nil }
func (nopRunner) Process() error { return nil }
func (nopRunner) Cleanup() error { return nil }

func newTestCommand(args ...string) (*cobra.Command, *bytes.Buffer) {
	cmd := helperd.NewCommand(nopRunner{}, helperd.Options{
		Name:        "example",
		Version:     "1.2.3",
		Description: "Example daemon",
	})
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	return cmd, out
}

func TestCommandRequiresConfigFlag(t *testing.T) {
	cmd, _ := newTestCommand()
	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected an error without --config")
	}
	if !strings.Contains(err.Error(), "config") {
		t.Fatalf("error should mention the missing flag, got %v", err)
	}
}

func TestCommandReportsVersion(t *testing.T) {
	cmd, out := newTestCommand("--version")
	if err := cmd.Execute(); err != nil {
		t.Fatalf("--version failed: %v", err)
	}
	if !strings.Contains(out.String(), "1.2.3") {
		t.Fatalf("version output missing version string, got %q", out.String())
	}
}

func TestInitConfigWritesLoadableSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "example.yaml")

	cmd, _ := newTestCommand("init-config", "--path", target)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("init-config failed: %v", err)
	}

	if _, err := config.Load(target); err != nil {
		t.Fatalf("generated sample must load cleanly: %v", err)
	}
}

func TestInitConfigRefusesToOverwrite(t *testing.T) {
	target := filepath.Join(t.TempDir(), "example.yaml")

	cmd, _ := newTestCommand("init-config", "--path", target)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("init-config failed: %v", err)
	}

	again, _ := newTestCommand("init-config", "--path", target)
	if err := again.Execute(); err == nil {
		t.Fatal("expected an error without --overwrite")
	}

	force, _ := newTestCommand("init-config", "--path", target, "--overwrite")
	if err := force.Execute(); err != nil {
		t.Fatalf("init-config --overwrite failed: %v", err)
	}
}
