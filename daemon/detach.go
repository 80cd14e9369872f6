package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// detachEnv marks the relaunched child so it does not detach again.
const detachEnv = "HELPERD_DETACHED"

// Detached reports whether this process is the relaunched background child.
func Detached() bool {
	return os.Getenv(detachEnv) == "1"
}

// Detach relaunches the current binary with the same arguments in a new
// session, disconnected from the terminal, and releases the child so it
// survives this process. The caller is expected to exit afterwards.
func Detach() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	cmd := exec.Command(exe, os.Args[1:]...)
	cmd.Env = append(os.Environ(), detachEnv+"=1")
	cmd.Dir = "/"
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch background process: %w", err)
	}
	return cmd.Process.Release()
}
