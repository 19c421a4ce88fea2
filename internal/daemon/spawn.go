package daemon

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/jcdickinson/rundaemon/internal/config"
)

// Spawn starts the next stage as a child process running the same binary.
// The child shares our standard streams, environment and any other
// inheritable descriptors, and is released immediately: the caller is
// expected to exit without waiting for it.
func Spawn(stage Stage, cfg *config.Config) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("finding executable path: %w", err)
	}

	args := append([]string{"--stage=" + string(stage)}, cfg.Args()...)
	cmd := exec.Command(exe, args...)
	cmd.Args[0] = stage.Argv0()
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return err
	}

	// Detach — don't wait for the child
	cmd.Process.Release()
	return nil
}
