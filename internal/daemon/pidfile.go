package daemon

import (
	"fmt"
	"os"
)

// WritePIDFile creates or truncates path and writes pid followed by a
// newline. The file is never removed by rundaemon.
func WritePIDFile(path string, pid int) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return &StepError{Step: StepPIDFile, Subject: path, Err: err}
	}
	if _, err := fmt.Fprintf(f, "%d\n", pid); err != nil {
		f.Close()
		return fmt.Errorf("writing PID file '%s': %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing PID file '%s': %w", path, err)
	}
	return nil
}
