//go:build !unix

package daemon

import (
	"fmt"
	"os"
	"runtime"

	"github.com/jcdickinson/rundaemon/internal/config"
)

var errNotSupported = fmt.Errorf("daemon mode is not supported on the %s platform", runtime.GOOS)

// Host reports every operation as unsupported outside unix.
type Host struct{}

var _ System = Host{}

func (Host) Spawn(Stage, *config.Config) error { return errNotSupported }
func (Host) Setsid() error                     { return errNotSupported }
func (Host) Getpid() int                       { return os.Getpid() }
func (Host) Getsid() (int, error)              { return 0, errNotSupported }
func (Host) Chdir(string) error                { return errNotSupported }
func (Host) DupStderr() (*os.File, error)      { return nil, errNotSupported }
func (Host) OpenNull() (*os.File, error)       { return nil, errNotSupported }
func (Host) Redirect(*os.File) error           { return errNotSupported }
func (Host) Exec([]string) error               { return errNotSupported }
