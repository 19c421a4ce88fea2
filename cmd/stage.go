package cmd

import (
	"os"

	"github.com/jcdickinson/rundaemon/internal/config"
	"github.com/jcdickinson/rundaemon/internal/daemon"
)

// runStage performs this process's part of the detachment and returns the
// exit status. A final stage that succeeds never returns.
func runStage(stage daemon.Stage, cfg *config.Config) int {
	seq := daemon.NewSequencer(cfg, daemon.Host{}, os.Stderr)
	if err := seq.Run(stage); err != nil {
		seq.Report(err)
		return 1
	}
	return 0
}
