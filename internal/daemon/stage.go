package daemon

import "fmt"

// Stage identifies which process of the detachment lineage is running.
type Stage string

const (
	// StageLaunch is the process the caller started.
	StageLaunch Stage = "launch"
	// StageSession becomes a session leader and spawns the daemon.
	StageSession Stage = "session"
	// StageFinal is the daemon that execs the target command.
	StageFinal Stage = "final"
)

func ParseStage(s string) (Stage, error) {
	switch st := Stage(s); st {
	case StageLaunch, StageSession, StageFinal:
		return st, nil
	}
	return "", fmt.Errorf("unknown stage %q", s)
}

// Next returns the stage spawned by s. StageFinal has no successor.
func (s Stage) Next() Stage {
	switch s {
	case StageLaunch:
		return StageSession
	case StageSession:
		return StageFinal
	}
	return ""
}

// Argv0 is the argv[0] Spawn gives a process started for stage s. It also
// tells the stages apart in ps output.
func (s Stage) Argv0() string {
	return "rundaemon: " + string(s)
}

// SpawnedAs reports whether argv0 marks a process Spawn started for stage.
func SpawnedAs(argv0 string, stage Stage) bool {
	return stage != StageLaunch && argv0 == stage.Argv0()
}
