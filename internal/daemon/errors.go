package daemon

import "fmt"

// Step names a point of failure in the detachment sequence.
type Step int

const (
	StepFirstFork Step = iota
	StepSetsid
	StepSecondFork
	StepPIDFile
	StepChdir
	StepDupStderr
	StepOpenNull
	StepRedirect
	StepExec
)

func (s Step) String() string {
	switch s {
	case StepFirstFork:
		return "first fork"
	case StepSetsid:
		return "setsid"
	case StepSecondFork:
		return "second fork"
	case StepPIDFile:
		return "pid file"
	case StepChdir:
		return "chdir"
	case StepDupStderr:
		return "dup stderr"
	case StepOpenNull:
		return "open null device"
	case StepRedirect:
		return "redirect stdio"
	case StepExec:
		return "exec"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// StepError is a fatal failure of one step. Subject carries the path or
// program name the step operated on, if any.
type StepError struct {
	Step    Step
	Subject string
	Err     error
}

func (e *StepError) Error() string {
	switch e.Step {
	case StepFirstFork:
		return fmt.Sprintf("first fork failed: %v", e.Err)
	case StepSetsid:
		return fmt.Sprintf("setsid failed: %v", e.Err)
	case StepSecondFork:
		return fmt.Sprintf("second fork failed: %v", e.Err)
	case StepPIDFile:
		return fmt.Sprintf("Failed to open PID file '%s': %v", e.Subject, e.Err)
	case StepChdir:
		return fmt.Sprintf("chdir failed: %v", e.Err)
	case StepDupStderr:
		return fmt.Sprintf("failed to dup stderr: %v", e.Err)
	case StepOpenNull:
		return fmt.Sprintf("failed to open %s: %v", e.Subject, e.Err)
	case StepRedirect:
		return fmt.Sprintf("failed to redirect stdio: %v", e.Err)
	case StepExec:
		return fmt.Sprintf("failed to exec '%s': %v", e.Subject, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
