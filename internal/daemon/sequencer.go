// Package daemon implements the detachment sequence that turns an
// invocation of rundaemon into a detached, orphaned process running the
// requested command.
//
// Go cannot fork without exec, so each fork of the classic double-fork is a
// re-exec of the rundaemon binary with a hidden stage marker in its argv:
//
//	launch  (original)      spawn session stage, exit 0
//	session (intermediate)  setsid, spawn final stage, exit 0
//	final   (daemon)        PID file, chdir, redirect stdio, exec command
//
// Every failure is fatal. Once the standard streams have been redirected,
// diagnostics go to a copy of the stderr descriptor taken just before the
// redirection.
package daemon

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jcdickinson/rundaemon/internal/config"
)

// System is the set of process-control primitives the sequencer needs.
type System interface {
	Spawn(stage Stage, cfg *config.Config) error
	Setsid() error
	Getpid() int
	Getsid() (int, error)
	Chdir(dir string) error
	// DupStderr returns a close-on-exec copy of the stderr descriptor.
	DupStderr() (*os.File, error)
	OpenNull() (*os.File, error)
	// Redirect points stdin, stdout and stderr at null.
	Redirect(null *os.File) error
	// Exec replaces the process image and only returns on failure.
	Exec(argv []string) error
}

// Sequencer runs the stage of the detachment sequence the current process
// is responsible for.
type Sequencer struct {
	cfg *config.Config
	sys System

	// sink receives diagnostics. It is replaced exactly once, when the
	// standard streams are redirected.
	sink io.Writer
	log  *slog.Logger

	// null and stderr are kept referenced until exec so their finalizers
	// cannot close the descriptors.
	null   *os.File
	stderr *os.File
}

func NewSequencer(cfg *config.Config, sys System, sink io.Writer) *Sequencer {
	s := &Sequencer{cfg: cfg, sys: sys}
	s.setSink(sink)
	return s
}

func (s *Sequencer) setSink(w io.Writer) {
	level := slog.LevelInfo
	if s.cfg.Debug {
		level = slog.LevelDebug
	}
	s.sink = w
	s.log = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Sink returns the writer diagnostics currently go to.
func (s *Sequencer) Sink() io.Writer {
	return s.sink
}

// Report writes err to the current sink as a single diagnostic line.
func (s *Sequencer) Report(err error) {
	fmt.Fprintf(s.sink, "Error: %v\n", err)
}

// Run executes stage. For StageLaunch and StageSession a nil return means
// the successor has been spawned and the caller should exit with status 0.
// For StageFinal Run only returns if the command could not be executed.
func (s *Sequencer) Run(stage Stage) error {
	s.trace(stage)

	switch stage {
	case StageLaunch:
		return s.fork(stage, StepFirstFork)
	case StageSession:
		if err := s.sys.Setsid(); err != nil {
			return &StepError{Step: StepSetsid, Err: err}
		}
		s.log.Debug("became session leader", "pid", s.sys.Getpid())
		return s.fork(stage, StepSecondFork)
	case StageFinal:
		return s.final()
	}
	return fmt.Errorf("unknown stage %q", stage)
}

func (s *Sequencer) trace(stage Stage) {
	if !s.log.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	sid, err := s.sys.Getsid()
	if err != nil {
		sid = -1
	}
	s.log.Debug("entering stage", "stage", stage, "pid", s.sys.Getpid(), "sid", sid)
}

// fork spawns the successor of stage. The caller exits as soon as this
// returns nil.
func (s *Sequencer) fork(stage Stage, step Step) error {
	if err := s.sys.Spawn(stage.Next(), s.cfg); err != nil {
		return &StepError{Step: step, Err: err}
	}
	return nil
}

func (s *Sequencer) final() error {
	if s.cfg.PIDFile != "" {
		pid := s.sys.Getpid()
		if err := WritePIDFile(s.cfg.PIDFile, pid); err != nil {
			return err
		}
		s.log.Debug("wrote pid file", "path", s.cfg.PIDFile, "pid", pid)
	}

	if s.cfg.ChangeDirectory {
		if err := s.sys.Chdir("/"); err != nil {
			return &StepError{Step: StepChdir, Err: err}
		}
	}

	if s.cfg.RedirectStdio {
		if err := s.redirect(); err != nil {
			return err
		}
	}

	s.log.Debug("executing command", "argv", s.cfg.Command)
	err := s.sys.Exec(s.cfg.Command)
	if err == nil {
		// Only a fake System can get here.
		return nil
	}
	return &StepError{Step: StepExec, Subject: s.cfg.Command[0], Err: err}
}

func (s *Sequencer) redirect() error {
	stderr, err := s.sys.DupStderr()
	if err != nil {
		return &StepError{Step: StepDupStderr, Err: err}
	}
	s.stderr = stderr
	s.setSink(stderr)

	null, err := s.sys.OpenNull()
	if err != nil {
		return &StepError{Step: StepOpenNull, Subject: os.DevNull, Err: err}
	}
	s.null = null

	if err := s.sys.Redirect(null); err != nil {
		return &StepError{Step: StepRedirect, Err: err}
	}
	return nil
}
