//go:build unix

package daemon

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/jcdickinson/rundaemon/internal/config"
)

// Host is the System backed by the running process.
type Host struct{}

var _ System = Host{}

func (Host) Spawn(stage Stage, cfg *config.Config) error {
	return Spawn(stage, cfg)
}

func (Host) Setsid() error {
	_, err := unix.Setsid()
	return err
}

func (Host) Getpid() int {
	return unix.Getpid()
}

func (Host) Getsid() (int, error) {
	return unix.Getsid(0)
}

func (Host) Chdir(dir string) error {
	return unix.Chdir(dir)
}

// DupStderr copies fd 2 to the lowest free descriptor above it. The copy is
// close-on-exec, so the executed command never sees it.
func (Host) DupStderr() (*os.File, error) {
	fd, err := unix.FcntlInt(uintptr(unix.Stderr), unix.F_DUPFD_CLOEXEC, 3)
	if err != nil {
		return nil, err
	}
	return os.NewFile(uintptr(fd), "/dev/stderr"), nil
}

func (Host) OpenNull() (*os.File, error) {
	return os.OpenFile(os.DevNull, os.O_RDWR, 0)
}

func (Host) Redirect(null *os.File) error {
	src := int(null.Fd())
	for _, fd := range []int{unix.Stdin, unix.Stdout, unix.Stderr} {
		if err := dup2(src, fd); err != nil {
			return err
		}
	}
	return nil
}

func (Host) Exec(argv []string) error {
	return execvp(argv, os.Environ(), unix.Exec)
}

// defaultPath is searched when PATH is unset, as glibc's execvp does.
const defaultPath = "/bin:/usr/bin"

// shell runs executables the kernel rejects with ENOEXEC.
const shell = "/bin/sh"

// execvp resolves argv[0] and replaces the process image through execve.
// A file the kernel refuses to execute with ENOEXEC is run as a shell
// script instead.
func execvp(argv, env []string, execve func(string, []string, []string) error) error {
	path, err := lookPath(argv[0])
	if err != nil {
		return err
	}
	err = execve(path, argv, env)
	if !errors.Is(err, unix.ENOEXEC) {
		return err
	}
	script := append([]string{shell, path}, argv[1:]...)
	if shErr := execve(shell, script, env); shErr != nil {
		return err
	}
	return nil
}

// lookPath resolves name the way execvp does: names containing a slash are
// used as is, anything else is searched for in PATH, including relative
// PATH entries. With PATH unset the search falls back to defaultPath.
func lookPath(name string) (string, error) {
	if _, ok := os.LookupEnv("PATH"); !ok && name != "" && !strings.Contains(name, "/") {
		for _, dir := range filepath.SplitList(defaultPath) {
			if path, err := exec.LookPath(filepath.Join(dir, name)); err == nil {
				return path, nil
			}
		}
		return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
	}

	path, err := exec.LookPath(name)
	if errors.Is(err, exec.ErrDot) {
		return path, nil
	}
	return path, err
}
