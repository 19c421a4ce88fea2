//go:build unix && !linux

package daemon

import "golang.org/x/sys/unix"

// dup2 makes newfd a copy of oldfd.
func dup2(oldfd, newfd int) error {
	if oldfd == newfd {
		_, err := unix.FcntlInt(uintptr(newfd), unix.F_SETFD, 0)
		return err
	}
	return unix.Dup2(oldfd, newfd)
}
