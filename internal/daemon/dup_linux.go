package daemon

import "golang.org/x/sys/unix"

// dup2 makes newfd a copy of oldfd. dup2(2) is missing on some Linux
// architectures, so dup3 is used instead; dup3 rejects equal descriptors.
func dup2(oldfd, newfd int) error {
	if oldfd == newfd {
		_, err := unix.FcntlInt(uintptr(newfd), unix.F_SETFD, 0)
		return err
	}
	return unix.Dup3(oldfd, newfd, 0)
}
