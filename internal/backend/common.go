//go:build unix

package backend

import "syscall"

// asErrno recovers the underlying syscall.Errno from an x/sys/unix error
// return, mirroring internal/ioq's own helper (kept separate to avoid a
// backend→ioq dependency on an unexported function).
func asErrno(err error) syscall.Errno {
	if errno, ok := err.(syscall.Errno); ok {
		return errno
	}
	return syscall.EINVAL
}
