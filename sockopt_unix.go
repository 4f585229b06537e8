//go:build unix

package ioqueue

import "golang.org/x/sys/unix"

const sockDGRAM = unix.SOCK_DGRAM

// sockType queries SO_TYPE for fd.
func sockType(fd int) (int, error) {
	return unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_TYPE)
}

// setNonblock marks fd non-blocking, as Register requires.
func setNonblock(fd int) error {
	return unix.SetNonblock(fd, true)
}
