package ioqueue

import (
	"syscall"

	"github.com/behrlich/go-ioqueue/internal/ioq"
)

// Kind categorizes an Error into the taxonomy the IOQ exposes to callers.
type Kind = ioq.Kind

const (
	// KindInvalidArg covers null/zero arguments, capacity exhaustion and
	// operations attempted in the wrong socket state (e.g. Accept on a
	// non-listening socket).
	KindInvalidArg = ioq.KindInvalidArg
	// KindClosing is returned for submissions on a key that has begun
	// unregistration.
	KindClosing = ioq.KindClosing
	// KindOsError wraps a kernel errno verbatim so callers can inspect it.
	KindOsError = ioq.KindOsError
	// KindBug marks a detected invariant violation; WrapError also uses it
	// for a non-errno error it cannot classify. It is returned like any
	// other Error; nothing in the package panics on it.
	KindBug = ioq.KindBug
)

// Error is the structured error type returned by every IOQ operation that
// fails synchronously. It is never used to signal WouldBlock/Pending —
// those are represented by Result, not error.
type Error = ioq.Error

// Sentinel errors for errors.Is comparisons against Kind alone.
var (
	ErrInvalidArg = ioq.ErrInvalidArg
	ErrClosing    = ioq.ErrClosing
	ErrTooMany    = ioq.ErrTooMany
	ErrBug        = ioq.ErrBug
)

// IsKind reports whether err is an *Error of the given Kind.
func IsKind(err error, kind Kind) bool { return ioq.IsKind(err, kind) }

// IsErrno reports whether err wraps the given syscall errno.
func IsErrno(err error, errno syscall.Errno) bool { return ioq.IsErrno(err, errno) }

// OsError wraps a syscall errno with operation context.
func OsError(op string, errno syscall.Errno) *Error { return ioq.OsError(op, errno) }

// asRegisterErrno recovers a syscall.Errno from a raw syscall error,
// defaulting to EINVAL for the unreachable non-errno case.
func asRegisterErrno(err error) syscall.Errno {
	if errno, ok := err.(syscall.Errno); ok {
		return errno
	}
	return syscall.EINVAL
}
