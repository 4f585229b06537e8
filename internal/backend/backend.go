// Package backend implements the three pluggable readiness engines: select,
// epoll and kqueue, each satisfying internal/ioq.Backend. Each backend keeps
// a direct fd-to-key lookup rather than re-deriving state from the kernel
// on every wait.
package backend

import "fmt"

// Kind names a backend choice.
type Kind string

const (
	KindSelect Kind = "select"
	KindEpoll  Kind = "epoll"
	KindKqueue Kind = "kqueue"
	KindAuto   Kind = "auto"
)

// ErrUnsupported is returned when a requested backend isn't available on
// the build's GOOS.
type ErrUnsupported struct {
	Kind Kind
}

func (e ErrUnsupported) Error() string {
	return fmt.Sprintf("backend: %s not supported on this platform", e.Kind)
}
