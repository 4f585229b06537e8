//go:build linux

package backend

import "github.com/behrlich/go-ioqueue/internal/ioq"

// New builds the requested backend, resolving KindAuto to the best
// available for this platform (epoll on Linux).
func New(kind Kind, preferExclusive bool) (ioq.Backend, error) {
	switch kind {
	case KindEpoll, KindAuto:
		return NewEpoll(preferExclusive)
	case KindSelect:
		return NewSelect(), nil
	default:
		return nil, ErrUnsupported{Kind: kind}
	}
}
