//go:build darwin || freebsd || netbsd || openbsd

package backend

import "github.com/behrlich/go-ioqueue/internal/ioq"

// New builds the requested backend, resolving KindAuto to the best
// available for this platform (kqueue on BSD/Darwin).
func New(kind Kind, preferExclusive bool) (ioq.Backend, error) {
	switch kind {
	case KindKqueue, KindAuto:
		return NewKqueue()
	case KindSelect:
		return NewSelect(), nil
	default:
		return nil, ErrUnsupported{Kind: kind}
	}
}
