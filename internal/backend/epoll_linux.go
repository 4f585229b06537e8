//go:build linux

package backend

import (
	"sync"

	"golang.org/x/sys/unix"

	"github.com/behrlich/go-ioqueue/internal/ioq"
)

// exclusivity names which single-wakeup mechanism the epoll backend settled
// on at construction: prefer EPOLLEXCLUSIVE, fall back to EPOLLONESHOT, else
// plain level-triggered and accept the thundering-herd cost.
type exclusivity int

const (
	exclPlain exclusivity = iota
	exclOneshot
	exclExclusive
)

const maxPollEvents = 256

// Epoll implements ioq.Backend over epoll(7).
type Epoll struct {
	epfd int
	mode exclusivity

	mu   sync.Mutex
	keys map[int]*ioq.Key

	evbuf [maxPollEvents]unix.EpollEvent
}

// NewEpoll creates an epoll backend. preferExclusive selects whether
// EPOLLEXCLUSIVE is attempted first; when false, the backend goes straight
// to the EPOLLONESHOT/plain probe. Some TLS libraries misbehave under
// exclusive/oneshot wakeups, so this is left to the caller's configuration
// rather than auto-detected from the linked SSL version, which Go has no
// portable way to inspect.
func NewEpoll(preferExclusive bool) (*Epoll, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, ioq.OsError("epoll_create1", asErrno(err))
	}
	e := &Epoll{epfd: epfd, keys: make(map[int]*ioq.Key)}
	e.mode = probeExclusivity(epfd, preferExclusive)
	return e, nil
}

// probeExclusivity registers a throwaway pipe fd with EPOLLEXCLUSIVE (if
// requested) then EPOLLONESHOT, keeping whichever the kernel accepts.
// EINVAL means the flag isn't defined/supported by the running kernel.
func probeExclusivity(epfd int, preferExclusive bool) exclusivity {
	fds := make([]int, 2)
	if err := unix.Pipe(fds); err != nil {
		return exclPlain
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])
	probeFD := fds[0]

	try := func(flag uint32) bool {
		ev := &unix.EpollEvent{Events: unix.EPOLLIN | flag, Fd: int32(probeFD)}
		if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, probeFD, ev); err != nil {
			return false
		}
		_ = unix.EpollCtl(epfd, unix.EPOLL_CTL_DEL, probeFD, nil)
		return true
	}

	if preferExclusive && try(unix.EPOLLEXCLUSIVE) {
		return exclExclusive
	}
	if try(unix.EPOLLONESHOT) {
		return exclOneshot
	}
	return exclPlain
}

func (e *Epoll) Register(k *ioq.Key) error {
	e.mu.Lock()
	e.keys[k.FD] = k
	e.mu.Unlock()

	ev := e.buildEvent(k, unix.EPOLLIN)
	if err := unix.EpollCtl(e.epfd, unix.EPOLL_CTL_ADD, k.FD, &ev); err != nil {
		e.mu.Lock()
		delete(e.keys, k.FD)
		e.mu.Unlock()
		return ioq.OsError("epoll_ctl(add)", asErrno(err))
	}
	return nil
}

func (e *Epoll) Arm(k *ioq.Key, dir ioq.Direction) error {
	return e.rearm(k)
}

func (e *Epoll) Disarm(k *ioq.Key, dir ioq.Direction) error {
	if e.mode == exclOneshot {
		// ONESHOT deactivates the registration on every delivery; the
		// actual rearm (recomputing the mask from current queue state)
		// happens in rearm, invoked right after dispatch in poll.go's
		// caller via Arm. A bare Disarm call with ONESHOT active is a
		// no-op: the kernel already disarmed it.
		return nil
	}
	return e.rearm(k)
}

// rearm recomputes the events mask from the key's current queue state
// (dropping EPOLLOUT when no writes are pending) and issues EPOLL_CTL_MOD,
// or DEL then ADD in EPOLLEXCLUSIVE mode; this is also how ONESHOT re-arms.
func (e *Epoll) rearm(k *ioq.Key) error {
	k.Lock()
	writePending := !k.WriteQ.Empty()
	connecting := k.Connecting
	k.Unlock()

	events := uint32(unix.EPOLLIN)
	if writePending || connecting {
		events |= unix.EPOLLOUT
	}
	ev := e.buildEventMask(k, events)
	if e.mode == exclExclusive {
		// The kernel rejects EPOLL_CTL_MOD on an EPOLLEXCLUSIVE registration.
		_ = unix.EpollCtl(e.epfd, unix.EPOLL_CTL_DEL, k.FD, nil)
		if err := unix.EpollCtl(e.epfd, unix.EPOLL_CTL_ADD, k.FD, &ev); err != nil {
			return ioq.OsError("epoll_ctl(add)", asErrno(err))
		}
		return nil
	}
	if err := unix.EpollCtl(e.epfd, unix.EPOLL_CTL_MOD, k.FD, &ev); err != nil {
		return ioq.OsError("epoll_ctl(mod)", asErrno(err))
	}
	return nil
}

func (e *Epoll) buildEvent(k *ioq.Key, events uint32) unix.EpollEvent {
	return e.buildEventMask(k, events)
}

func (e *Epoll) buildEventMask(k *ioq.Key, events uint32) unix.EpollEvent {
	switch e.mode {
	case exclExclusive:
		events |= unix.EPOLLEXCLUSIVE
	case exclOneshot:
		events |= unix.EPOLLONESHOT
	}
	return unix.EpollEvent{Events: events, Fd: int32(k.FD)}
}

func (e *Epoll) Remove(k *ioq.Key) error {
	e.mu.Lock()
	delete(e.keys, k.FD)
	e.mu.Unlock()
	if err := unix.EpollCtl(e.epfd, unix.EPOLL_CTL_DEL, k.FD, nil); err != nil {
		return ioq.OsError("epoll_ctl(del)", asErrno(err))
	}
	return nil
}

func (e *Epoll) Wait(timeoutMillis int) ([]ioq.Event, error) {
	n, err := unix.EpollWait(e.epfd, e.evbuf[:], timeoutMillis)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, ioq.OsError("epoll_wait", asErrno(err))
	}
	if n == 0 {
		return nil, nil
	}

	e.mu.Lock()
	events := make([]ioq.Event, 0, n)
	for i := 0; i < n; i++ {
		raw := e.evbuf[i]
		k, ok := e.keys[int(raw.Fd)]
		if !ok {
			continue
		}
		events = append(events, ioq.Event{
			Key:      k,
			Readable: raw.Events&(unix.EPOLLIN|unix.EPOLLHUP) != 0,
			Writable: raw.Events&unix.EPOLLOUT != 0,
			Error:    raw.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0,
		})
	}
	e.mu.Unlock()
	return events, nil
}

func (e *Epoll) Close() error {
	return unix.Close(e.epfd)
}
