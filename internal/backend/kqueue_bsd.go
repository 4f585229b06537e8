//go:build darwin || freebsd || netbsd || openbsd

package backend

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/behrlich/go-ioqueue/internal/ioq"
)

const (
	maxKqueueEvents = 256
	kqueueIdleSleep = 10 * time.Millisecond
)

// Kqueue implements ioq.Backend over kqueue(2).
type Kqueue struct {
	kfd int

	mu   sync.Mutex
	keys map[int]*ioq.Key

	evbuf [maxKqueueEvents]unix.Kevent_t
}

func NewKqueue() (*Kqueue, error) {
	kfd, err := unix.Kqueue()
	if err != nil {
		return nil, ioq.OsError("kqueue", asErrno(err))
	}
	return &Kqueue{kfd: kfd, keys: make(map[int]*ioq.Key)}, nil
}

// Register arms both EVFILT_READ and EVFILT_WRITE at registration time,
// write initially disabled.
func (q *Kqueue) Register(k *ioq.Key) error {
	q.mu.Lock()
	q.keys[k.FD] = k
	q.mu.Unlock()

	changes := []unix.Kevent_t{
		mkEvent(k.FD, unix.EVFILT_READ, unix.EV_ADD|unix.EV_ENABLE),
		mkEvent(k.FD, unix.EVFILT_WRITE, unix.EV_ADD|unix.EV_DISABLE),
	}
	if _, err := unix.Kevent(q.kfd, changes, nil, nil); err != nil {
		q.mu.Lock()
		delete(q.keys, k.FD)
		q.mu.Unlock()
		return ioq.OsError("kevent(register)", asErrno(err))
	}
	return nil
}

// Arm/Disarm only ever toggle EVFILT_WRITE. EVFILT_READ is registered once
// and left alone: toggling it proved flaky on the kernels this backend
// targets, so it stays enabled for the key's entire lifetime.
func (q *Kqueue) Arm(k *ioq.Key, dir ioq.Direction) error {
	if dir != ioq.DirWrite {
		return nil
	}
	return q.setWrite(k, unix.EV_ENABLE)
}

func (q *Kqueue) Disarm(k *ioq.Key, dir ioq.Direction) error {
	if dir != ioq.DirWrite {
		return nil
	}
	return q.setWrite(k, unix.EV_DISABLE)
}

func (q *Kqueue) setWrite(k *ioq.Key, flag uint16) error {
	change := mkEvent(k.FD, unix.EVFILT_WRITE, flag)
	if _, err := unix.Kevent(q.kfd, []unix.Kevent_t{change}, nil, nil); err != nil {
		return ioq.OsError("kevent(write-toggle)", asErrno(err))
	}
	return nil
}

func (q *Kqueue) Remove(k *ioq.Key) error {
	q.mu.Lock()
	delete(q.keys, k.FD)
	q.mu.Unlock()

	changes := []unix.Kevent_t{
		mkEvent(k.FD, unix.EVFILT_READ, unix.EV_DELETE),
		mkEvent(k.FD, unix.EVFILT_WRITE, unix.EV_DELETE),
	}
	// Best-effort: a filter that was never successfully added (e.g. write,
	// which starts disabled but still "added") returning ENOENT here is
	// not an error worth surfacing.
	_, _ = unix.Kevent(q.kfd, changes, nil, nil)
	return nil
}

func (q *Kqueue) Wait(timeoutMillis int) ([]ioq.Event, error) {
	var ts *unix.Timespec
	if timeoutMillis >= 0 {
		t := unix.NsecToTimespec((time.Duration(timeoutMillis) * time.Millisecond).Nanoseconds())
		ts = &t
	}

	n, err := unix.Kevent(q.kfd, nil, q.evbuf[:], ts)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, ioq.OsError("kevent(wait)", asErrno(err))
	}
	if n == 0 {
		// Bounded sleep to avoid busy-spinning on zero-event wakeups.
		time.Sleep(kqueueIdleSleep)
		return nil, nil
	}

	q.mu.Lock()
	events := make([]ioq.Event, 0, n)
	for i := 0; i < n; i++ {
		raw := q.evbuf[i]
		k, ok := q.keys[int(raw.Ident)]
		if !ok {
			continue
		}
		ev := ioq.Event{Key: k}
		switch int16(raw.Filter) {
		case unix.EVFILT_READ:
			ev.Readable = true
		case unix.EVFILT_WRITE:
			ev.Writable = true
		}
		if raw.Flags&unix.EV_ERROR != 0 {
			ev.Error = true
		}
		events = append(events, ev)
	}
	q.mu.Unlock()
	return events, nil
}

func (q *Kqueue) Close() error {
	return unix.Close(q.kfd)
}

func mkEvent(fd int, filter int16, flags uint16) unix.Kevent_t {
	return unix.Kevent_t{
		Ident:  uint64(fd),
		Filter: filter,
		Flags:  flags,
	}
}
