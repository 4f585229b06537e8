//go:build unix

package backend

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/behrlich/go-ioqueue/internal/ioq"
)

// selectMaxFD mirrors FD_SETSIZE; registering a descriptor at or above this
// value fails at registration time.
const selectMaxFD = unix.FD_SETSIZE

// Select implements ioq.Backend over select(2). It is the fallback backend:
// portable, but O(maxfd) per wait and limited to FD_SETSIZE descriptors.
type Select struct {
	mu      sync.Mutex
	keys    map[int]*ioq.Key
	maxFD   int
	rset    unix.FdSet
	wset    unix.FdSet
	xset    unix.FdSet
}

func NewSelect() *Select {
	return &Select{keys: make(map[int]*ioq.Key)}
}

func (s *Select) Register(k *ioq.Key) error {
	if k.FD >= selectMaxFD {
		return ioq.NewError("register", ioq.KindInvalidArg, "fd exceeds FD_SETSIZE")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[k.FD] = k
	setBit(&s.rset, k.FD)
	if k.FD > s.maxFD {
		s.maxFD = k.FD
	}
	return nil
}

func (s *Select) Arm(k *ioq.Key, dir ioq.Direction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch dir {
	case ioq.DirRead:
		setBit(&s.rset, k.FD)
	case ioq.DirWrite:
		setBit(&s.wset, k.FD)
	case ioq.DirExcept:
		setBit(&s.xset, k.FD)
	}
	return nil
}

func (s *Select) Disarm(k *ioq.Key, dir ioq.Direction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch dir {
	case ioq.DirRead:
		clearBit(&s.rset, k.FD)
	case ioq.DirWrite:
		clearBit(&s.wset, k.FD)
	case ioq.DirExcept:
		clearBit(&s.xset, k.FD)
	}
	return nil
}

func (s *Select) Remove(k *ioq.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, k.FD)
	clearBit(&s.rset, k.FD)
	clearBit(&s.wset, k.FD)
	clearBit(&s.xset, k.FD)
	return nil
}

// Wait copies the fd-sets under the lock, then releases it before the
// select(2) syscall itself, so submissions on other keys don't serialize on
// a blocking wait.
func (s *Select) Wait(timeoutMillis int) ([]ioq.Event, error) {
	s.mu.Lock()
	r, w, x := s.rset, s.wset, s.xset
	maxFD := s.maxFD
	keys := make(map[int]*ioq.Key, len(s.keys))
	for fd, k := range s.keys {
		keys[fd] = k
	}
	s.mu.Unlock()

	var tv *unix.Timeval
	if timeoutMillis >= 0 {
		d := time.Duration(timeoutMillis) * time.Millisecond
		t := unix.NsecToTimeval(d.Nanoseconds())
		tv = &t
	}

	n, err := unix.Select(maxFD+1, &r, &w, &x, tv)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, ioq.OsError("select", asErrno(err))
	}
	if n == 0 {
		return nil, nil
	}

	events := make([]ioq.Event, 0, n)
	for fd, k := range keys {
		readable := isSet(&r, fd)
		writable := isSet(&w, fd)
		errored := isSet(&x, fd)
		if readable || writable || errored {
			events = append(events, ioq.Event{Key: k, Readable: readable, Writable: writable, Error: errored})
		}
	}
	return events, nil
}

func (s *Select) Close() error { return nil }

// setBit/clearBit/isSet go through unix.FdSet's own Set/Clear/IsSet, which
// use the platform's word width for FdSet.Bits (int64 on Linux/amd64, int32
// on BSD/Darwin and 32-bit Linux).
func setBit(set *unix.FdSet, fd int) {
	set.Set(fd)
}

func clearBit(set *unix.FdSet, fd int) {
	set.Clear(fd)
}

func isSet(set *unix.FdSet, fd int) bool {
	return set.IsSet(fd)
}
