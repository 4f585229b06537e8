// Package ioqueue is a reactor-to-proactor adapter: it exposes a uniform,
// completion-style API for stream and datagram sockets atop select, epoll
// and kqueue. Callers submit recv/recvfrom/send/sendto/accept/connect
// requests that either complete inline (the fast path) or are queued and
// completed later via a callback, all behind a single Poll loop that
// multiple goroutines may drive concurrently.
package ioqueue

import (
	"time"

	"github.com/behrlich/go-ioqueue/internal/backend"
	"github.com/behrlich/go-ioqueue/internal/clock"
	"github.com/behrlich/go-ioqueue/internal/grouplock"
	"github.com/behrlich/go-ioqueue/internal/interfaces"
	"github.com/behrlich/go-ioqueue/internal/ioq"
	"github.com/behrlich/go-ioqueue/internal/logging"
)

// SocketKind distinguishes stream from datagram sockets.
type SocketKind = ioq.SocketKind

const (
	SocketStream   = ioq.SocketStream
	SocketDatagram = ioq.SocketDatagram
)

// Callbacks is the per-key table of optional completion handlers.
type Callbacks = ioq.Callbacks

// BackendKind selects which readiness engine a Config requests.
type BackendKind = backend.Kind

const (
	BackendSelect = backend.KindSelect
	BackendEpoll  = backend.KindEpoll
	BackendKqueue = backend.KindKqueue
	BackendAuto   = backend.KindAuto
)

// Config bundles IoQueue construction parameters.
type Config struct {
	// Capacity is the maximum number of concurrently registered keys.
	Capacity int
	// Backend selects the readiness engine; BackendAuto picks the best
	// available for the runtime GOOS.
	Backend BackendKind
	// MaxEventsPerPoll caps callbacks dispatched per Poll call.
	MaxEventsPerPoll int
	// FreeDelay is the grace period a closing key sits for before reuse.
	FreeDelay time.Duration
	// SafeUnregister toggles the closing-list/refcount mechanism.
	// withDefaults leaves it as given (off in a zero Config).
	SafeUnregister bool
	// EpollUseExclusive prefers EPOLLEXCLUSIVE (then EPOLLONESHOT, then
	// plain) on the epoll backend. withDefaults leaves it as given (off in
	// a zero Config).
	EpollUseExclusive bool

	// Logger and Observer are injected, defaulting to logging.Default()
	// and a NoOpObserver respectively when left nil.
	Logger   interfaces.Logger
	Observer interfaces.Observer
	Clock    clock.Clock
}

// withDefaults fills in zero fields with package defaults.
func (c Config) withDefaults() Config {
	if c.Capacity <= 0 {
		c.Capacity = DefaultCapacity
	}
	if c.Backend == "" {
		c.Backend = BackendAuto
	}
	if c.MaxEventsPerPoll <= 0 {
		c.MaxEventsPerPoll = DefaultMaxEventsPerPoll
	}
	if c.FreeDelay <= 0 {
		c.FreeDelay = DefaultFreeDelay
	}
	if c.Logger == nil {
		c.Logger = logging.Default()
	}
	if c.Observer == nil {
		c.Observer = NoOpObserver{}
	}
	if c.Clock == nil {
		c.Clock = clock.Real{}
	}
	return c
}

// IoQueue is the top-level container: a registry of keys bound to one
// backend and one dispatcher.
type IoQueue struct {
	dispatcher *ioq.Dispatcher
	backend    ioq.Backend
	defaultGL  *grouplock.GroupLock
	autoDestroyGL bool
	log        interfaces.Logger
}

// New constructs an IoQueue per cfg, defaulting any zero fields.
func New(cfg Config) (*IoQueue, error) {
	cfg = cfg.withDefaults()

	be, err := backend.New(cfg.Backend, cfg.EpollUseExclusive)
	if err != nil {
		return nil, err
	}

	reg := ioq.NewRegistry(ioq.Config{
		Capacity:       cfg.Capacity,
		Backend:        be,
		Clock:          cfg.Clock,
		FreeDelayNanos: cfg.FreeDelay.Nanoseconds(),
		SafeUnregister: cfg.SafeUnregister,
		Log:            cfg.Logger,
		Obs:            cfg.Observer,
	})
	d := ioq.NewDispatcher(reg, cfg.MaxEventsPerPoll)

	cfg.Logger.Info("ioqueue: created", "backend", string(cfg.Backend), "capacity", cfg.Capacity)
	return &IoQueue{dispatcher: d, backend: be, log: cfg.Logger}, nil
}

// Destroy releases the backend's resources. Per the no-leak testable
// property, callers should Unregister every key first; Destroy does not
// itself drain the registry's lists.
func (q *IoQueue) Destroy() error {
	if q.defaultGL != nil && q.autoDestroyGL {
		q.defaultGL.DecRef()
	}
	q.log.Info("ioqueue: destroyed")
	return q.backend.Close()
}

// SetDefaultLock installs a GroupLock every subsequent Register call uses
// when the caller doesn't supply one of its own. If autoDestroy is true,
// Destroy releases one reference to it.
func (q *IoQueue) SetDefaultLock(gl *grouplock.GroupLock, autoDestroy bool) {
	q.defaultGL = gl
	q.autoDestroyGL = autoDestroy
}

// Register adds fd as a new Key: marks it non-blocking, queries its socket
// kind, and arms it for read-readiness.
func (q *IoQueue) Register(fd int, userData interface{}, cb Callbacks, gl *grouplock.GroupLock) (*Key, error) {
	if err := setNonblock(fd); err != nil {
		return nil, OsError("register", asRegisterErrno(err))
	}
	if gl == nil {
		gl = q.defaultGL
	}
	kind := socketKindOf(fd)
	k, err := q.dispatcher.Registry.Register(fd, kind, cb, userData, gl)
	if err != nil {
		return nil, err
	}
	return &Key{k: k, q: q}, nil
}

// Unregister begins closing k. Idempotent.
func (q *IoQueue) Unregister(k *Key) error {
	return q.dispatcher.Registry.Unregister(k.k)
}

// Poll drives one iteration of the dispatch loop, blocking up to timeout.
// Multiple goroutines may call Poll concurrently on the same IoQueue.
func (q *IoQueue) Poll(timeout time.Duration) (int, error) {
	ms := -1
	if timeout >= 0 {
		ms = int(timeout.Milliseconds())
	}
	return q.dispatcher.Poll(ms)
}

// socketKindOf queries SO_TYPE, defaulting to stream on error.
func socketKindOf(fd int) SocketKind {
	typ, err := sockType(fd)
	if err != nil || typ != sockDGRAM {
		return SocketStream
	}
	return SocketDatagram
}
