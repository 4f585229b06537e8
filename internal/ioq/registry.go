package ioq

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/behrlich/go-ioqueue/internal/clock"
	"github.com/behrlich/go-ioqueue/internal/grouplock"
	"github.com/behrlich/go-ioqueue/internal/ilist"
	"github.com/behrlich/go-ioqueue/internal/interfaces"
)

// Registry is the bounded pool of keys: active, closing and free list
// management, behind a single registry-wide lock.
type Registry struct {
	mu sync.Mutex // guards the three lists, count, and backend calls

	capacity int
	count    int

	active  ilist.List[*Key]
	closing ilist.List[*Key]
	free    ilist.List[*Key]

	backend   Backend
	clock     clock.Clock
	freeDelay int64 // nanoseconds, grace period before a closing key frees

	// safeUnregister toggles the closing-list/refcount mechanism. When
	// false, unregister frees the key immediately and callers must
	// externally guarantee no in-flight callback.
	safeUnregister bool

	log interfaces.Logger
	obs interfaces.Observer
}

// Config bundles the Registry's construction-time parameters.
type Config struct {
	Capacity       int
	Backend        Backend
	Clock          clock.Clock
	FreeDelayNanos int64
	SafeUnregister bool
	Log            interfaces.Logger
	Obs            interfaces.Observer
}

// NewRegistry builds an empty Registry: no keys allocated up front. Go's
// allocator makes pre-sizing the free list unnecessary; a fixed-size array
// of key storage only matters when avoiding malloc/free on a hot path in a
// language without a garbage collector.
func NewRegistry(cfg Config) *Registry {
	r := &Registry{
		capacity:       cfg.Capacity,
		backend:        cfg.Backend,
		clock:          cfg.Clock,
		freeDelay:      cfg.FreeDelayNanos,
		safeUnregister: cfg.SafeUnregister,
		log:            cfg.Log,
		obs:            cfg.Obs,
	}
	r.active.Init()
	r.closing.Init()
	r.free.Init()
	return r
}

// Register adds fd as a newly tracked Key. Fails with ErrTooMany if the
// registry is at capacity.
func (r *Registry) Register(fd int, kind SocketKind, cb Callbacks, userData interface{}, gl *grouplock.GroupLock) (*Key, error) {
	r.mu.Lock()
	r.sweepClosingLocked()
	if r.count >= r.capacity {
		r.mu.Unlock()
		return nil, ErrTooMany
	}

	k := NewKey(fd, kind, cb, userData, gl)
	if err := r.backend.Register(k); err != nil {
		r.mu.Unlock()
		return nil, err
	}
	k.armedRead = true

	r.active.PushBack(&k.node)
	r.count++
	if r.log != nil {
		r.log.Debug("ioqueue: registered key", "fd", fd)
	}
	r.reportGaugeLocked()
	r.mu.Unlock()
	return k, nil
}

// Unregister begins closing k. Idempotent: a key already closing returns nil
// without doing anything further.
//
// Lock order: Unregister releases the key lock before it takes the registry
// lock, so it never holds both. Poll takes the registry lock and then, in
// classify, the key lock with a blocking Lock; it does not try-lock the key
// or defer a contended event to a later iteration.
func (r *Registry) Unregister(k *Key) error {
	k.Lock()
	if k.Closing() {
		k.Unlock()
		return nil
	}
	k.markClosing()
	k.Unlock()

	r.mu.Lock()
	r.active.Remove(&k.node)
	r.count--
	if err := r.backend.Remove(k); err != nil {
		r.mu.Unlock()
		return err
	}

	// The backend no longer has fd armed, so it's safe to close here rather
	// than deferring it to whenever the key is eventually freed.
	if err := unix.Close(k.FD); err != nil && r.log != nil {
		r.log.Debug("ioqueue: close on unregister failed", "fd", k.FD, "err", err)
	}

	if k.GroupLock != nil {
		k.GroupLock.DecRef()
	}

	// Drop the registry's own hold taken in NewKey, so the sweep can reclaim
	// the key once in-flight dispatches release theirs.
	k.DecRef()

	if !r.safeUnregister {
		// Caller guarantees no in-flight callback; free immediately rather
		// than parking on the closing list.
		r.free.PushBack(&k.node)
		r.reportGaugeLocked()
		r.mu.Unlock()
		return nil
	}

	k.freeTime = r.clock.Now().Add(time.Duration(r.freeDelay))
	r.closing.PushBack(&k.node)
	if r.log != nil {
		r.log.Debug("ioqueue: key closing", "fd", k.FD)
	}
	r.reportGaugeLocked()
	r.mu.Unlock()
	return nil
}

// SweepClosing moves keys from the closing list to the free list once their
// grace period has elapsed and their refcount has dropped to zero. Called
// on idle poll iterations and before every registration.
func (r *Registry) SweepClosing() {
	r.mu.Lock()
	r.sweepClosingLocked()
	r.mu.Unlock()
}

func (r *Registry) sweepClosingLocked() {
	now := r.clock.Now()
	node := r.closing.Front()
	for node != nil {
		next := r.closing.NodeAfter(node)
		k := node.Value
		if !now.Before(k.freeTime) && k.RefCount() == 0 {
			r.closing.Remove(node)
			r.free.PushBack(node)
			if r.log != nil {
				r.log.Debug("ioqueue: key freed", "fd", k.FD)
			}
		}
		node = next
	}
}

// reportGaugeLocked snapshots list sizes to the observer. Must be called
// with mu held.
func (r *Registry) reportGaugeLocked() {
	if r.obs != nil {
		r.obs.ObserveKeyCount(r.active.Len(), r.closing.Len(), r.free.Len())
	}
}
