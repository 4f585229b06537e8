package ioq

import (
	"sync"
	"sync/atomic"

	"github.com/behrlich/go-ioqueue/internal/clock"
	"github.com/behrlich/go-ioqueue/internal/grouplock"
	"github.com/behrlich/go-ioqueue/internal/ilist"
)

// SocketKind distinguishes stream from datagram sockets, queried once at
// registration via SO_TYPE.
type SocketKind int

const (
	SocketStream SocketKind = iota
	SocketDatagram
)

// Callbacks is the per-key table of optional completion handlers. A nil
// entry means the corresponding submission path is never used for this key;
// the dispatcher does not require all four to be set.
type Callbacks struct {
	OnReadComplete    func(n int, remote interface{}, err error)
	OnWriteComplete   func(n int, err error)
	OnAcceptComplete  func(newFD int, local, remote interface{}, err error)
	OnConnectComplete func(err error)
}

// Key is the unit of registration: one descriptor's state.
type Key struct {
	// node links Key into whichever of the registry's three lists currently
	// owns it (active/closing/free) — never more than one at a time.
	node ilist.Node[*Key]

	FD         int
	SocketKind SocketKind
	Callbacks  Callbacks

	// mu guards ReadQ, WriteQ, AcceptQ and Connecting. The dispatcher's own
	// code never re-enters it from the same goroutine (each lock/unlock
	// pair is lexically scoped and callbacks always run after Unlock), so
	// a plain sync.Mutex suffices here — see DESIGN.md for why GroupLock,
	// which a caller can legitimately re-enter from inside its own
	// callback, gets the real recursive implementation instead.
	mu sync.Mutex

	ReadQ   ilist.List[*Op]
	WriteQ  ilist.List[*Op]
	AcceptQ ilist.List[*Op]

	Connecting bool

	// GroupLock optionally ties an external object's lifetime to every
	// completion the IOQ schedules for this key. Nil when the caller
	// registered without one.
	GroupLock *grouplock.GroupLock

	// userData is swapped under userDataMu so GetUserData/SetUserData are safe to
	// call concurrently with dispatch.
	userDataMu sync.Mutex
	userData   interface{}

	// closing is monotone: once true, no new ops are accepted and no
	// further callbacks will be scheduled (invariant: closing implies
	// appears in closing_list or free_list).
	closing atomic.Bool

	// refcount tracks in-flight dispatch activity plus the registry's own
	// hold. A closing key with refcount 0 is eligible for the sweep to
	// move it to the free list. Modeled as an atomic counter, independent
	// of both the key lock and the registry lock, rather than a separate
	// mutex — atomic.Int32 gives that independence without a third lock
	// to order against.
	refcount atomic.Int32

	// freeTime is the tick at which the key becomes eligible for
	// reclamation from closing_list, stamped at unregister time.
	freeTime clock.Tick

	// armedRead is set once registration has armed the descriptor for
	// read-readiness. Nothing reads armedRead, armedWrite or armedExcept:
	// the dispatcher decides what to arm from queue state, and each backend
	// tracks its own interest set.
	armedRead   bool
	armedWrite  bool
	armedExcept bool

	// backendData is an opaque slot that no code currently uses; the
	// backends keep their per-fd bookkeeping in their own fd-to-key maps
	// and fd-sets.
	backendData interface{}
}

// NewKey builds a Key in the idle state: no queues populated, not closing,
// refcount 1 (the registry's own hold, released by Unregister/sweep).
func NewKey(fd int, kind SocketKind, cb Callbacks, userData interface{}, gl *grouplock.GroupLock) *Key {
	k := &Key{
		FD:         fd,
		SocketKind: kind,
		Callbacks:  cb,
		userData:   userData,
		GroupLock:  gl,
	}
	k.node.Value = k
	k.ReadQ.Init()
	k.WriteQ.Init()
	k.AcceptQ.Init()
	k.refcount.Store(1)
	if gl != nil {
		gl.AddRef()
	}
	return k
}

// Lock / Unlock guard ReadQ, WriteQ, AcceptQ and Connecting.
func (k *Key) Lock()   { k.mu.Lock() }
func (k *Key) Unlock() { k.mu.Unlock() }

// Closing reports whether unregistration has begun for this key.
func (k *Key) Closing() bool { return k.closing.Load() }

// markClosing sets the closing flag; idempotent, returns whether this call
// was the one that transitioned it (false if already closing).
func (k *Key) markClosing() bool { return k.closing.CompareAndSwap(false, true) }

// AddRef/DecRef track in-flight dispatch activity on top of the group lock's
// own (optional) refcount. DecRef reports whether the count reached zero.
func (k *Key) AddRef() { k.refcount.Add(1) }

func (k *Key) DecRef() bool { return k.refcount.Add(-1) == 0 }

// RefCount returns the current internal refcount, for sweep_closing and
// tests.
func (k *Key) RefCount() int32 { return k.refcount.Load() }

// GetUserData returns the opaque handle associated with this key.
func (k *Key) GetUserData() interface{} {
	k.userDataMu.Lock()
	defer k.userDataMu.Unlock()
	return k.userData
}

// SetUserData replaces the opaque handle, returning the previous value.
func (k *Key) SetUserData(v interface{}) interface{} {
	k.userDataMu.Lock()
	defer k.userDataMu.Unlock()
	prev := k.userData
	k.userData = v
	return prev
}

// queueOp appends op to the given direction's queue under the caller's
// already-held key lock, wiring its intrusive node on first use.
func queueOp(q *ilist.List[*Op], op *Op) {
	q.PushBack(op.initNode())
}
