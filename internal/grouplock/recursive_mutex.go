package grouplock

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

// recursiveMutex is a reentrant mutex: the goroutine currently holding it can
// lock it again without blocking. Go's sync.Mutex is deliberately
// non-reentrant and has no stdlib equivalent, so this is hand-rolled (see
// DESIGN.md).
//
// Ownership is tracked by goroutine ID, parsed from runtime.Stack's header
// line. This is the well-known (if unloved) way to identify the calling
// goroutine in Go; it's only used here to decide whether Lock should block,
// never for anything correctness-load-bearing beyond that.
type recursiveMutex struct {
	mu    sync.Mutex
	cond  sync.Cond
	once  sync.Once
	owner int64
	count int
}

func (m *recursiveMutex) init() {
	m.once.Do(func() { m.cond.L = &m.mu })
}

func (m *recursiveMutex) Lock() {
	m.init()
	id := goroutineID()

	m.mu.Lock()
	defer m.mu.Unlock()
	for m.count > 0 && m.owner != id {
		m.cond.Wait()
	}
	m.owner = id
	m.count++
}

func (m *recursiveMutex) Unlock() {
	m.init()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.count == 0 {
		panic("grouplock: Unlock of unlocked recursiveMutex")
	}
	m.count--
	if m.count == 0 {
		m.cond.Signal()
	}
}

func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]
	const prefix = "goroutine "
	if i := bytes.Index(b, []byte(prefix)); i >= 0 {
		b = b[i+len(prefix):]
	}
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseInt(string(b), 10, 64)
	return id
}
