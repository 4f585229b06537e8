package ioq

import (
	"sync"

	"github.com/behrlich/go-ioqueue/internal/clock"
)

// testManualClock returns a fresh Manual clock for tests that don't care
// about its starting value, just that it doesn't block.
func testManualClock() *clock.Manual {
	return &clock.Manual{}
}

// fakeBackend is an in-memory Backend double that records calls instead of
// touching real descriptors, so registry/dispatcher tests can run without a
// live socket or kernel poll instance.
type fakeBackend struct {
	mu        sync.Mutex
	armed     map[int]map[Direction]bool
	registerN int
	removeN   int
	events    []Event
	failWait  error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{armed: make(map[int]map[Direction]bool)}
}

func (b *fakeBackend) Register(k *Key) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.registerN++
	b.armed[k.FD] = map[Direction]bool{DirRead: true}
	return nil
}

func (b *fakeBackend) Arm(k *Key, dir Direction) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.armed[k.FD] == nil {
		b.armed[k.FD] = map[Direction]bool{}
	}
	b.armed[k.FD][dir] = true
	return nil
}

func (b *fakeBackend) Disarm(k *Key, dir Direction) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.armed[k.FD] != nil {
		b.armed[k.FD][dir] = false
	}
	return nil
}

func (b *fakeBackend) Remove(k *Key) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeN++
	delete(b.armed, k.FD)
	return nil
}

func (b *fakeBackend) Wait(timeoutMillis int) ([]Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failWait != nil {
		return nil, b.failWait
	}
	ev := b.events
	b.events = nil
	return ev, nil
}

func (b *fakeBackend) Close() error { return nil }

func (b *fakeBackend) isArmed(fd int, dir Direction) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.armed[fd] != nil && b.armed[fd][dir]
}
