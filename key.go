package ioqueue

import "github.com/behrlich/go-ioqueue/internal/ioq"

// Key is the public handle returned by Register. It wraps the internal
// registration unit; callers never construct one directly.
type Key struct {
	k *ioq.Key
	q *IoQueue
}

// GetUserData returns the opaque handle associated with this key.
func (k *Key) GetUserData() interface{} { return k.k.GetUserData() }

// SetUserData replaces the opaque handle, returning the previous value.
func (k *Key) SetUserData(v interface{}) interface{} { return k.k.SetUserData(v) }

// FD returns the underlying descriptor. Valid only while the key remains
// registered; the IOQ owns the descriptor's lifetime until Unregister.
func (k *Key) FD() int { return k.k.FD }

// Closing reports whether Unregister has been called on this key.
func (k *Key) Closing() bool { return k.k.Closing() }
