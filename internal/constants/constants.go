// Package constants holds the IOQ's default configuration values,
// re-exported from the root package.
package constants

import "time"

const (
	// DefaultCapacity is the default maximum concurrent keys a queue
	// accepts.
	DefaultCapacity = 1024

	// DefaultMaxEventsPerPoll caps callbacks dispatched per Poll call.
	DefaultMaxEventsPerPoll = 16

	// DefaultSafeUnregister is the value exported for Config.SafeUnregister
	// (the closing-list/refcount grace mechanism). Config's withDefaults
	// does not apply it: a zero Config runs with the mechanism off.
	DefaultSafeUnregister = true

	// DefaultEpollUseExclusive is the value exported for
	// Config.EpollUseExclusive (prefer EPOLLEXCLUSIVE, then EPOLLONESHOT,
	// then plain level-triggered). withDefaults does not apply it either: a
	// zero Config skips the EPOLLEXCLUSIVE attempt.
	DefaultEpollUseExclusive = true
)

// Timing constants for key reclamation.
//
// FreeDelay covers the window between a poll thread snapshotting a
// readiness event naming a key and that thread actually invoking its
// callback: a key can't be safely reused until every observer of that
// snapshot has finished dispatching.
const (
	// DefaultFreeDelay is the grace period a closing key sits in the
	// closing list before becoming eligible for reuse.
	DefaultFreeDelay = 500 * time.Millisecond

	// KqueueIdleSleep bounds the busy-spin on a kqueue Wait that returns
	// zero events.
	KqueueIdleSleep = 10 * time.Millisecond
)
