package ioqueue

import (
	"github.com/behrlich/go-ioqueue/internal/constants"
)

// Default configuration values.
const (
	DefaultCapacity          = constants.DefaultCapacity
	DefaultMaxEventsPerPoll  = constants.DefaultMaxEventsPerPoll
	DefaultSafeUnregister    = constants.DefaultSafeUnregister
	DefaultEpollUseExclusive = constants.DefaultEpollUseExclusive
)

// DefaultFreeDelay is the grace period a closing key sits for before reuse.
var DefaultFreeDelay = constants.DefaultFreeDelay
