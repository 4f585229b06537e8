// Package interfaces provides internal interface definitions for the
// ioqueue project. Separate from the public root package to avoid circular
// imports between it and internal/ioq.
package interfaces

// Logger is the injected logging sink. Satisfied by *logging.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Observer receives metrics about IOQ activity. Implementations must be
// thread-safe: methods are called from submission paths and from dispatch,
// potentially concurrently across many keys.
type Observer interface {
	// ObserveSubmit records the outcome of a submission call (recv, send,
	// accept, connect, ...): whether it completed immediately, was
	// enqueued, or failed. This is what makes the Conservation testable
	// property (Pending + Immediate + Error counts match) auditable from
	// outside the package.
	ObserveSubmit(op string, status SubmitStatus)
	// ObserveDispatch records one completed callback invocation and how
	// long it took from the backend event that triggered it.
	ObserveDispatch(op string, latencyNs uint64, success bool)
	// ObserveKeyCount reports the current size of the active, closing and
	// free lists, as a gauge snapshot taken under the ioqueue lock.
	ObserveKeyCount(active, closing, free int)
}

// SubmitStatus is the three-way outcome ObserveSubmit records.
type SubmitStatus int

const (
	SubmitImmediate SubmitStatus = iota
	SubmitPending
	SubmitError
)
