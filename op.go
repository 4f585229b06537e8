package ioqueue

import "github.com/behrlich/go-ioqueue/internal/ioq"

// Tag identifies which submission shape a Op carries.
type Tag = ioq.Tag

const (
	TagRecv     = ioq.TagRecv
	TagRecvFrom = ioq.TagRecvFrom
	TagSend     = ioq.TagSend
	TagSendTo   = ioq.TagSendTo
	TagAccept   = ioq.TagAccept
	TagConnect  = ioq.TagConnect
)

// Op is a caller-owned pending-operation record. The IOQ never allocates
// one; callers declare it inline
// (usually as a struct field alongside the buffer it references) and pass a
// pointer through Recv/RecvFrom/Send/SendTo/Accept. Its fields are reused
// across the op's lifetime: submit populates the request side, the
// dispatcher fills the out-slots (RemoteFrom, NewFD, LocalAddr, RemoteAddr)
// before invoking the matching callback.
type Op = ioq.Op
