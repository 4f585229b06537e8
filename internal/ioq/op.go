// Package ioq implements the IOQ's registration and dispatch core: keys,
// pending operations, the registry (free/active/closing lists) and the
// common dispatcher shared by every backend.
package ioq

import (
	"golang.org/x/sys/unix"

	"github.com/behrlich/go-ioqueue/internal/ilist"
)

// Tag identifies which of the six submission shapes an Op carries.
type Tag int

const (
	TagRecv Tag = iota
	TagRecvFrom
	TagSend
	TagSendTo
	TagAccept
	TagConnect
)

// opNode is the concrete intrusive-node type Op queues traffic in, named so
// dispatch.go doesn't need to spell out the generic instantiation.
type opNode = ilist.Node[*Op]

func (t Tag) String() string {
	switch t {
	case TagRecv:
		return "recv"
	case TagRecvFrom:
		return "recvfrom"
	case TagSend:
		return "send"
	case TagSendTo:
		return "sendto"
	case TagAccept:
		return "accept"
	case TagConnect:
		return "connect"
	default:
		return "unknown"
	}
}

// Op is a single queued recv/send/accept request. The caller owns the
// memory; the IOQ never allocates one (spec's "the IOQ must not allocate
// it" for Pending Operation) — it only ever links a pointer the caller
// supplied into a Key's queue via the embedded node.
type Op struct {
	node ilist.Node[*Op]

	Tag   Tag
	Flags int

	// Recv / RecvFrom / Send / SendTo
	Buf      []byte
	Len      int // requested length (Recv/RecvFrom) or total length (Send/SendTo)
	Sent     int // bytes_already_sent, for stream partial sends
	RemoteTo unix.Sockaddr // destination for SendTo; nil for connected-socket Send

	// RecvFrom out-slots
	RemoteFrom unix.Sockaddr // filled in on completion

	// Accept out-slots
	NewFD      int
	LocalAddr  unix.Sockaddr
	RemoteAddr unix.Sockaddr
}

// initNode wires the intrusive node's back-pointer. Called once, the first
// time an Op is queued (queueOp in key.go), matching the zero-allocation
// contract: the Node lives inside the Op, never as a separate wrapper.
func (o *Op) initNode() *ilist.Node[*Op] {
	if o.node.Value == nil {
		o.node.Value = o
	}
	return &o.node
}
