package ioq

import (
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/behrlich/go-ioqueue/internal/interfaces"
)

// asErrno recovers the underlying syscall.Errno from an x/sys/unix error
// return, defaulting to EINVAL for the (practically unreachable) case of a
// non-errno error escaping a raw syscall wrapper.
func asErrno(err error) syscall.Errno {
	if errno, ok := err.(syscall.Errno); ok {
		return errno
	}
	return syscall.EINVAL
}

// Dispatcher is the common core: it owns submission fast paths, the
// backend arm/disarm calls that follow a slow-path enqueue, and (in
// poll.go) the readiness-to-callback translation.
type Dispatcher struct {
	*Registry
	MaxEventsPerPoll int
}

func NewDispatcher(reg *Registry, maxEventsPerPoll int) *Dispatcher {
	return &Dispatcher{Registry: reg, MaxEventsPerPoll: maxEventsPerPoll}
}

func (d *Dispatcher) observe(op string, status interfaces.SubmitStatus) {
	if d.obs != nil {
		d.obs.ObserveSubmit(op, status)
	}
}

// Recv implements the recv submission path. flags is passed through to
// recvfrom(2).
func (d *Dispatcher) Recv(k *Key, op *Op, buf []byte, flags int) (int, bool, error) {
	if k == nil || buf == nil || len(buf) == 0 {
		d.observe("recv", interfaces.SubmitError)
		return 0, false, ErrInvalidArg
	}
	if k.Closing() {
		d.observe("recv", interfaces.SubmitError)
		return 0, false, ErrClosing
	}

	// Fast path: attempt the syscall inline, without the key lock.
	n, _, err := unix.Recvfrom(k.FD, buf, flags)
	if err == nil {
		d.observe("recv", interfaces.SubmitImmediate)
		return n, true, nil
	}
	if err != unix.EAGAIN && err != unix.EWOULDBLOCK {
		d.observe("recv", interfaces.SubmitError)
		return 0, false, OsError("recv", asErrno(err))
	}

	k.Lock()
	op.Tag = TagRecv
	op.Buf = buf
	op.Len = len(buf)
	op.Flags = flags
	queueOp(&k.ReadQ, op)
	k.Unlock()

	if err := d.backend.Arm(k, DirRead); err != nil {
		d.observe("recv", interfaces.SubmitError)
		return 0, false, err
	}
	d.observe("recv", interfaces.SubmitPending)
	return 0, false, nil
}

// RecvFrom is Recv's datagram sibling; it additionally records the sender
// address on completion (filled by the dispatcher, not here).
func (d *Dispatcher) RecvFrom(k *Key, op *Op, buf []byte, flags int) (int, bool, error) {
	if k == nil || buf == nil || len(buf) == 0 {
		d.observe("recvfrom", interfaces.SubmitError)
		return 0, false, ErrInvalidArg
	}
	if k.Closing() {
		d.observe("recvfrom", interfaces.SubmitError)
		return 0, false, ErrClosing
	}

	n, from, err := unix.Recvfrom(k.FD, buf, flags)
	if err == nil {
		op.RemoteFrom = from
		d.observe("recvfrom", interfaces.SubmitImmediate)
		return n, true, nil
	}
	if err != unix.EAGAIN && err != unix.EWOULDBLOCK {
		d.observe("recvfrom", interfaces.SubmitError)
		return 0, false, OsError("recvfrom", asErrno(err))
	}

	k.Lock()
	op.Tag = TagRecvFrom
	op.Buf = buf
	op.Len = len(buf)
	op.Flags = flags
	queueOp(&k.ReadQ, op)
	k.Unlock()

	if err := d.backend.Arm(k, DirRead); err != nil {
		d.observe("recvfrom", interfaces.SubmitError)
		return 0, false, err
	}
	d.observe("recvfrom", interfaces.SubmitPending)
	return 0, false, nil
}

// Send implements the send submission path, including a lock-free
// write-queue-empty speculation: a single-word observation of
// WriteQ.Empty() with no torn-read hazard, safe because the caller contract
// forbids concurrent registration changes on the same key and a racing
// enqueue is still correctly observed on a later check.
func (d *Dispatcher) Send(k *Key, op *Op, buf []byte, flags int) (int, bool, error) {
	if k == nil || buf == nil {
		d.observe("send", interfaces.SubmitError)
		return 0, false, ErrInvalidArg
	}
	if k.Closing() {
		d.observe("send", interfaces.SubmitError)
		return 0, false, ErrClosing
	}
	if len(buf) == 0 {
		// Zero-byte stream send is Immediate(0) without touching the
		// kernel.
		d.observe("send", interfaces.SubmitImmediate)
		return 0, true, nil
	}

	if !k.WriteQ.Empty() {
		return d.enqueueSend(k, op, buf, flags, nil)
	}

	n, err := unix.Write(k.FD, buf)
	if err == nil {
		d.observe("send", interfaces.SubmitImmediate)
		return n, true, nil
	}
	if err != unix.EAGAIN && err != unix.EWOULDBLOCK {
		d.observe("send", interfaces.SubmitError)
		return 0, false, OsError("send", asErrno(err))
	}
	return d.enqueueSend(k, op, buf, flags, nil)
}

// SendTo is Send's datagram sibling, always targeting an explicit address.
func (d *Dispatcher) SendTo(k *Key, op *Op, buf []byte, flags int, to unix.Sockaddr) (int, bool, error) {
	if k == nil || buf == nil || to == nil {
		d.observe("sendto", interfaces.SubmitError)
		return 0, false, ErrInvalidArg
	}
	if k.Closing() {
		d.observe("sendto", interfaces.SubmitError)
		return 0, false, ErrClosing
	}

	if k.WriteQ.Empty() {
		if err := unix.Sendto(k.FD, buf, flags, to); err == nil {
			d.observe("sendto", interfaces.SubmitImmediate)
			return len(buf), true, nil
		} else if err != unix.EAGAIN && err != unix.EWOULDBLOCK {
			d.observe("sendto", interfaces.SubmitError)
			return 0, false, OsError("sendto", asErrno(err))
		}
	}
	return d.enqueueSend(k, op, buf, flags, to)
}

func (d *Dispatcher) enqueueSend(k *Key, op *Op, buf []byte, flags int, to unix.Sockaddr) (int, bool, error) {
	k.Lock()
	if to != nil {
		op.Tag = TagSendTo
	} else {
		op.Tag = TagSend
	}
	op.Buf = buf
	op.Len = len(buf)
	op.Sent = 0
	op.Flags = flags
	op.RemoteTo = to
	queueOp(&k.WriteQ, op)
	k.Unlock()

	opName := "send"
	if to != nil {
		opName = "sendto"
	}
	if err := d.backend.Arm(k, DirWrite); err != nil {
		d.observe(opName, interfaces.SubmitError)
		return 0, false, err
	}
	d.observe(opName, interfaces.SubmitPending)
	return 0, false, nil
}

// acceptNow performs the underlying accept(2) plus the getsockname(2) call
// needed to report the new connection's local address. Shared by Accept's
// fast path and the slow-path completion in dispatch.go, so the two only
// ever disagree about when they run, not how.
func acceptNow(fd int) (newFD int, local, remote unix.Sockaddr, err error) {
	newFD, remote, err = unix.Accept(fd)
	if err != nil {
		return -1, nil, nil, err
	}
	local, _ = unix.Getsockname(newFD)
	return newFD, local, remote, nil
}

// Accept implements the accept submission path: a fast-path inline accept(2)
// when a connection is already sitting in the listen backlog, falling back
// to enqueueing under the key lock on EAGAIN/EWOULDBLOCK like every other
// submission path in this file.
func (d *Dispatcher) Accept(k *Key, op *Op) (int, bool, error) {
	if k == nil {
		d.observe("accept", interfaces.SubmitError)
		return 0, false, ErrInvalidArg
	}
	if k.Closing() {
		d.observe("accept", interfaces.SubmitError)
		return 0, false, ErrClosing
	}

	newFD, local, remote, err := acceptNow(k.FD)
	if err == nil {
		op.NewFD = newFD
		op.LocalAddr = local
		op.RemoteAddr = remote
		d.observe("accept", interfaces.SubmitImmediate)
		return newFD, true, nil
	}
	if err != unix.EAGAIN && err != unix.EWOULDBLOCK {
		d.observe("accept", interfaces.SubmitError)
		return 0, false, OsError("accept", asErrno(err))
	}

	k.Lock()
	op.Tag = TagAccept
	queueOp(&k.AcceptQ, op)
	k.Unlock()

	if err := d.backend.Arm(k, DirRead); err != nil {
		d.observe("accept", interfaces.SubmitError)
		return 0, false, err
	}
	d.observe("accept", interfaces.SubmitPending)
	return 0, false, nil
}

// Connect implements the connect submission path. If a connect is already
// outstanding on this key, it returns Pending without issuing a second
// syscall.
func (d *Dispatcher) Connect(k *Key, addr unix.Sockaddr) (bool, error) {
	if k == nil || addr == nil {
		d.observe("connect", interfaces.SubmitError)
		return false, ErrInvalidArg
	}
	if k.Closing() {
		d.observe("connect", interfaces.SubmitError)
		return false, ErrClosing
	}

	k.Lock()
	if k.Connecting {
		k.Unlock()
		d.observe("connect", interfaces.SubmitPending)
		return false, nil
	}
	k.Unlock()

	err := unix.Connect(k.FD, addr)
	if err == nil {
		d.observe("connect", interfaces.SubmitImmediate)
		return true, nil
	}
	if err != unix.EINPROGRESS {
		d.observe("connect", interfaces.SubmitError)
		return false, OsError("connect", asErrno(err))
	}

	k.Lock()
	k.Connecting = true
	k.Unlock()

	if err := d.backend.Arm(k, DirWrite); err != nil {
		d.observe("connect", interfaces.SubmitError)
		return false, err
	}
	if err := d.backend.Arm(k, DirExcept); err != nil {
		d.observe("connect", interfaces.SubmitError)
		return false, err
	}
	d.observe("connect", interfaces.SubmitPending)
	return false, nil
}
