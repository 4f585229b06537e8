package ioq

import (
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/behrlich/go-ioqueue/internal/clock"
)

// clockTick is a local alias so dispatch.go's signatures don't need to spell
// out the clock package name at every completion function.
type clockTick = clock.Tick

// dispatchReadable pops one op from AcceptQ or ReadQ and completes it
// outside the key lock. Completion callbacks live on the key (Callbacks),
// not the op.
func (d *Dispatcher) dispatchReadable(k *Key) {
	start := d.clock.Now()
	k.Lock()
	if node := k.AcceptQ.Front(); node != nil {
		k.AcceptQ.Remove(node)
		readDisarmed := k.AcceptQ.Empty() && k.ReadQ.Empty()
		k.Unlock()
		if readDisarmed {
			_ = d.backend.Disarm(k, DirRead)
		}
		d.completeAccept(k, node.Value, start)
		return
	}
	if node := k.ReadQ.Front(); node != nil {
		k.ReadQ.Remove(node)
		readDisarmed := k.ReadQ.Empty() && k.AcceptQ.Empty()
		k.Unlock()
		if readDisarmed {
			// No-op on backends that keep stream reads armed continuously.
			_ = d.backend.Disarm(k, DirRead)
		}
		d.completeRead(k, node.Value, start)
		return
	}
	// Spurious wakeup: another thread already drained the queue.
	k.Unlock()
}

// observeDispatch records a completion's op label, success, and the latency
// from the backend event that surfaced it to the callback firing.
func (d *Dispatcher) observeDispatch(op string, start clockTick, success bool) {
	if d.obs != nil {
		d.obs.ObserveDispatch(op, uint64(d.clock.Now()-start), success)
	}
}

func (d *Dispatcher) completeAccept(k *Key, op *Op, start clockTick) {
	newFD, local, remote, err := acceptNow(k.FD)
	if err != nil {
		d.observeDispatch("accept", start, false)
		if k.Callbacks.OnAcceptComplete != nil {
			k.Callbacks.OnAcceptComplete(-1, nil, nil, OsError("accept", asErrno(err)))
		}
		return
	}
	op.NewFD = newFD
	op.LocalAddr = local
	op.RemoteAddr = remote

	d.observeDispatch("accept", start, true)
	if k.Callbacks.OnAcceptComplete != nil {
		k.Callbacks.OnAcceptComplete(newFD, local, remote, nil)
	}
}

func (d *Dispatcher) completeRead(k *Key, op *Op, start clockTick) {
	n, from, err := unix.Recvfrom(k.FD, op.Buf[:op.Len], op.Flags)
	if err != nil {
		if k.SocketKind == SocketDatagram && asErrno(err) == syscall.ECONNRESET {
			// Reflects a prior ICMP port-unreachable from an unrelated
			// peer that the kernel conflates with this socket's receive
			// queue. Swallowed as a spurious wakeup.
			return
		}
		d.observeDispatch(op.Tag.String(), start, false)
		if k.Callbacks.OnReadComplete != nil {
			k.Callbacks.OnReadComplete(-1, nil, OsError("recv", asErrno(err)))
		}
		return
	}

	op.RemoteFrom = from
	d.observeDispatch(op.Tag.String(), start, true)
	if k.Callbacks.OnReadComplete != nil {
		var remote interface{}
		if op.Tag == TagRecvFrom {
			remote = from
		}
		k.Callbacks.OnReadComplete(n, remote, nil)
	}
}

// dispatchWritable pops one op from WriteQ and completes it outside the
// key lock, or resolves a pending Connect if one is outstanding.
func (d *Dispatcher) dispatchWritable(k *Key) {
	start := d.clock.Now()
	k.Lock()
	if k.Connecting {
		k.Connecting = false
		k.Unlock()
		_ = d.backend.Disarm(k, DirWrite)
		_ = d.backend.Disarm(k, DirExcept)
		d.completeConnect(k, start)
		return
	}

	node := k.WriteQ.Front()
	if node == nil {
		k.Unlock()
		return
	}
	op := node.Value

	// Datagram sends can be removed before the syscall so other threads
	// may send in parallel; stream sends stay queued across the syscall to
	// preserve byte ordering (serializes one send per key at a time, via
	// the key lock, since the op is still reachable from WriteQ for the
	// duration of the syscall below).
	if k.SocketKind == SocketDatagram {
		k.WriteQ.Remove(node)
		writeDisarmed := k.WriteQ.Empty()
		k.Unlock()
		if writeDisarmed {
			_ = d.backend.Disarm(k, DirWrite)
		}
		d.completeDatagramSend(k, op, start)
		return
	}
	k.Unlock()
	d.completeStreamSend(k, node, op, start)
}

func (d *Dispatcher) completeDatagramSend(k *Key, op *Op, start clockTick) {
	var err error
	if op.RemoteTo != nil {
		err = unix.Sendto(k.FD, op.Buf, op.Flags, op.RemoteTo)
	} else {
		_, err = unix.Write(k.FD, op.Buf)
	}
	n := op.Len
	var reportErr error
	if err != nil {
		n = -1
		reportErr = OsError("sendto", asErrno(err))
	}
	d.observeDispatch(op.Tag.String(), start, err == nil)
	if k.Callbacks.OnWriteComplete != nil {
		k.Callbacks.OnWriteComplete(n, reportErr)
	}
}

// completeStreamSend performs one send syscall, under the key lock, for the
// op still queued at node (kept queued across the syscall to serialize
// stream writes on this key), updating Sent on partial writes and only
// dequeuing once the whole buffer has gone out or an error occurred.
func (d *Dispatcher) completeStreamSend(k *Key, node *opNode, op *Op, start clockTick) {
	k.Lock()
	if k.WriteQ.Front() != node {
		// Another poller already finished this op: spurious wakeup.
		k.Unlock()
		return
	}
	n, err := unix.Write(k.FD, op.Buf[op.Sent:op.Len])
	if err != nil {
		k.WriteQ.Remove(node)
		writeDisarmed := k.WriteQ.Empty()
		k.Unlock()
		if writeDisarmed {
			_ = d.backend.Disarm(k, DirWrite)
		}
		d.observeDispatch("send", start, false)
		if k.Callbacks.OnWriteComplete != nil {
			k.Callbacks.OnWriteComplete(-1, OsError("send", asErrno(err)))
		}
		return
	}

	op.Sent += n
	complete := op.Sent >= op.Len
	if complete {
		k.WriteQ.Remove(node)
	}
	writeDisarmed := complete && k.WriteQ.Empty()
	k.Unlock()

	if writeDisarmed {
		_ = d.backend.Disarm(k, DirWrite)
	}
	if complete {
		d.observeDispatch("send", start, true)
		if k.Callbacks.OnWriteComplete != nil {
			k.Callbacks.OnWriteComplete(op.Sent, nil)
		}
	}
}

func (d *Dispatcher) completeConnect(k *Key, start clockTick) {
	var err error
	soErr, gerr := unix.GetsockoptInt(k.FD, unix.SOL_SOCKET, unix.SO_ERROR)
	if gerr != nil {
		err = OsError("connect", asErrno(gerr))
	} else if soErr != 0 {
		err = OsError("connect", syscall.Errno(soErr))
	}
	d.observeDispatch("connect", start, err == nil)
	if k.Callbacks.OnConnectComplete != nil {
		k.Callbacks.OnConnectComplete(err)
	}
}

// dispatchException handles exception events, which only meaningfully
// signal a failed connect.
func (d *Dispatcher) dispatchException(k *Key) {
	start := d.clock.Now()
	k.Lock()
	if !k.Connecting {
		k.Unlock()
		return
	}
	k.Connecting = false
	k.Unlock()
	_ = d.backend.Disarm(k, DirWrite)
	_ = d.backend.Disarm(k, DirExcept)
	d.observeDispatch("connect", start, false)
	if k.Callbacks.OnConnectComplete != nil {
		k.Callbacks.OnConnectComplete(OsError("connect", syscall.ECONNREFUSED))
	}
}
