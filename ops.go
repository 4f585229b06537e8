package ioqueue

import "golang.org/x/sys/unix"

// Recv submits a recv request. op is reused as the pending record if the
// fast path doesn't satisfy the request inline.
func (k *Key) Recv(op *Op, buf []byte, flags int) (Result, error) {
	n, immediate, err := k.q.dispatcher.Recv(k.k, op, buf, flags)
	if err != nil {
		return Result{}, err
	}
	if immediate {
		return Immediate(n), nil
	}
	return Pending, nil
}

// RecvFrom submits a recvfrom request on a datagram key. On completion (via
// the key's OnReadComplete callback) op.RemoteFrom holds the sender address.
func (k *Key) RecvFrom(op *Op, buf []byte, flags int) (Result, error) {
	n, immediate, err := k.q.dispatcher.RecvFrom(k.k, op, buf, flags)
	if err != nil {
		return Result{}, err
	}
	if immediate {
		return Immediate(n), nil
	}
	return Pending, nil
}

// Send submits a send request on a connected socket. A zero-length buf
// returns Immediate(0) without a syscall.
func (k *Key) Send(op *Op, buf []byte, flags int) (Result, error) {
	n, immediate, err := k.q.dispatcher.Send(k.k, op, buf, flags)
	if err != nil {
		return Result{}, err
	}
	if immediate {
		return Immediate(n), nil
	}
	return Pending, nil
}

// SendTo submits a sendto request targeting to, for unconnected datagram
// sockets.
func (k *Key) SendTo(op *Op, buf []byte, flags int, to unix.Sockaddr) (Result, error) {
	n, immediate, err := k.q.dispatcher.SendTo(k.k, op, buf, flags, to)
	if err != nil {
		return Result{}, err
	}
	if immediate {
		return Immediate(n), nil
	}
	return Pending, nil
}

// Accept submits an accept request on a listening socket. A connection
// already sitting in the backlog is accepted inline, with op.NewFD/
// LocalAddr/RemoteAddr filled synchronously; otherwise it enqueues and the
// new descriptor arrives later via the key's OnAcceptComplete callback.
func (k *Key) Accept(op *Op) (Result, error) {
	newFD, immediate, err := k.q.dispatcher.Accept(k.k, op)
	if err != nil {
		return Result{}, err
	}
	if immediate {
		return Immediate(newFD), nil
	}
	return Pending, nil
}

// Connect submits a non-blocking connect. If a connect is already
// outstanding on this key it returns Pending without issuing a second
// syscall.
func (k *Key) Connect(addr unix.Sockaddr) (Result, error) {
	immediate, err := k.q.dispatcher.Connect(k.k, addr)
	if err != nil {
		return Result{}, err
	}
	if immediate {
		return Immediate(0), nil
	}
	return Pending, nil
}
