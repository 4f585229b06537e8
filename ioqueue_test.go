package ioqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func udpSocket(t *testing.T) int {
	t.Helper()
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, 0)
	require.NoError(t, err)
	require.NoError(t, unix.Bind(fd, &unix.SockaddrInet4{Port: 0, Addr: [4]byte{127, 0, 0, 1}}))
	t.Cleanup(func() { unix.Close(fd) })
	return fd
}

func boundPort(t *testing.T, fd int) int {
	t.Helper()
	sa, err := unix.Getsockname(fd)
	require.NoError(t, err)
	sa4, ok := sa.(*unix.SockaddrInet4)
	require.True(t, ok)
	return sa4.Port
}

func TestDatagramEchoEndToEnd(t *testing.T) {
	q, err := New(Config{Capacity: 4, Backend: BackendAuto})
	require.NoError(t, err)
	defer q.Destroy()

	server := udpSocket(t)
	port := boundPort(t, server)

	done := make(chan struct{})
	var gotN int
	var gotBuf []byte
	buf := make([]byte, 16)

	k, err := q.Register(server, nil, Callbacks{
		OnReadComplete: func(n int, _ interface{}, err error) {
			require.NoError(t, err)
			gotN = n
			gotBuf = append([]byte(nil), buf[:n]...)
			close(done)
		},
	}, nil)
	require.NoError(t, err)

	var op Op
	res, err := k.RecvFrom(&op, buf, 0)
	require.NoError(t, err)
	require.True(t, res.IsPending())

	client, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, 0)
	require.NoError(t, err)
	defer unix.Close(client)
	require.NoError(t, unix.Sendto(client, []byte("PING"), 0, &unix.SockaddrInet4{Port: port, Addr: [4]byte{127, 0, 0, 1}}))

	deadline := time.Now().Add(2 * time.Second)
	fired := false
	for time.Now().Before(deadline) && !fired {
		select {
		case <-done:
			fired = true
		default:
			if _, err := q.Poll(100 * time.Millisecond); err != nil {
				t.Fatalf("Poll: %v", err)
			}
		}
	}
	if !fired {
		t.Fatal("datagram callback never fired")
	}
	require.Equal(t, 4, gotN)
	require.Equal(t, "PING", string(gotBuf))

	require.NoError(t, q.Unregister(k))
}

func TestStreamSendImmediateEndToEnd(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])
	require.NoError(t, unix.SetNonblock(fds[0], true))
	require.NoError(t, unix.SetNonblock(fds[1], true))

	q, err := New(Config{Capacity: 4, Backend: BackendAuto})
	require.NoError(t, err)
	defer q.Destroy()

	k, err := q.Register(fds[0], nil, Callbacks{}, nil)
	require.NoError(t, err)
	defer q.Unregister(k)

	var op Op
	res, err := k.Send(&op, []byte("hello"), 0)
	require.NoError(t, err)
	require.True(t, res.IsImmediate())
	require.Equal(t, 5, res.N)

	out := make([]byte, 16)
	n, err := unix.Read(fds[1], out)
	require.NoError(t, err)
	require.Equal(t, "hello", string(out[:n]))
}

func TestRegisterRejectsCapacityExhausted(t *testing.T) {
	q, err := New(Config{Capacity: 1, Backend: BackendAuto})
	require.NoError(t, err)
	defer q.Destroy()

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	_, err = q.Register(fds[0], nil, Callbacks{}, nil)
	require.NoError(t, err)

	fds2, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	defer unix.Close(fds2[0])
	defer unix.Close(fds2[1])

	_, err = q.Register(fds2[0], nil, Callbacks{}, nil)
	require.ErrorIs(t, err, ErrTooMany)
}
