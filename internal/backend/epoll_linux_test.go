//go:build linux

package backend

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/behrlich/go-ioqueue/internal/ioq"
)

func TestEpollReportsReadableAndWritable(t *testing.T) {
	a, b := socketpair(t)
	e, err := NewEpoll(true)
	require.NoError(t, err)
	defer e.Close()

	k := ioq.NewKey(a, ioq.SocketStream, ioq.Callbacks{}, nil, nil)
	require.NoError(t, e.Register(k))
	// Arm derives EPOLLOUT from key state: an outstanding connect asks for
	// write-readiness.
	k.Connecting = true
	require.NoError(t, e.Arm(k, ioq.DirWrite))

	_, err = unix.Write(b, []byte("hi"))
	require.NoError(t, err)

	events, err := e.Wait(1000)
	require.NoError(t, err)
	require.NotEmpty(t, events)

	var sawReadable, sawWritable bool
	for _, ev := range events {
		require.Same(t, k, ev.Key)
		if ev.Readable {
			sawReadable = true
		}
		if ev.Writable {
			sawWritable = true
		}
	}
	require.True(t, sawReadable)
	require.True(t, sawWritable)
}

func TestEpollRemoveDropsInterest(t *testing.T) {
	a, b := socketpair(t)
	e, err := NewEpoll(true)
	require.NoError(t, err)
	defer e.Close()

	k := ioq.NewKey(a, ioq.SocketStream, ioq.Callbacks{}, nil, nil)
	require.NoError(t, e.Register(k))
	require.NoError(t, e.Remove(k))

	_, err = unix.Write(b, []byte("hi"))
	require.NoError(t, err)

	events, err := e.Wait(50)
	require.NoError(t, err)
	require.Empty(t, events)
}

func TestEpollWaitTimesOutWithNoEvents(t *testing.T) {
	a, _ := socketpair(t)
	e, err := NewEpoll(true)
	require.NoError(t, err)
	defer e.Close()

	k := ioq.NewKey(a, ioq.SocketStream, ioq.Callbacks{}, nil, nil)
	require.NoError(t, e.Register(k))

	events, err := e.Wait(50)
	require.NoError(t, err)
	require.Empty(t, events)
}
