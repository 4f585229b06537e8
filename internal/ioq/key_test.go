package ioq

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/behrlich/go-ioqueue/internal/grouplock"
)

func TestNewKeyDefaults(t *testing.T) {
	k := NewKey(7, SocketStream, Callbacks{}, "handle", nil)
	require.Equal(t, 7, k.FD)
	require.Equal(t, SocketStream, k.SocketKind)
	require.Equal(t, "handle", k.GetUserData())
	require.False(t, k.Closing())
	require.Equal(t, int32(1), k.RefCount())
	require.True(t, k.ReadQ.Empty())
	require.True(t, k.WriteQ.Empty())
	require.True(t, k.AcceptQ.Empty())
}

func TestNewKeyAddsGroupLockRef(t *testing.T) {
	gl := grouplock.New()
	require.Equal(t, int32(1), gl.RefCount())
	_ = NewKey(7, SocketStream, Callbacks{}, nil, gl)
	require.Equal(t, int32(2), gl.RefCount())
}

func TestMarkClosingIdempotent(t *testing.T) {
	k := NewKey(1, SocketStream, Callbacks{}, nil, nil)
	require.True(t, k.markClosing())
	require.True(t, k.Closing())
	require.False(t, k.markClosing(), "second markClosing call must report no transition")
}

func TestSetUserDataReturnsPrevious(t *testing.T) {
	k := NewKey(1, SocketStream, Callbacks{}, "old", nil)
	prev := k.SetUserData("new")
	require.Equal(t, "old", prev)
	require.Equal(t, "new", k.GetUserData())
}

func TestQueueOpWiresNodeOnce(t *testing.T) {
	k := NewKey(1, SocketStream, Callbacks{}, nil, nil)
	op := &Op{Tag: TagRecv}
	k.Lock()
	queueOp(&k.ReadQ, op)
	k.Unlock()
	require.Equal(t, 1, k.ReadQ.Len())
	require.Same(t, op, k.ReadQ.Front().Value)
}

func TestRefCountTracksAddDec(t *testing.T) {
	k := NewKey(1, SocketStream, Callbacks{}, nil, nil)
	k.AddRef()
	require.Equal(t, int32(2), k.RefCount())
	require.False(t, k.DecRef())
	require.True(t, k.DecRef())
}
