package ioq

import (
	"errors"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsKindMatchesOnKindNotIdentity(t *testing.T) {
	e1 := NewError("recv", KindInvalidArg, "bad buffer")
	e2 := NewError("send", KindInvalidArg, "nil key")
	require.True(t, errors.Is(e1, e2), "errors.Is should match by Kind across distinct instances")
	require.True(t, IsKind(e1, KindInvalidArg))
	require.False(t, IsKind(e1, KindClosing))
}

func TestOsErrorCarriesErrno(t *testing.T) {
	err := OsError("recv", syscall.ECONNREFUSED)
	require.True(t, IsErrno(err, syscall.ECONNREFUSED))
	require.False(t, IsErrno(err, syscall.EAGAIN))
	require.ErrorIs(t, err, err) // identity
	require.Contains(t, err.Error(), "recv")
}

func TestWrapErrorPreservesKind(t *testing.T) {
	inner := OsError("accept", syscall.EMFILE)
	wrapped := WrapError("register", inner)
	require.Equal(t, KindOsError, wrapped.Kind)
	require.Equal(t, syscall.EMFILE, wrapped.Errno)
	require.Equal(t, "register", wrapped.Op)
}

func TestWrapErrorNilIsNil(t *testing.T) {
	require.Nil(t, WrapError("x", nil))
}

func TestWrapErrorPlainErrnoBecomesOsError(t *testing.T) {
	wrapped := WrapError("connect", syscall.ECONNRESET)
	require.Equal(t, KindOsError, wrapped.Kind)
	require.Equal(t, syscall.ECONNRESET, wrapped.Errno)
}
