package ioqueue

import (
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOsErrorRoundTripsThroughRootAlias(t *testing.T) {
	err := OsError("recv", syscall.EPIPE)
	require.True(t, IsErrno(err, syscall.EPIPE))
	require.True(t, IsKind(err, KindOsError))
}

func TestSentinelErrorsMatchByKind(t *testing.T) {
	wrapped := &Error{Op: "accept", Kind: KindClosing}
	require.ErrorIs(t, wrapped, ErrClosing)
	require.False(t, IsKind(wrapped, KindInvalidArg))
}
