package ioqueue

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWithDefaultsFillsZeroFields(t *testing.T) {
	cfg := Config{}.withDefaults()
	require.Equal(t, DefaultCapacity, cfg.Capacity)
	require.Equal(t, BackendAuto, cfg.Backend)
	require.Equal(t, DefaultMaxEventsPerPoll, cfg.MaxEventsPerPoll)
	require.Equal(t, DefaultFreeDelay, cfg.FreeDelay)
	require.NotNil(t, cfg.Logger)
	require.NotNil(t, cfg.Observer)
	require.NotNil(t, cfg.Clock)
}

func TestWithDefaultsPreservesExplicitValues(t *testing.T) {
	cfg := Config{Capacity: 7, Backend: BackendSelect}.withDefaults()
	require.Equal(t, 7, cfg.Capacity)
	require.Equal(t, BackendSelect, cfg.Backend)
}

func TestNewAndDestroyZeroConfig(t *testing.T) {
	q, err := New(Config{})
	require.NoError(t, err)
	require.NoError(t, q.Destroy())
}
