package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestManualAdvance(t *testing.T) {
	var m Manual
	start := m.Now()
	m.Advance(5 * time.Second)
	require.True(t, start.Before(m.Now()))
	require.Equal(t, start.Add(5*time.Second), m.Now())
}

func TestManualSleepAdvancesInsteadOfBlocking(t *testing.T) {
	var m Manual
	before := time.Now()
	m.Sleep(time.Hour)
	require.Less(t, time.Since(before), 100*time.Millisecond, "Manual.Sleep must not actually block")
	require.Equal(t, Tick(time.Hour), m.Now())
}

func TestRealNowMonotonic(t *testing.T) {
	r := Real{}
	a := r.Now()
	time.Sleep(time.Millisecond)
	b := r.Now()
	require.True(t, a.Before(b))
}
