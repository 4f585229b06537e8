package ioqueue

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/behrlich/go-ioqueue/internal/interfaces"
)

func TestRecordSubmitConservation(t *testing.T) {
	m := NewMetrics()
	m.RecordSubmit("recv", interfaces.SubmitImmediate)
	m.RecordSubmit("send", interfaces.SubmitPending)
	m.RecordSubmit("accept", interfaces.SubmitError)

	snap := m.Snapshot()
	require.Equal(t, uint64(1), snap.Immediate)
	require.Equal(t, uint64(1), snap.Pending)
	require.Equal(t, uint64(1), snap.Errors)
	require.Equal(t, snap.Immediate+snap.Pending+snap.Errors, snap.RecvOps+snap.SendOps+snap.AcceptOps)
}

func TestRecordDispatchBucketsLatency(t *testing.T) {
	m := NewMetrics()
	m.RecordDispatch(5_000, true)   // falls in the 10us bucket and above
	m.RecordDispatch(50_000_000, true)

	snap := m.Snapshot()
	require.Equal(t, uint64(2), snap.LatencyHistogram[len(LatencyBuckets)-1], "both samples should count toward the widest bucket")
	require.Equal(t, uint64(1), snap.LatencyHistogram[1], "only the 5us sample falls in the 10us bucket")
	require.Greater(t, snap.AvgLatencyNs, uint64(0))
}

func TestRecordKeyCountSnapshots(t *testing.T) {
	m := NewMetrics()
	m.RecordKeyCount(3, 1, 2)
	snap := m.Snapshot()
	require.Equal(t, int64(3), snap.ActiveKeys)
	require.Equal(t, int64(1), snap.ClosingKeys)
	require.Equal(t, int64(2), snap.FreeKeys)
}

func TestNoOpObserverDiscardsEverything(t *testing.T) {
	var obs NoOpObserver
	obs.ObserveSubmit("recv", interfaces.SubmitImmediate)
	obs.ObserveDispatch("recv", 100, true)
	obs.ObserveKeyCount(1, 1, 1)
}
