package ioqueue

import (
	"sync/atomic"
	"time"

	"github.com/behrlich/go-ioqueue/internal/interfaces"
)

// LatencyBuckets defines the dispatch-latency histogram buckets in
// nanoseconds, logarithmically spaced from 1us to 10s — unchanged from the
// teacher's bucket choice, which fits a completion core just as well as a
// block-device one.
var LatencyBuckets = []uint64{
	1_000,
	10_000,
	100_000,
	1_000_000,
	10_000_000,
	100_000_000,
	1_000_000_000,
	10_000_000_000,
}

const numLatencyBuckets = 8

// Metrics tracks IOQ activity: one counter per submission op, plus
// Immediate/Pending/Errors tallies shared by all ops, where Pending +
// Immediate + Errors must always equal total submissions, plus key-list
// gauges and a dispatch-latency histogram.
type Metrics struct {
	RecvOps    atomic.Uint64
	RecvFromOps atomic.Uint64
	SendOps    atomic.Uint64
	SendToOps  atomic.Uint64
	AcceptOps  atomic.Uint64
	ConnectOps atomic.Uint64

	Immediate atomic.Uint64
	Pending   atomic.Uint64
	Errors    atomic.Uint64

	ActiveKeys  atomic.Int64
	ClosingKeys atomic.Int64
	FreeKeys    atomic.Int64

	TotalLatencyNs atomic.Uint64
	DispatchCount  atomic.Uint64
	LatencyBuckets [numLatencyBuckets]atomic.Uint64

	StartTime atomic.Int64
}

// NewMetrics creates a fresh, zeroed Metrics instance.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

func (m *Metrics) opCounter(op string) *atomic.Uint64 {
	switch op {
	case "recv":
		return &m.RecvOps
	case "recvfrom":
		return &m.RecvFromOps
	case "send":
		return &m.SendOps
	case "sendto":
		return &m.SendToOps
	case "accept":
		return &m.AcceptOps
	case "connect":
		return &m.ConnectOps
	default:
		return nil
	}
}

// RecordSubmit increments the per-op counter and the Immediate/Pending/Error
// tally for a submission outcome.
func (m *Metrics) RecordSubmit(op string, status interfaces.SubmitStatus) {
	if c := m.opCounter(op); c != nil {
		c.Add(1)
	}
	switch status {
	case interfaces.SubmitImmediate:
		m.Immediate.Add(1)
	case interfaces.SubmitPending:
		m.Pending.Add(1)
	case interfaces.SubmitError:
		m.Errors.Add(1)
	}
}

// RecordDispatch records one completed callback and its latency.
func (m *Metrics) RecordDispatch(latencyNs uint64, success bool) {
	m.TotalLatencyNs.Add(latencyNs)
	m.DispatchCount.Add(1)
	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LatencyBuckets[i].Add(1)
		}
	}
}

// RecordKeyCount snapshots the registry's list sizes.
func (m *Metrics) RecordKeyCount(active, closing, free int) {
	m.ActiveKeys.Store(int64(active))
	m.ClosingKeys.Store(int64(closing))
	m.FreeKeys.Store(int64(free))
}

// MetricsSnapshot is a point-in-time read of Metrics.
type MetricsSnapshot struct {
	RecvOps, RecvFromOps, SendOps, SendToOps, AcceptOps, ConnectOps uint64
	Immediate, Pending, Errors                                      uint64
	ActiveKeys, ClosingKeys, FreeKeys                                int64
	AvgLatencyNs                                                    uint64
	UptimeNs                                                        uint64
	LatencyHistogram                                                [numLatencyBuckets]uint64
}

// Snapshot captures the current metrics values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		RecvOps:     m.RecvOps.Load(),
		RecvFromOps: m.RecvFromOps.Load(),
		SendOps:     m.SendOps.Load(),
		SendToOps:   m.SendToOps.Load(),
		AcceptOps:   m.AcceptOps.Load(),
		ConnectOps:  m.ConnectOps.Load(),
		Immediate:   m.Immediate.Load(),
		Pending:     m.Pending.Load(),
		Errors:      m.Errors.Load(),
		ActiveKeys:  m.ActiveKeys.Load(),
		ClosingKeys: m.ClosingKeys.Load(),
		FreeKeys:    m.FreeKeys.Load(),
		UptimeNs:    uint64(time.Now().UnixNano() - m.StartTime.Load()),
	}
	dispatchCount := m.DispatchCount.Load()
	if dispatchCount > 0 {
		snap.AvgLatencyNs = m.TotalLatencyNs.Load() / dispatchCount
	}
	for i := 0; i < numLatencyBuckets; i++ {
		snap.LatencyHistogram[i] = m.LatencyBuckets[i].Load()
	}
	return snap
}

// MetricsObserver adapts Metrics to interfaces.Observer.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver builds an Observer that records into m.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveSubmit(op string, status interfaces.SubmitStatus) {
	o.metrics.RecordSubmit(op, status)
}

func (o *MetricsObserver) ObserveDispatch(op string, latencyNs uint64, success bool) {
	o.metrics.RecordDispatch(latencyNs, success)
}

func (o *MetricsObserver) ObserveKeyCount(active, closing, free int) {
	o.metrics.RecordKeyCount(active, closing, free)
}

// NoOpObserver discards every observation; the default when no Metrics is
// configured.
type NoOpObserver struct{}

func (NoOpObserver) ObserveSubmit(string, interfaces.SubmitStatus)  {}
func (NoOpObserver) ObserveDispatch(string, uint64, bool)           {}
func (NoOpObserver) ObserveKeyCount(int, int, int)                  {}

var _ interfaces.Observer = (*MetricsObserver)(nil)
var _ interfaces.Observer = (*NoOpObserver)(nil)
