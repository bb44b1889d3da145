package microkernel

import (
	"sync/atomic"
	"time"

	"github.com/ehrlich-b/microkernel/internal/types"
)

// LatencyBuckets defines the dispatch-latency histogram buckets in
// nanoseconds: the time a task holds the baton between being resumed and
// yielding back. Cooperative turns are expected to be short, so the range
// covers 100ns to 1s rather than ublk's disk-I/O-scaled buckets.
var LatencyBuckets = []uint64{
	100,         // 100ns
	1_000,       // 1us
	10_000,      // 10us
	100_000,     // 100us
	1_000_000,   // 1ms
	10_000_000,  // 10ms
	100_000_000, // 100ms
	1_000_000_000, // 1s
}

const numLatencyBuckets = 8

// Metrics tracks scheduler and IPC activity with atomic counters so it can
// be shared across task goroutines without a lock.
type Metrics struct {
	// Scheduler activity
	Dispatches atomic.Uint64 // total task dispatches (baton switchTo calls)
	Crashes    atomic.Uint64 // total ReportCrash calls
	Restarts   atomic.Uint64 // total successful Restart calls

	// IPC activity
	Sends      atomic.Uint64
	SendErrors atomic.Uint64 // includes QUEUE_FULL and invalid-endpoint
	Recvs      atomic.Uint64
	RecvErrors atomic.Uint64 // includes QUEUE_EMPTY and invalid-endpoint

	// Queue occupancy, sampled by callers via ObserveQueueDepth
	QueueDepthTotal atomic.Uint64
	QueueDepthCount atomic.Uint64
	MaxQueueDepth   atomic.Uint32

	// Dispatch latency
	TotalDispatchLatencyNs atomic.Uint64
	DispatchLatencyCount   atomic.Uint64
	LatencyBuckets         [numLatencyBuckets]atomic.Uint64

	StartTime atomic.Int64
	StopTime  atomic.Int64
}

// NewMetrics returns a Metrics with its clock started.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordDispatch records one task turn's duration and updates the latency
// histogram.
func (m *Metrics) RecordDispatch(latencyNs uint64) {
	m.Dispatches.Add(1)
	m.TotalDispatchLatencyNs.Add(latencyNs)
	m.DispatchLatencyCount.Add(1)
	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LatencyBuckets[i].Add(1)
		}
	}
}

// RecordSend records one Send attempt.
func (m *Metrics) RecordSend(success bool) {
	m.Sends.Add(1)
	if !success {
		m.SendErrors.Add(1)
	}
}

// RecordRecv records one Recv attempt.
func (m *Metrics) RecordRecv(success bool) {
	m.Recvs.Add(1)
	if !success {
		m.RecvErrors.Add(1)
	}
}

// RecordCrash records a ReportCrash call.
func (m *Metrics) RecordCrash() {
	m.Crashes.Add(1)
}

// RecordRestart records a successful Restart call.
func (m *Metrics) RecordRestart() {
	m.Restarts.Add(1)
}

// RecordQueueDepth samples the current depth of one endpoint's queue.
func (m *Metrics) RecordQueueDepth(depth uint32) {
	m.QueueDepthTotal.Add(uint64(depth))
	m.QueueDepthCount.Add(1)
	for {
		current := m.MaxQueueDepth.Load()
		if depth <= current {
			break
		}
		if m.MaxQueueDepth.CompareAndSwap(current, depth) {
			break
		}
	}
}

// Stop marks the end of the measurement window used by Snapshot's uptime
// and rate calculations.
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time, non-atomic view of Metrics, safe to
// pass around and print.
type MetricsSnapshot struct {
	Dispatches uint64
	Crashes    uint64
	Restarts   uint64

	Sends      uint64
	SendErrors uint64
	Recvs      uint64
	RecvErrors uint64

	AvgQueueDepth float64
	MaxQueueDepth uint32

	AvgDispatchLatencyNs uint64
	UptimeNs             uint64

	DispatchLatencyP50Ns  uint64
	DispatchLatencyP99Ns  uint64
	DispatchLatencyP999Ns uint64

	LatencyHistogram [numLatencyBuckets]uint64

	DispatchesPerSecond float64
}

// Snapshot computes a MetricsSnapshot from the current counter values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		Dispatches:    m.Dispatches.Load(),
		Crashes:       m.Crashes.Load(),
		Restarts:      m.Restarts.Load(),
		Sends:         m.Sends.Load(),
		SendErrors:    m.SendErrors.Load(),
		Recvs:         m.Recvs.Load(),
		RecvErrors:    m.RecvErrors.Load(),
		MaxQueueDepth: m.MaxQueueDepth.Load(),
	}

	if count := m.QueueDepthCount.Load(); count > 0 {
		snap.AvgQueueDepth = float64(m.QueueDepthTotal.Load()) / float64(count)
	}

	latencyCount := m.DispatchLatencyCount.Load()
	if latencyCount > 0 {
		snap.AvgDispatchLatencyNs = m.TotalDispatchLatencyNs.Load() / latencyCount
	}

	startTime := m.StartTime.Load()
	stopTime := m.StopTime.Load()
	if stopTime > 0 {
		snap.UptimeNs = uint64(stopTime - startTime)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - startTime)
	}

	if snap.UptimeNs > 0 {
		snap.DispatchesPerSecond = float64(snap.Dispatches) / (float64(snap.UptimeNs) / 1e9)
	}

	for i := 0; i < numLatencyBuckets; i++ {
		snap.LatencyHistogram[i] = m.LatencyBuckets[i].Load()
	}

	if latencyCount > 0 {
		snap.DispatchLatencyP50Ns = m.calculatePercentile(0.50)
		snap.DispatchLatencyP99Ns = m.calculatePercentile(0.99)
		snap.DispatchLatencyP999Ns = m.calculatePercentile(0.999)
	}

	return snap
}

// calculatePercentile estimates the latency at the given percentile
// (0.0-1.0) by linear interpolation between histogram buckets.
func (m *Metrics) calculatePercentile(percentile float64) uint64 {
	total := m.DispatchLatencyCount.Load()
	if total == 0 {
		return 0
	}
	targetCount := uint64(float64(total) * percentile)

	prevBucket := uint64(0)
	for i, bucket := range LatencyBuckets {
		bucketCount := m.LatencyBuckets[i].Load()
		if bucketCount >= targetCount {
			prevCount := uint64(0)
			if i > 0 {
				prevCount = m.LatencyBuckets[i-1].Load()
			}
			if bucketCount == prevCount {
				return bucket
			}
			fraction := float64(targetCount-prevCount) / float64(bucketCount-prevCount)
			return prevBucket + uint64(fraction*float64(bucket-prevBucket))
		}
		prevBucket = bucket
	}
	return LatencyBuckets[numLatencyBuckets-1]
}

// Reset zeroes every counter and restarts the clock. Useful between test
// cases that share a Metrics instance.
func (m *Metrics) Reset() {
	m.Dispatches.Store(0)
	m.Crashes.Store(0)
	m.Restarts.Store(0)
	m.Sends.Store(0)
	m.SendErrors.Store(0)
	m.Recvs.Store(0)
	m.RecvErrors.Store(0)
	m.QueueDepthTotal.Store(0)
	m.QueueDepthCount.Store(0)
	m.MaxQueueDepth.Store(0)
	m.TotalDispatchLatencyNs.Store(0)
	m.DispatchLatencyCount.Store(0)
	for i := 0; i < numLatencyBuckets; i++ {
		m.LatencyBuckets[i].Store(0)
	}
	m.StartTime.Store(time.Now().UnixNano())
	m.StopTime.Store(0)
}

// Observer lets callers plug in their own metrics collection, in place of
// or alongside Metrics. Each method corresponds to one core-trio event.
type Observer interface {
	ObserveDispatch(task types.TaskID, latencyNs uint64)
	ObserveSend(endpoint types.EndpointID, success bool)
	ObserveRecv(endpoint types.EndpointID, success bool)
	ObserveCrash(endpoint types.EndpointID)
	ObserveRestart(task types.TaskID)
	ObserveQueueDepth(endpoint types.EndpointID, depth uint32)
}

// NoOpObserver discards every event.
type NoOpObserver struct{}

func (NoOpObserver) ObserveDispatch(types.TaskID, uint64)        {}
func (NoOpObserver) ObserveSend(types.EndpointID, bool)          {}
func (NoOpObserver) ObserveRecv(types.EndpointID, bool)          {}
func (NoOpObserver) ObserveCrash(types.EndpointID)               {}
func (NoOpObserver) ObserveRestart(types.TaskID)                 {}
func (NoOpObserver) ObserveQueueDepth(types.EndpointID, uint32)  {}

// MetricsObserver implements Observer by recording into a Metrics.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver returns an Observer that records every event into m.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveDispatch(_ types.TaskID, latencyNs uint64) {
	o.metrics.RecordDispatch(latencyNs)
}

func (o *MetricsObserver) ObserveSend(_ types.EndpointID, success bool) {
	o.metrics.RecordSend(success)
}

func (o *MetricsObserver) ObserveRecv(_ types.EndpointID, success bool) {
	o.metrics.RecordRecv(success)
}

func (o *MetricsObserver) ObserveCrash(types.EndpointID) {
	o.metrics.RecordCrash()
}

func (o *MetricsObserver) ObserveRestart(types.TaskID) {
	o.metrics.RecordRestart()
}

func (o *MetricsObserver) ObserveQueueDepth(_ types.EndpointID, depth uint32) {
	o.metrics.RecordQueueDepth(depth)
}

var _ Observer = (*MetricsObserver)(nil)
var _ Observer = (*NoOpObserver)(nil)
