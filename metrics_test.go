package microkernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehrlich-b/microkernel/internal/types"
)

func TestRecordDispatchUpdatesHistogram(t *testing.T) {
	m := NewMetrics()
	m.RecordDispatch(5_000) // 5us, falls in the 10us bucket and above

	snap := m.Snapshot()
	assert.Equal(t, uint64(1), snap.Dispatches)
	assert.Equal(t, uint64(5_000), snap.AvgDispatchLatencyNs)
	assert.Equal(t, uint64(1), snap.LatencyHistogram[2]) // 10us bucket
	assert.Equal(t, uint64(0), snap.LatencyHistogram[0]) // 100ns bucket
}

func TestRecordSendAndRecvErrors(t *testing.T) {
	m := NewMetrics()
	m.RecordSend(true)
	m.RecordSend(false)
	m.RecordRecv(false)

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.Sends)
	assert.Equal(t, uint64(1), snap.SendErrors)
	assert.Equal(t, uint64(1), snap.Recvs)
	assert.Equal(t, uint64(1), snap.RecvErrors)
}

func TestRecordCrashAndRestart(t *testing.T) {
	m := NewMetrics()
	m.RecordCrash()
	m.RecordCrash()
	m.RecordRestart()

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.Crashes)
	assert.Equal(t, uint64(1), snap.Restarts)
}

func TestRecordQueueDepthTracksMaxAndAverage(t *testing.T) {
	m := NewMetrics()
	m.RecordQueueDepth(2)
	m.RecordQueueDepth(8)
	m.RecordQueueDepth(4)

	snap := m.Snapshot()
	assert.Equal(t, uint32(8), snap.MaxQueueDepth)
	assert.InDelta(t, float64(14)/3, snap.AvgQueueDepth, 0.0001)
}

func TestSnapshotUptimeAfterStop(t *testing.T) {
	m := NewMetrics()
	m.Stop()
	snap := m.Snapshot()
	assert.GreaterOrEqual(t, snap.UptimeNs, uint64(0))
}

func TestResetZeroesCounters(t *testing.T) {
	m := NewMetrics()
	m.RecordDispatch(1_000)
	m.RecordSend(false)
	m.Reset()

	snap := m.Snapshot()
	assert.Equal(t, uint64(0), snap.Dispatches)
	assert.Equal(t, uint64(0), snap.Sends)
}

func TestMetricsObserverRecordsEvents(t *testing.T) {
	m := NewMetrics()
	obs := NewMetricsObserver(m)

	obs.ObserveDispatch(types.TaskID(1), 2_000)
	obs.ObserveSend(types.EndpointID(1), true)
	obs.ObserveRecv(types.EndpointID(1), false)
	obs.ObserveCrash(types.EndpointID(1))
	obs.ObserveRestart(types.TaskID(1))
	obs.ObserveQueueDepth(types.EndpointID(1), 3)

	snap := m.Snapshot()
	assert.Equal(t, uint64(1), snap.Dispatches)
	assert.Equal(t, uint64(1), snap.Sends)
	assert.Equal(t, uint64(1), snap.Recvs)
	assert.Equal(t, uint64(1), snap.RecvErrors)
	assert.Equal(t, uint64(1), snap.Crashes)
	assert.Equal(t, uint64(1), snap.Restarts)
	assert.Equal(t, uint32(3), snap.MaxQueueDepth)
}

func TestNoOpObserverDoesNothing(t *testing.T) {
	var obs Observer = NoOpObserver{}
	require.NotPanics(t, func() {
		obs.ObserveDispatch(types.TaskID(0), 1)
		obs.ObserveSend(types.EndpointID(0), true)
		obs.ObserveRecv(types.EndpointID(0), true)
		obs.ObserveCrash(types.EndpointID(0))
		obs.ObserveRestart(types.TaskID(0))
		obs.ObserveQueueDepth(types.EndpointID(0), 0)
	})
}
