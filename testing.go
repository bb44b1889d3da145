package microkernel

import (
	"fmt"
	"sync"

	"github.com/ehrlich-b/microkernel/internal/types"
)

// DispatchEvent records one ObserveDispatch call.
type DispatchEvent struct {
	Task      types.TaskID
	LatencyNs uint64
}

// SendEvent records one ObserveSend or ObserveRecv call.
type SendEvent struct {
	Endpoint types.EndpointID
	Success  bool
}

// QueueDepthEvent records one ObserveQueueDepth call.
type QueueDepthEvent struct {
	Endpoint types.EndpointID
	Depth    uint32
}

// RecordingObserver is an Observer that keeps every event it receives
// instead of aggregating them, so tests can assert on exactly what the
// kernel reported rather than on derived statistics.
type RecordingObserver struct {
	mu sync.Mutex

	Dispatches  []DispatchEvent
	Sends       []SendEvent
	Recvs       []SendEvent
	Crashes     []types.EndpointID
	Restarts    []types.TaskID
	QueueDepths []QueueDepthEvent
}

// NewRecordingObserver returns an empty RecordingObserver.
func NewRecordingObserver() *RecordingObserver {
	return &RecordingObserver{}
}

func (r *RecordingObserver) ObserveDispatch(task types.TaskID, latencyNs uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Dispatches = append(r.Dispatches, DispatchEvent{Task: task, LatencyNs: latencyNs})
}

func (r *RecordingObserver) ObserveSend(endpoint types.EndpointID, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Sends = append(r.Sends, SendEvent{Endpoint: endpoint, Success: success})
}

func (r *RecordingObserver) ObserveRecv(endpoint types.EndpointID, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Recvs = append(r.Recvs, SendEvent{Endpoint: endpoint, Success: success})
}

func (r *RecordingObserver) ObserveCrash(ep types.EndpointID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Crashes = append(r.Crashes, ep)
}

func (r *RecordingObserver) ObserveRestart(task types.TaskID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Restarts = append(r.Restarts, task)
}

func (r *RecordingObserver) ObserveQueueDepth(endpoint types.EndpointID, depth uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.QueueDepths = append(r.QueueDepths, QueueDepthEvent{Endpoint: endpoint, Depth: depth})
}

// Reset clears every recorded event.
func (r *RecordingObserver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Dispatches = nil
	r.Sends = nil
	r.Recvs = nil
	r.Crashes = nil
	r.Restarts = nil
	r.QueueDepths = nil
}

// recordingLogger is a types.Logger that appends every formatted line to a
// slice, for tests that assert on what the kernel logged rather than just
// that logging didn't panic.
type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

// NewRecordingLogger returns a types.Logger suitable for assembling a
// Kernel under test.
func NewRecordingLogger() *recordingLogger {
	return &recordingLogger{}
}

func (l *recordingLogger) Printf(format string, args ...any) {
	l.append(format, args...)
}

func (l *recordingLogger) Debugf(format string, args ...any) {
	l.append(format, args...)
}

func (l *recordingLogger) append(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

// Lines returns every line logged so far.
func (l *recordingLogger) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.lines))
	copy(out, l.lines)
	return out
}

var _ Observer = (*RecordingObserver)(nil)
var _ types.Logger = (*recordingLogger)(nil)
