// Package ipc implements the bounded-queue message passing subsystem: a
// fixed table of endpoints, each backed by a fixed-depth ring buffer.
// Sending to a full endpoint and receiving from an empty one are both
// ordinary, non-blocking outcomes reported as errors — any blocking
// semantics a caller wants are built on top, as a yield-and-retry loop, not
// provided here.
package ipc

import (
	"errors"
	"sync"

	"github.com/ehrlich-b/microkernel/internal/constants"
	"github.com/ehrlich-b/microkernel/internal/types"
)

var (
	// ErrTableFull is returned by CreateEndpoint when MaxEndpoints are
	// already allocated.
	ErrTableFull = errors.New("ipc: endpoint table is full")
	// ErrInvalidEndpoint is returned for an id outside the table, or one that
	// was never allocated.
	ErrInvalidEndpoint = errors.New("ipc: invalid endpoint")
	// ErrQueueFull is returned by Send when the target endpoint's ring is at
	// capacity.
	ErrQueueFull = errors.New("ipc: queue full")
	// ErrQueueEmpty is returned by Recv when the target endpoint's ring has
	// nothing pending.
	ErrQueueEmpty = errors.New("ipc: queue empty")
)

type endpoint struct {
	allocated bool
	q         *ring
}

// Table is the fixed endpoint table. The zero value is an empty table with
// every slot free; NewTable returns one.
type Table struct {
	mu  sync.Mutex
	eps [constants.MaxEndpoints]endpoint
}

// NewTable returns an empty Table with all MaxEndpoints slots free.
func NewTable() *Table {
	return &Table{}
}

// CreateEndpoint allocates the first free slot and gives it a fresh,
// empty queue. Endpoints are never destroyed once created.
func (t *Table) CreateEndpoint() (types.EndpointID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.eps {
		if !t.eps[i].allocated {
			t.eps[i] = endpoint{allocated: true, q: newRing(constants.EndpointQueueDepth)}
			return types.EndpointID(i), nil
		}
	}
	return types.InvalidEndpoint, ErrTableFull
}

func (t *Table) lookup(id types.EndpointID) (*endpoint, error) {
	if !id.Valid() || int(id) >= constants.MaxEndpoints || !t.eps[id].allocated {
		return nil, ErrInvalidEndpoint
	}
	return &t.eps[id], nil
}

// Send enqueues msg on id's ring buffer. It returns ErrQueueFull rather than
// blocking or overwriting the oldest entry.
func (t *Table) Send(id types.EndpointID, msg types.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	ep, err := t.lookup(id)
	if err != nil {
		return err
	}
	if ep.q.full() {
		return ErrQueueFull
	}
	ep.q.push(msg)
	return nil
}

// Recv dequeues the oldest message on id's ring buffer in FIFO order. It
// returns ErrQueueEmpty rather than blocking. There is no ordering guarantee
// across different endpoints' queues, only within one.
func (t *Table) Recv(id types.EndpointID) (types.Message, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ep, err := t.lookup(id)
	if err != nil {
		return types.Message{}, err
	}
	if ep.q.empty() {
		return types.Message{}, ErrQueueEmpty
	}
	return ep.q.pop(), nil
}

// HasMessages reports whether id has at least one message pending. Callers
// implementing a blocking receive on top of Recv use this (or just retry
// Recv directly) inside a yield loop.
func (t *Table) HasMessages(id types.EndpointID) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ep, err := t.lookup(id)
	if err != nil {
		return false, err
	}
	return !ep.q.empty(), nil
}

// Depth returns the number of messages currently queued on id.
func (t *Table) Depth(id types.EndpointID) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ep, err := t.lookup(id)
	if err != nil {
		return 0, err
	}
	return ep.q.count, nil
}
