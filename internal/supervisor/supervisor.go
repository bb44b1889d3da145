// Package supervisor implements crash tracking and restart: a fixed table
// of (task, endpoint, name) triples, a crashed flag per triple, and a
// Process pass that restarts whatever has crashed since the last pass.
//
// The supervisor is itself meant to run as a scheduled task, grounded on
// monitor_service_process: it owns an endpoint (currently reserved for
// future heartbeat traffic, drained and ignored), drains it, then scans for
// crashed services and restarts them, before yielding back to the
// scheduler. Process stays a standalone, single bounded pass (easy to unit
// test and to call imperatively, as cmd/pingpong-style callers may still
// want), and Entry/EntryN wrap it as the "loop { drain; Process; Yield }"
// task body the spec describes.
package supervisor

import (
	"errors"
	"sync"

	"github.com/ehrlich-b/microkernel/internal/constants"
	"github.com/ehrlich-b/microkernel/internal/types"
)

var (
	// ErrTableFull is returned by Supervise when SupervisionCapacity triples
	// are already tracked.
	ErrTableFull = errors.New("supervisor: table is full")
	// ErrNotSupervised is returned by ReportCrash for an endpoint with no
	// supervision record.
	ErrNotSupervised = errors.New("supervisor: endpoint is not supervised")
)

type record struct {
	used     bool
	task     types.TaskID
	endpoint types.EndpointID
	name     string
	crashed  bool
}

// Restarter is the subset of *sched.Scheduler the monitor needs. It is an
// interface so this package does not import internal/sched, keeping the
// dependency direction composition-layer-down rather than peer-to-peer.
type Restarter interface {
	Restart(id types.TaskID) error
}

// Drainer is the subset of *ipc.Table the monitor needs to drain its own
// endpoint. Narrow by the same rationale as Restarter.
type Drainer interface {
	HasMessages(ep types.EndpointID) (bool, error)
	Recv(ep types.EndpointID) (types.Message, error)
}

// Yielder is satisfied by *sched.Scheduler. Entry/EntryN depend on this
// narrow interface instead of the concrete scheduler type.
type Yielder interface {
	Yield()
}

// Monitor is the fixed-capacity supervision table, plus the endpoint it
// owns for future heartbeat traffic.
type Monitor struct {
	mu        sync.Mutex
	records   [constants.SupervisionCapacity]record
	restarter Restarter
	drainer   Drainer
	endpoint  types.EndpointID
	log       types.Logger
}

// New returns a Monitor that restarts crashed tasks through restarter and
// drains ep (via drainer) on every Entry/EntryN pass. drainer may be nil if
// the caller never schedules the monitor as a task (Supervise/ReportCrash/
// Process remain usable without one).
func New(restarter Restarter, drainer Drainer, ep types.EndpointID, log types.Logger) *Monitor {
	return &Monitor{restarter: restarter, drainer: drainer, endpoint: ep, log: log}
}

// Endpoint returns the endpoint the monitor owns for heartbeat traffic.
func (m *Monitor) Endpoint() types.EndpointID {
	return m.endpoint
}

// Supervise adds a (task, endpoint, name) triple to the first free slot.
func (m *Monitor) Supervise(task types.TaskID, ep types.EndpointID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		if !m.records[i].used {
			m.records[i] = record{used: true, task: task, endpoint: ep, name: name}
			return nil
		}
	}
	return ErrTableFull
}

// ReportCrash raises the crashed flag for the supervised triple whose
// endpoint matches ep — a linear scan keyed by endpoint, not task id,
// matching monitor_report_crash(endpoint_id_t crashed_ep). It does not
// restart anything itself; that happens on the next Process pass.
func (m *Monitor) ReportCrash(ep types.EndpointID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		if m.records[i].used && m.records[i].endpoint == ep {
			m.records[i].crashed = true
			if m.log != nil {
				m.log.Printf("supervisor: task %q (endpoint %d) reported crashed", m.records[i].name, ep)
			}
			return nil
		}
	}
	return ErrNotSupervised
}

// Process restarts every currently-crashed task through the configured
// Restarter and clears their crashed flags. It returns the task IDs it
// restarted, in table order.
func (m *Monitor) Process() []types.TaskID {
	m.mu.Lock()
	defer m.mu.Unlock()
	var restarted []types.TaskID
	for i := range m.records {
		r := &m.records[i]
		if !r.used || !r.crashed {
			continue
		}
		if err := m.restarter.Restart(r.task); err != nil {
			if m.log != nil {
				m.log.Printf("supervisor: restart of %q (id %d) failed: %v", r.name, r.task, err)
			}
			continue
		}
		r.crashed = false
		restarted = append(restarted, r.task)
		if m.log != nil {
			m.log.Printf("supervisor: restarted %q (id %d)", r.name, r.task)
		}
	}
	return restarted
}

// drain empties the monitor's own endpoint, mirroring
// monitor_service_process's "while (ipc_recv(monitor_endpoint, &msg) ==
// IPC_SUCCESS)" — currently there is nothing meaningful in these messages
// (reserved for future heartbeat traffic), so they are read and discarded.
// A nil drainer (a Monitor never wired to an endpoint) makes this a no-op.
func (m *Monitor) drain() {
	if m.drainer == nil {
		return
	}
	for {
		has, err := m.drainer.HasMessages(m.endpoint)
		if err != nil || !has {
			return
		}
		if _, err := m.drainer.Recv(m.endpoint); err != nil {
			return
		}
	}
}

// Entry returns a task body suitable for sched.CreateTask: each pass it
// drains the monitor's endpoint, runs Process, and yields, forever — the
// scheduled-task form of monitor_service_process. It never returns, the
// same way a real supervisor task never finishes on its own.
func (m *Monitor) Entry(y Yielder) func(arg any) {
	return m.boundedEntry(y, -1)
}

// EntryN is Entry bounded to passes iterations, for demos and tests that
// need the scheduler's Run to quiesce — the same boundedness idiom
// internal/demo.TimerEntry uses for the same reason.
func (m *Monitor) EntryN(y Yielder, passes int) func(arg any) {
	return m.boundedEntry(y, passes)
}

func (m *Monitor) boundedEntry(y Yielder, passes int) func(arg any) {
	return func(arg any) {
		for i := 0; passes < 0 || i < passes; i++ {
			m.drain()
			m.Process()
			y.Yield()
		}
	}
}

// Status reports a supervised task's (name, endpoint, crashed) tuple.
type Status struct {
	Task     types.TaskID
	Endpoint types.EndpointID
	Name     string
	Crashed  bool
}

// ListAll returns every supervised record, in table order.
func (m *Monitor) ListAll() []Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Status, 0, constants.SupervisionCapacity)
	for _, r := range m.records {
		if r.used {
			out = append(out, Status{Task: r.task, Endpoint: r.endpoint, Name: r.name, Crashed: r.crashed})
		}
	}
	return out
}
