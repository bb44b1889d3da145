// Package microkernel is the public facade over the core trio: a
// cooperative task scheduler, bounded-queue IPC, and a service registry with
// crash supervision. Bootstrap, drivers, the panic handler's display logic,
// the shell, and individual demo services live outside this package; they
// are this kernel's collaborators, not part of it.
package microkernel

import (
	"time"

	"github.com/ehrlich-b/microkernel/internal/ipc"
	"github.com/ehrlich-b/microkernel/internal/logging"
	"github.com/ehrlich-b/microkernel/internal/panicpath"
	"github.com/ehrlich-b/microkernel/internal/registry"
	"github.com/ehrlich-b/microkernel/internal/sched"
	"github.com/ehrlich-b/microkernel/internal/supervisor"
	"github.com/ehrlich-b/microkernel/internal/types"
)

// Re-exported value types, so callers of this package never need to import
// an internal package to name a TaskID, EndpointID or Message.
type (
	TaskID     = types.TaskID
	EndpointID = types.EndpointID
	Message    = types.Message
	MsgType    = types.MsgType
	State      = sched.State
)

const (
	NoTask          = types.NoTask
	InvalidEndpoint = types.InvalidEndpoint

	MsgNone      = types.MsgNone
	MsgLog       = types.MsgLog
	MsgEcho      = types.MsgEcho
	MsgEchoReply = types.MsgEchoReply
	MsgTimerTick = types.MsgTimerTick
	MsgHeartbeat = types.MsgHeartbeat
	MsgCrash     = types.MsgCrash

	StateUnused   = sched.StateUnused
	StateRunnable = sched.StateRunnable
	StateFinished = sched.StateFinished
)

// NewMessage builds a fixed-layout Message. See types.NewMessage for the
// payload-length contract.
func NewMessage(t MsgType, sender EndpointID, payload []byte) (Message, error) {
	return types.NewMessage(t, sender, payload)
}

// EntryFunc is a task's body, run on its own goroutine.
type EntryFunc = sched.EntryFunc

// Logger is the narrow interface the kernel logs through.
type Logger = types.Logger

// Options configures Boot. A nil Options, or a nil field within one, takes
// the documented default.
type Options struct {
	// Logger receives kernel diagnostics. Defaults to logging.Default().
	Logger Logger
	// Observer receives scheduler/IPC events. Defaults to recording into the
	// Kernel's own *Metrics, retrievable via Metrics().
	Observer Observer
}

// Kernel wires the scheduler, IPC table, service registry and supervisor
// into one runnable unit. A zero Kernel is not valid; construct one with
// Boot.
type Kernel struct {
	sched      *sched.Scheduler
	ipc        *ipc.Table
	registry   *registry.Table
	supervisor *supervisor.Monitor
	halter     panicpath.Halter

	metrics  *Metrics
	observer Observer
	log      Logger
}

// Boot constructs a Kernel with empty task, registry and supervision tables
// and an endpoint table whose only allocated endpoint is the supervisor's
// (endpoint 0). It does not start dispatching; call Run for that.
func Boot(options *Options) *Kernel {
	if options == nil {
		options = &Options{}
	}
	log := options.Logger
	if log == nil {
		log = logging.Default()
	}

	metrics := NewMetrics()
	observer := options.Observer
	if observer == nil {
		observer = NewMetricsObserver(metrics)
	}

	k := &Kernel{
		sched:    sched.New(log),
		ipc:      ipc.NewTable(),
		registry: registry.NewTable(),
		metrics:  metrics,
		observer: observer,
		log:      log,
	}
	monitorEP, err := k.ipc.CreateEndpoint()
	if err != nil {
		// The endpoint table is only this large at boot; CreateEndpoint cannot
		// fail against a freshly-built table.
		panic("microkernel: failed to reserve supervisor endpoint: " + err.Error())
	}
	k.supervisor = supervisor.New(k.sched, k.ipc, monitorEP, log)
	k.halter = panicpath.NewDefaultHalter(log)

	k.sched.SetDispatchHook(func(id TaskID, elapsed time.Duration) {
		k.observer.ObserveDispatch(id, uint64(elapsed.Nanoseconds()))
	})
	return k
}

// CreateTask installs a new task. See sched.Scheduler.CreateTask.
func (k *Kernel) CreateTask(name string, entry EntryFunc, arg any) (TaskID, error) {
	id, err := k.sched.CreateTask(name, entry, arg)
	if err != nil {
		return NoTask, newError("CreateTask", NoTask, InvalidEndpoint, err)
	}
	return id, nil
}

// Restart re-enters a finished (or running) task from its retained entry.
func (k *Kernel) Restart(id TaskID) error {
	if err := k.sched.Restart(id); err != nil {
		return newError("Restart", id, InvalidEndpoint, err)
	}
	k.observer.ObserveRestart(id)
	return nil
}

// Yield cooperatively gives up the current task's turn.
func (k *Kernel) Yield() { k.sched.Yield() }

// ExitCurrent marks the current task finished.
func (k *Kernel) ExitCurrent() { k.sched.ExitCurrent() }

// Current returns the currently-dispatched TaskID, if any.
func (k *Kernel) Current() (TaskID, bool) { return k.sched.Current() }

// TaskState reports a task's lifecycle state.
func (k *Kernel) TaskState(id TaskID) State { return k.sched.State(id) }

// TaskName returns a task's registered name.
func (k *Kernel) TaskName(id TaskID) string { return k.sched.Name(id) }

// Run dispatches every runnable task round-robin until none remain. It
// returns once the task set is quiescent; a supervisor task that loops
// forever keeps Run from returning, which is the expected steady state for
// a long-running kernel.
func (k *Kernel) Run() { k.sched.Run() }

// CreateEndpoint allocates a new IPC endpoint.
func (k *Kernel) CreateEndpoint() (EndpointID, error) {
	id, err := k.ipc.CreateEndpoint()
	if err != nil {
		return InvalidEndpoint, newError("CreateEndpoint", NoTask, InvalidEndpoint, err)
	}
	return id, nil
}

// Send enqueues msg on id's endpoint, reporting to the observer and
// sampling the resulting queue depth on success.
func (k *Kernel) Send(id EndpointID, msg Message) error {
	err := k.ipc.Send(id, msg)
	k.observer.ObserveSend(id, err == nil)
	if err != nil {
		return newError("Send", NoTask, id, err)
	}
	if depth, derr := k.ipc.Depth(id); derr == nil {
		k.observer.ObserveQueueDepth(id, uint32(depth))
	}
	return nil
}

// Recv dequeues the oldest message on id's endpoint.
func (k *Kernel) Recv(id EndpointID) (Message, error) {
	msg, err := k.ipc.Recv(id)
	k.observer.ObserveRecv(id, err == nil)
	if err != nil {
		return Message{}, newError("Recv", NoTask, id, err)
	}
	return msg, nil
}

// HasMessages reports whether id has at least one message pending.
func (k *Kernel) HasMessages(id EndpointID) (bool, error) {
	has, err := k.ipc.HasMessages(id)
	if err != nil {
		return false, newError("HasMessages", NoTask, id, err)
	}
	return has, nil
}

// RegisterService publishes name -> ep in the service registry.
func (k *Kernel) RegisterService(name string, ep EndpointID) error {
	if err := k.registry.Register(name, ep); err != nil {
		return newError("RegisterService", NoTask, ep, err)
	}
	return nil
}

// LookupService resolves a registered name to its endpoint.
func (k *Kernel) LookupService(name string) (EndpointID, error) {
	ep, err := k.registry.Lookup(name)
	if err != nil {
		return InvalidEndpoint, newError("LookupService", NoTask, InvalidEndpoint, err)
	}
	return ep, nil
}

// Services lists every registered (name, endpoint) pair.
func (k *Kernel) Services() []registry.Entry {
	var entries []registry.Entry
	k.registry.ListAll(func(name string, ep EndpointID) {
		entries = append(entries, registry.Entry{Name: name, Endpoint: ep})
	})
	return entries
}

// LogServices writes every registered (name, endpoint) pair to the kernel's
// logger, exercising registry.ListAll's sink directly rather than building a
// snapshot first.
func (k *Kernel) LogServices() {
	k.registry.ListAll(func(name string, ep EndpointID) {
		k.log.Printf("service %q at endpoint %d", name, ep)
	})
}

// Supervise adds (task, endpoint, name) to the supervision table.
func (k *Kernel) Supervise(task TaskID, ep EndpointID, name string) error {
	if err := k.supervisor.Supervise(task, ep, name); err != nil {
		return newError("Supervise", task, ep, err)
	}
	return nil
}

// ReportCrash raises the crashed flag for the supervised triple whose
// endpoint is ep, matching monitor_report_crash(endpoint_id_t crashed_ep):
// the supervisor matches on endpoint, not task id. The task id recorded by
// Supervise is the one a later supervisor pass restarts.
func (k *Kernel) ReportCrash(ep EndpointID) error {
	if err := k.supervisor.ReportCrash(ep); err != nil {
		return newError("ReportCrash", NoTask, ep, err)
	}
	k.observer.ObserveCrash(ep)
	return nil
}

// ProcessSupervisor restarts every currently-crashed supervised task and
// returns which tasks it restarted. CreateSupervisorTask wires the same
// pass into an actual scheduled task; this method remains for callers that
// want to drive a pass imperatively instead.
func (k *Kernel) ProcessSupervisor() []TaskID {
	restarted := k.supervisor.Process()
	for _, id := range restarted {
		k.observer.ObserveRestart(id)
	}
	return restarted
}

// SupervisorEndpoint returns the endpoint the supervisor owns for heartbeat
// traffic, reserved for future use the same way monitor_endpoint is in the
// reference monitor service.
func (k *Kernel) SupervisorEndpoint() EndpointID { return k.supervisor.Endpoint() }

// CreateSupervisorTask schedules the supervisor itself as a task: each pass
// it drains its own endpoint, restarts whatever has crashed, and yields,
// the scheduled-task form of monitor_service_process. passes bounds how
// many drain/restart/yield cycles the task runs before returning; a
// negative passes runs forever, matching the supervisor's steady-state
// role in a long-running kernel.
func (k *Kernel) CreateSupervisorTask(passes int) (TaskID, error) {
	entry := k.supervisor.EntryN(k.sched, passes)
	id, err := k.sched.CreateTask("supervisor", entry, nil)
	if err != nil {
		return NoTask, newError("CreateSupervisorTask", NoTask, k.supervisor.Endpoint(), err)
	}
	return id, nil
}

// SupervisionStatus lists every supervised task's current status.
func (k *Kernel) SupervisionStatus() []supervisor.Status {
	return k.supervisor.ListAll()
}

// Panic is the kernel's single panic entry point: if a task is current,
// only that task is terminated and Panic returns; otherwise the fault is
// unrecoverable and Panic does not return.
func (k *Kernel) Panic(reason string) {
	panicpath.Handle(k.sched, k.halter, k.log, reason)
}

// Metrics returns the Kernel's built-in metrics instance. Its counters only
// reflect activity if Boot was not given a custom Observer.
func (k *Kernel) Metrics() *Metrics { return k.metrics }

// MetricsSnapshot is a convenience wrapper for Metrics().Snapshot().
func (k *Kernel) MetricsSnapshot() MetricsSnapshot { return k.metrics.Snapshot() }
