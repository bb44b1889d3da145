// Package demo provides small, test-grade task bodies that exercise IPC,
// the service registry and the supervisor — an echo service and a timer
// fan-out, grounded on the reference echo_service.c and timer_service.c.
// These are deliberately not full services: the spec treats individual
// demo services as external collaborators of the scheduler/IPC/supervisor
// core, so what lives here is just enough behavior for this package's own
// tests to exercise those primitives. The scenario tests and the cmd/
// programs write their own task bodies and do not import this package.
package demo

import (
	"github.com/ehrlich-b/microkernel/internal/ipc"
	"github.com/ehrlich-b/microkernel/internal/types"
)

// Yielder is satisfied by *sched.Scheduler. Task bodies depend on this
// narrow interface instead of the concrete scheduler type.
type Yielder interface {
	Yield()
}

// Exiter is satisfied by *sched.Scheduler.
type Exiter interface {
	ExitCurrent()
}

// CrashReporter is satisfied by *supervisor.Monitor. Crashes are reported by
// endpoint, matching monitor_report_crash(endpoint_id_t crashed_ep) — the
// supervisor scans its supervision table by endpoint, not task id.
type CrashReporter interface {
	ReportCrash(ep types.EndpointID) error
}

// EchoEntry returns a task body that replies to every MsgEcho it receives
// on ep with a MsgEchoReply carrying the same payload, addressed back to
// the original sender, then yields. Any other message type on ep is
// drained and ignored. It runs forever, mirroring echo_service_process
// being called once per scheduler pass for the lifetime of the kernel.
func EchoEntry(tbl *ipc.Table, ep types.EndpointID, y Yielder) func(arg any) {
	return func(arg any) {
		for {
			drainEcho(tbl, ep)
			y.Yield()
		}
	}
}

func drainEcho(tbl *ipc.Table, ep types.EndpointID) {
	for {
		has, err := tbl.HasMessages(ep)
		if err != nil || !has {
			return
		}
		msg, err := tbl.Recv(ep)
		if err != nil {
			return
		}
		if msg.Type != types.MsgEcho {
			continue
		}
		reply, err := types.NewMessage(types.MsgEchoReply, ep, msg.PayloadBytes())
		if err != nil {
			continue
		}
		_ = tbl.Send(msg.Sender, reply)
	}
}

// CrashableEchoEntry behaves like EchoEntry, except a MsgCrash message ends
// the task instead of being echoed: it reports the crash against ep, marks
// the task finished via exiter, and returns, letting the scheduler's
// terminal-yield path take over. This is the demo task scenario tests use
// to exercise "supervisor restarts a crashed service".
func CrashableEchoEntry(tbl *ipc.Table, ep types.EndpointID, y Yielder, exiter Exiter, reporter CrashReporter) func(arg any) {
	return func(arg any) {
		for {
			if has, err := tbl.HasMessages(ep); err != nil || !has {
				y.Yield()
				continue
			}
			msg, err := tbl.Recv(ep)
			if err != nil {
				y.Yield()
				continue
			}
			switch msg.Type {
			case types.MsgCrash:
				_ = reporter.ReportCrash(ep)
				exiter.ExitCurrent()
				return
			case types.MsgEcho:
				reply, err := types.NewMessage(types.MsgEchoReply, ep, msg.PayloadBytes())
				if err == nil {
					_ = tbl.Send(msg.Sender, reply)
				}
			}
		}
	}
}

// TimerEntry returns a task body grounded on timer_service_tick: each pass
// it increments a tick counter and sends a MsgTimerTick carrying that count
// (little-endian uint32 payload) to every subscriber, ignoring QUEUE_FULL
// the same way the original does (a slow subscriber does not block the
// timer). It runs ticks times and then returns, rather than forever, so
// scenario tests can bound it.
func TimerEntry(tbl *ipc.Table, ep types.EndpointID, subscribers []types.EndpointID, ticks int, y Yielder) func(arg any) {
	return func(arg any) {
		counter := uint32(0)
		for i := 0; i < ticks; i++ {
			counter++
			payload := []byte{byte(counter), byte(counter >> 8), byte(counter >> 16), byte(counter >> 24)}
			for _, sub := range subscribers {
				msg, err := types.NewMessage(types.MsgTimerTick, ep, payload)
				if err != nil {
					continue
				}
				if err := tbl.Send(sub, msg); err != nil && err != ipc.ErrQueueFull {
					continue
				}
			}
			y.Yield()
		}
	}
}
