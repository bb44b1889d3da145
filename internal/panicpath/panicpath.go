// Package panicpath implements the kernel's single panic entry point. Every
// fault, from any subsystem, funnels through Handle rather than each caller
// deciding for itself whether to kill a task or stop everything — exactly
// one branch, on whether a task is current, decides which.
package panicpath

import (
	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/microkernel/internal/types"
)

// Scheduler is the subset of *sched.Scheduler Handle needs: whether a task
// is current, and how to terminate it. Declared here rather than imported
// from internal/sched so this package can be unit tested without a real
// scheduler.
type Scheduler interface {
	Current() (types.TaskID, bool)
	ExitCurrent()
}

// Halter performs the kernel-context response: log and stop making
// progress forever. There is no interrupt-disable primitive to reach for
// outside bare metal, so "stop" means parking the calling goroutine.
type Halter interface {
	Halt(reason string)
}

// Handle is the one panic entry point. If a task is current, only that
// task's slot is terminated (via ExitCurrent) and the caller returns
// normally, which is also the trampoline's ordinary terminal-yield path.
// If no task is current, the fault happened in kernel context and is
// unrecoverable: it is reported to halter and this call does not return.
func Handle(s Scheduler, halter Halter, log types.Logger, reason string) {
	if id, ok := s.Current(); ok {
		if log != nil {
			log.Printf("panicpath: task %d faulted, terminating: %s", id, reason)
		}
		s.ExitCurrent()
		return
	}
	if log != nil {
		log.Printf("panicpath: kernel-context fault, halting: %s", reason)
	}
	halter.Halt(reason)
}

// DefaultHalter logs the process id alongside the fault reason (useful when
// several kernel instances run in the same host, e.g. in tests) and then
// parks forever.
type DefaultHalter struct {
	log types.Logger
}

// NewDefaultHalter returns a Halter suitable for production use. log may be
// nil.
func NewDefaultHalter(log types.Logger) *DefaultHalter {
	return &DefaultHalter{log: log}
}

// Halt logs and blocks forever. It does not return.
func (h *DefaultHalter) Halt(reason string) {
	if h.log != nil {
		h.log.Printf("panicpath: halted (pid %d): %s", unix.Getpid(), reason)
	}
	select {}
}
