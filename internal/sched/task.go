package sched

import "errors"

// State is a task's position in its lifecycle. The scheduler only ever
// dispatches StateRunnable slots.
type State int

const (
	// StateUnused marks a free task-table slot.
	StateUnused State = iota
	// StateRunnable marks a slot eligible for dispatch.
	StateRunnable
	// StateFinished marks a slot whose entry function has returned (or called
	// ExitCurrent explicitly). A finished slot is never dispatched again
	// until Restart puts it back into StateRunnable.
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateUnused:
		return "UNUSED"
	case StateRunnable:
		return "RUNNABLE"
	case StateFinished:
		return "FINISHED"
	default:
		return "INVALID"
	}
}

// EntryFunc is a task's body. It runs on its own goroutine and receives the
// arg passed to CreateTask.
type EntryFunc func(arg any)

// task is one task-table slot. name, entry and arg are retained after the
// slot finishes so that Restart can re-enter the same task without the
// caller re-supplying them — the reference policy this module follows is to
// keep a FINISHED slot's identity intact until it is explicitly restarted.
type task struct {
	name  string
	entry EntryFunc
	arg   any
	state State
	b     *baton
}

var (
	// ErrNilEntry is returned by CreateTask when entry is nil. A task table
	// slot is never dispatched with a nil entry.
	ErrNilEntry = errors.New("sched: task entry must not be nil")
	// ErrTableFull is returned by CreateTask when no StateUnused slot remains.
	ErrTableFull = errors.New("sched: task table is full")
	// ErrInvalidTask is returned when a TaskID falls outside the table.
	ErrInvalidTask = errors.New("sched: invalid task id")
	// ErrRestartUnused is returned by Restart when the slot was never created.
	ErrRestartUnused = errors.New("sched: cannot restart an unused slot")
)
