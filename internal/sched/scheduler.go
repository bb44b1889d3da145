// Package sched implements the cooperative task scheduler: a fixed task
// table, round-robin dispatch, and the goroutine-baton context-switch
// primitive in baton.go.
package sched

import (
	"sync"
	"time"

	"github.com/ehrlich-b/microkernel/internal/constants"
	"github.com/ehrlich-b/microkernel/internal/types"
)

// Scheduler owns the fixed task table and the single dispatch loop. Yield
// and ExitCurrent act on the currently-dispatched task and are called from
// within that task's own goroutine (outside any task they are no-ops); Run,
// State, Name and SetDispatchHook are called from outside any task.
// CreateTask and Restart may be called from a task's goroutine or from
// outside Run entirely (e.g. to seed the initial task set before Run starts).
//
// The table itself needs no lock to protect concurrent task execution: the
// baton handshake guarantees that at most one task goroutine is ever running
// between a switchTo and the matching switchBack/switchBackFinal, and the
// channel operations that make up that handshake each carry a happens-before
// edge. mu guards only the bookkeeping (slot allocation, state flips from
// CreateTask/Restart) that can race against a concurrent call made from
// outside that window.
type Scheduler struct {
	mu         sync.Mutex
	tasks      [constants.MaxTasks]task
	current    types.TaskID
	log        types.Logger
	onDispatch func(id types.TaskID, elapsed time.Duration)
}

// New returns a Scheduler with an empty task table. log may be nil.
func New(log types.Logger) *Scheduler {
	return &Scheduler{current: types.NoTask, log: log}
}

// CreateTask installs entry/arg into the first StateUnused slot, marks it
// StateRunnable, and starts its goroutine (parked until first dispatch). It
// returns ErrNilEntry or ErrTableFull without touching the table.
func (s *Scheduler) CreateTask(name string, entry EntryFunc, arg any) (types.TaskID, error) {
	if entry == nil {
		return types.NoTask, ErrNilEntry
	}
	s.mu.Lock()
	id := types.NoTask
	for i := range s.tasks {
		if s.tasks[i].state == StateUnused {
			id = types.TaskID(i)
			break
		}
	}
	if id == types.NoTask {
		s.mu.Unlock()
		return types.NoTask, ErrTableFull
	}
	t := &s.tasks[id]
	t.name, t.entry, t.arg, t.state, t.b = name, entry, arg, StateRunnable, newBaton()
	s.mu.Unlock()

	go s.runTask(id)
	return id, nil
}

// Restart re-enters a task from its retained entry/arg on a fresh goroutine
// and baton. It is valid on a StateFinished slot (the ordinary case) and on
// a StateRunnable slot (its current continuation is discarded in favor of a
// fresh one); it is an error on a slot that was never created.
func (s *Scheduler) Restart(id types.TaskID) error {
	if id < 0 || int(id) >= constants.MaxTasks {
		return ErrInvalidTask
	}
	s.mu.Lock()
	t := &s.tasks[id]
	if t.state == StateUnused {
		s.mu.Unlock()
		return ErrRestartUnused
	}
	t.state = StateRunnable
	t.b = newBaton()
	s.mu.Unlock()

	go s.runTask(id)
	return nil
}

// runTask is the trampoline: it blocks until first dispatched, runs entry,
// and on return marks the slot finished and performs the terminal yield.
// Explicit early exits (entry calling ExitCurrent then Yield itself) take
// the same path through Yield, so the "mark finished, then yield one last
// time" logic lives in exactly one place.
func (s *Scheduler) runTask(id types.TaskID) {
	t := &s.tasks[id]
	<-t.b.resume

	t.entry(t.arg)

	s.ExitCurrent()
	s.Yield()
}

// Yield cooperatively gives up the current task's turn. Called from outside
// any task context, it is a no-op. If the current task has already been
// marked StateFinished (via ExitCurrent), this performs the terminal yield
// and does not return: the calling goroutine ends here.
func (s *Scheduler) Yield() {
	id := s.current
	if id == types.NoTask {
		return
	}
	t := &s.tasks[id]
	if t.state == StateFinished {
		t.b.switchBackFinal()
		return
	}
	t.b.switchBack()
}

// ExitCurrent marks the current task StateFinished. It must be followed by
// a yield (Yield handles this automatically when called from the
// trampoline); called outside any task context, it is a no-op.
func (s *Scheduler) ExitCurrent() {
	id := s.current
	if id == types.NoTask {
		return
	}
	s.tasks[id].state = StateFinished
}

// Current returns the TaskID of the task currently holding the baton, and
// false when called outside any task context (e.g. before Run starts, or
// from the Run goroutine itself between dispatches).
func (s *Scheduler) Current() (types.TaskID, bool) {
	if s.current == types.NoTask {
		return types.NoTask, false
	}
	return s.current, true
}

// State reports a slot's lifecycle state. It returns StateUnused for an
// out-of-range id rather than an error, since callers typically use this for
// display/introspection rather than control flow.
func (s *Scheduler) State(id types.TaskID) State {
	if id < 0 || int(id) >= constants.MaxTasks {
		return StateUnused
	}
	return s.tasks[id].state
}

// Name returns a slot's registered name, or "" if it was never created.
func (s *Scheduler) Name(id types.TaskID) string {
	if id < 0 || int(id) >= constants.MaxTasks {
		return ""
	}
	return s.tasks[id].name
}

// Run is the scheduler's dispatch loop: round-robin over StateRunnable
// slots, starting the scan immediately after whichever slot ran last, until
// none remain runnable. It returns once the task set is quiescent; creating
// or restarting a task from within another task's entry function (the
// supervisor does this) keeps the loop going.
func (s *Scheduler) Run() {
	last := types.TaskID(-1)
	for {
		next := s.pickNextRunnable(last)
		if next == types.NoTask {
			break
		}
		last = next
		s.current = next
		start := time.Now()
		s.tasks[next].b.switchTo()
		if s.onDispatch != nil {
			s.onDispatch(next, time.Since(start))
		}
	}
	s.current = types.NoTask
}

// SetDispatchHook installs a callback invoked after every dispatch with the
// TaskID that ran and how long it held the baton. Pass nil to remove it.
func (s *Scheduler) SetDispatchHook(hook func(id types.TaskID, elapsed time.Duration)) {
	s.onDispatch = hook
}

// pickNextRunnable scans the table round-robin starting just after after,
// wrapping at MaxTasks, and returns the first StateRunnable slot found, or
// NoTask if none is runnable. Scanning always starts from after+1 regardless
// of whether after itself is still runnable, which is what gives every
// runnable slot a turn within any window of MaxTasks dispatches rather than
// letting one busy task starve the rest.
func (s *Scheduler) pickNextRunnable(after types.TaskID) types.TaskID {
	for i := 1; i <= constants.MaxTasks; i++ {
		idx := (int(after) + i) % constants.MaxTasks
		if idx < 0 {
			idx += constants.MaxTasks
		}
		if s.tasks[idx].state == StateRunnable {
			return types.TaskID(idx)
		}
	}
	return types.NoTask
}
