package sched

import "runtime"

// baton is the context-switch primitive: the one place in this module that
// is coupled to how control actually moves from one logical thread of
// execution to another. The original C source's ctx_switch function saves a
// callee-owned register set and swaps a raw stack pointer; Go gives no safe,
// portable way to do that from ordinary code, so a task's "stack" here is a
// goroutine, and the "save SP / load SP" handshake is a pair of unbuffered
// channels. Because each channel operation is unbuffered, sending blocks
// until the other side receives — exactly one of {scheduler, task} is ever
// runnable at a time, which is the invariant the rest of the package leans
// on to avoid locking the task table.
type baton struct {
	resume chan struct{} // scheduler -> task: you are now current
	yield  chan struct{} // task -> scheduler: I yielded (or finished)
}

func newBaton() *baton {
	return &baton{
		resume: make(chan struct{}),
		yield:  make(chan struct{}),
	}
}

// switchTo is called from the scheduler goroutine. It hands control to the
// task side and blocks until that task yields (or finishes) back to us.
func (b *baton) switchTo() {
	b.resume <- struct{}{}
	<-b.yield
}

// switchBack is called from within a task goroutine to cooperatively give
// control back to the scheduler, then block until it is resumed.
func (b *baton) switchBack() {
	b.yield <- struct{}{}
	<-b.resume
}

// switchBackFinal is switchBack's terminal variant: it hands control back to
// the scheduler one last time and then ends the calling goroutine. The
// continuation never runs again, matching the spec's "the task must follow
// [exit] with a terminal yield; it will never be re-entered" — rather than
// block on a resume that will never come, the goroutine simply stops
// existing.
func (b *baton) switchBackFinal() {
	b.yield <- struct{}{}
	runtime.Goexit()
}
