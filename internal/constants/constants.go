// Package constants holds the compile-time configuration of the microkernel
// core. Every number here corresponds to a named limit in the data model:
// changing one changes capacity, not behavior.
package constants

// Task and scheduler limits
const (
	// MaxTasks is the size of the fixed task table.
	MaxTasks = 8

	// TaskStackSize is the size in bytes of each task's stack region.
	//
	// This module schedules Go goroutines rather than raw stacks (see
	// internal/sched/baton.go), so this constant does not bound an actual
	// stack allocation. It is kept because the data model's alignment and
	// region-ownership invariants are part of the spec this module reports
	// conformance to; no code or test reads it.
	TaskStackSize = 4096

	// TaskStackAlign is the alignment, in bytes, a prepared task stack
	// pointer must satisfy.
	TaskStackAlign = 16
)

// IPC limits
const (
	// MaxEndpoints is the size of the fixed endpoint table.
	MaxEndpoints = 32

	// EndpointQueueDepth is the number of messages each endpoint's ring
	// buffer can hold before ipc.Send reports QUEUE_FULL.
	EndpointQueueDepth = 16

	// MaxPayload is the maximum number of bytes a message payload may carry.
	MaxPayload = 64
)

// Registry and supervision limits
const (
	// ServiceRegistryCapacity is the number of name->endpoint slots available.
	ServiceRegistryCapacity = 16

	// ServiceNameMaxLen is the maximum length, in bytes, of a service name.
	ServiceNameMaxLen = 32

	// SupervisionCapacity is the number of (task, endpoint, name) triples the
	// supervisor can track at once.
	SupervisionCapacity = 8
)
