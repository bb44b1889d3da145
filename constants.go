package microkernel

import "github.com/ehrlich-b/microkernel/internal/constants"

// Re-exported for callers who only import the facade package.
const (
	MaxTasks       = constants.MaxTasks
	TaskStackSize  = constants.TaskStackSize
	TaskStackAlign = constants.TaskStackAlign

	MaxEndpoints       = constants.MaxEndpoints
	EndpointQueueDepth = constants.EndpointQueueDepth
	MaxPayload         = constants.MaxPayload

	ServiceRegistryCapacity = constants.ServiceRegistryCapacity
	ServiceNameMaxLen       = constants.ServiceNameMaxLen
	SupervisionCapacity     = constants.SupervisionCapacity
)
