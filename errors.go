package microkernel

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ehrlich-b/microkernel/internal/ipc"
	"github.com/ehrlich-b/microkernel/internal/registry"
	"github.com/ehrlich-b/microkernel/internal/sched"
	"github.com/ehrlich-b/microkernel/internal/supervisor"
	"github.com/ehrlich-b/microkernel/internal/types"
)

// Code is the high-level error category carried by Error. It groups the
// internal packages' sentinel errors into a single taxonomy so callers can
// branch on Code without importing every internal package themselves.
type Code string

const (
	CodeInvalidTask       Code = "invalid task"
	CodeTaskTableFull     Code = "task table full"
	CodeNilEntry          Code = "nil task entry"
	CodeRestartFailed     Code = "restart failed"
	CodeInvalidEndpoint   Code = "invalid endpoint"
	CodeEndpointTableFull Code = "endpoint table full"
	CodeQueueFull         Code = "queue full"
	CodeQueueEmpty        Code = "queue empty"
	CodeServiceNotFound   Code = "service not found"
	CodeRegistryFull      Code = "registry full"
	CodeNameTooLong       Code = "name too long"
	CodeNotSupervised     Code = "not supervised"
	CodeSupervisionFull   Code = "supervision table full"
	CodeUnknown           Code = "unknown"
)

// Error is the structured error type returned by this package's facade. It
// carries enough context (Op, Task, Endpoint) to identify which table slot
// an internal sentinel error came from, while still satisfying errors.Is
// against that sentinel via Unwrap.
type Error struct {
	Op       string        // facade method that failed, e.g. "Send", "Restart"
	Task     types.TaskID  // NoTask if not applicable
	Endpoint types.EndpointID
	Code     Code
	Msg      string
	Inner    error
}

func (e *Error) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.Task != types.NoTask {
		parts = append(parts, fmt.Sprintf("task=%d", e.Task))
	}
	if e.Endpoint.Valid() {
		parts = append(parts, fmt.Sprintf("endpoint=%d", e.Endpoint))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if len(parts) == 0 {
		return fmt.Sprintf("microkernel: %s", msg)
	}
	return fmt.Sprintf("microkernel: %s (%s)", msg, strings.Join(parts, " "))
}

// Unwrap exposes the wrapped internal sentinel so errors.Is(err,
// sched.ErrTableFull) keeps working even through the facade.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is lets two *Error values compare equal by Code.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == te.Code
}

// newError builds an *Error, mapping inner (an internal package's sentinel)
// to a Code via errors.Is. task and endpoint are NoTask/InvalidEndpoint when
// not applicable to the failing operation.
func newError(op string, task types.TaskID, endpoint types.EndpointID, inner error) *Error {
	if inner == nil {
		return nil
	}
	if already, ok := inner.(*Error); ok {
		return already
	}
	return &Error{
		Op:       op,
		Task:     task,
		Endpoint: endpoint,
		Code:     codeFor(inner),
		Msg:      inner.Error(),
		Inner:    inner,
	}
}

func codeFor(err error) Code {
	switch {
	case errors.Is(err, sched.ErrInvalidTask):
		return CodeInvalidTask
	case errors.Is(err, sched.ErrTableFull):
		return CodeTaskTableFull
	case errors.Is(err, sched.ErrNilEntry):
		return CodeNilEntry
	case errors.Is(err, sched.ErrRestartUnused):
		return CodeRestartFailed
	case errors.Is(err, ipc.ErrInvalidEndpoint):
		return CodeInvalidEndpoint
	case errors.Is(err, ipc.ErrTableFull):
		return CodeEndpointTableFull
	case errors.Is(err, ipc.ErrQueueFull):
		return CodeQueueFull
	case errors.Is(err, ipc.ErrQueueEmpty):
		return CodeQueueEmpty
	case errors.Is(err, registry.ErrNotFound):
		return CodeServiceNotFound
	case errors.Is(err, registry.ErrTableFull):
		return CodeRegistryFull
	case errors.Is(err, registry.ErrNameTooLong):
		return CodeNameTooLong
	case errors.Is(err, supervisor.ErrNotSupervised):
		return CodeNotSupervised
	case errors.Is(err, supervisor.ErrTableFull):
		return CodeSupervisionFull
	default:
		return CodeUnknown
	}
}

// IsCode reports whether err is (or wraps) an *Error with the given Code.
func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
