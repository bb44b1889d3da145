// Package registry implements the service name registry: a linear-scan
// table mapping service names to the endpoint that serves them.
package registry

import (
	"errors"
	"sync"

	"github.com/ehrlich-b/microkernel/internal/constants"
	"github.com/ehrlich-b/microkernel/internal/types"
)

var (
	// ErrTableFull is returned by Register when ServiceRegistryCapacity
	// entries are already registered.
	ErrTableFull = errors.New("registry: table is full")
	// ErrNameTooLong is returned by Register when name exceeds
	// ServiceNameMaxLen bytes.
	ErrNameTooLong = errors.New("registry: name exceeds max length")
	// ErrNotFound is returned by Lookup when no entry matches name.
	ErrNotFound = errors.New("registry: service not found")
)

type entry struct {
	used     bool
	name     string
	endpoint types.EndpointID
}

// Table is the fixed-capacity name->endpoint registry. There is no
// duplicate-name detection: registering the same name twice adds a second
// entry, and Lookup returns whichever one a linear scan reaches first.
type Table struct {
	mu      sync.Mutex
	entries [constants.ServiceRegistryCapacity]entry
}

// NewTable returns an empty registry.
func NewTable() *Table {
	return &Table{}
}

// Register adds a (name, endpoint) entry to the first free slot.
func (t *Table) Register(name string, ep types.EndpointID) error {
	if len(name) > constants.ServiceNameMaxLen {
		return ErrNameTooLong
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.entries {
		if !t.entries[i].used {
			t.entries[i] = entry{used: true, name: name, endpoint: ep}
			return nil
		}
	}
	return ErrTableFull
}

// Lookup scans for the first entry with the given name.
func (t *Table) Lookup(name string) (types.EndpointID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.entries {
		if e.used && e.name == name {
			return e.endpoint, nil
		}
	}
	return types.InvalidEndpoint, ErrNotFound
}

// Entry pairs a registered name with its endpoint.
type Entry struct {
	Name     string
	Endpoint types.EndpointID
}

// ListAll calls sink once per registered entry, in table order. The sink
// shape (rather than a returned slice) matches spec's "emits registered
// names to an external logging sink": callers that just want a snapshot can
// append into a closure, and callers that want to log registrations can
// pass a logger-backed sink directly, without this package importing a
// logger itself.
func (t *Table) ListAll(sink func(name string, ep types.EndpointID)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.entries {
		if e.used {
			sink(e.name, e.endpoint)
		}
	}
}
