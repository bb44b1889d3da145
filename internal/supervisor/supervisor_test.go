package supervisor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehrlich-b/microkernel/internal/constants"
	"github.com/ehrlich-b/microkernel/internal/types"
)

type fakeRestarter struct {
	restarted []types.TaskID
	failOn    map[types.TaskID]bool
}

func (f *fakeRestarter) Restart(id types.TaskID) error {
	if f.failOn[id] {
		return errors.New("boom")
	}
	f.restarted = append(f.restarted, id)
	return nil
}

// fakeDrainer stands in for an *ipc.Table: it serves a fixed queue of
// messages on the monitor's own endpoint and errors for any other.
type fakeDrainer struct {
	ep      types.EndpointID
	pending []types.Message
	recvd   int
}

func (d *fakeDrainer) HasMessages(ep types.EndpointID) (bool, error) {
	if ep != d.ep {
		return false, errors.New("unexpected endpoint")
	}
	return len(d.pending) > 0, nil
}

func (d *fakeDrainer) Recv(ep types.EndpointID) (types.Message, error) {
	if ep != d.ep || len(d.pending) == 0 {
		return types.Message{}, errors.New("empty")
	}
	msg := d.pending[0]
	d.pending = d.pending[1:]
	d.recvd++
	return msg, nil
}

// fakeYielder counts how many times Yield was called instead of actually
// switching tasks, so EntryN's bounded loop can be driven without a real
// scheduler.
type fakeYielder struct {
	yields int
}

func (y *fakeYielder) Yield() { y.yields++ }

func TestSuperviseAndReportCrash(t *testing.T) {
	r := &fakeRestarter{}
	m := New(r, nil, types.InvalidEndpoint, nil)
	require.NoError(t, m.Supervise(types.TaskID(1), types.EndpointID(2), "echo"))
	require.NoError(t, m.ReportCrash(types.EndpointID(2)))

	status := m.ListAll()
	require.Len(t, status, 1)
	assert.True(t, status[0].Crashed)
}

func TestReportCrashUnsupervisedEndpoint(t *testing.T) {
	m := New(&fakeRestarter{}, nil, types.InvalidEndpoint, nil)
	err := m.ReportCrash(types.EndpointID(5))
	assert.ErrorIs(t, err, ErrNotSupervised)
}

func TestProcessRestartsCrashedAndClearsFlag(t *testing.T) {
	r := &fakeRestarter{}
	m := New(r, nil, types.InvalidEndpoint, nil)
	require.NoError(t, m.Supervise(types.TaskID(1), types.EndpointID(10), "a"))
	require.NoError(t, m.Supervise(types.TaskID(2), types.EndpointID(20), "b"))
	require.NoError(t, m.ReportCrash(types.EndpointID(20)))

	restarted := m.Process()
	assert.Equal(t, []types.TaskID{types.TaskID(2)}, restarted)
	assert.Equal(t, []types.TaskID{types.TaskID(2)}, r.restarted)

	status := m.ListAll()
	for _, s := range status {
		if s.Endpoint == types.EndpointID(20) {
			assert.False(t, s.Crashed)
		}
	}

	// A second pass with nothing newly crashed restarts nothing.
	assert.Empty(t, m.Process())
}

func TestProcessLeavesFlagSetOnRestartFailure(t *testing.T) {
	r := &fakeRestarter{failOn: map[types.TaskID]bool{types.TaskID(3): true}}
	m := New(r, nil, types.InvalidEndpoint, nil)
	require.NoError(t, m.Supervise(types.TaskID(3), types.EndpointID(30), "flaky"))
	require.NoError(t, m.ReportCrash(types.EndpointID(30)))

	restarted := m.Process()
	assert.Empty(t, restarted)

	status := m.ListAll()
	require.Len(t, status, 1)
	assert.True(t, status[0].Crashed)
}

func TestSuperviseTableFull(t *testing.T) {
	m := New(&fakeRestarter{}, nil, types.InvalidEndpoint, nil)
	for i := 0; i < constants.SupervisionCapacity; i++ {
		require.NoError(t, m.Supervise(types.TaskID(i), types.EndpointID(i), "x"))
	}
	err := m.Supervise(types.TaskID(99), types.EndpointID(99), "overflow")
	assert.ErrorIs(t, err, ErrTableFull)
}

func TestEndpointReturnsConfiguredValue(t *testing.T) {
	m := New(&fakeRestarter{}, nil, types.EndpointID(7), nil)
	assert.Equal(t, types.EndpointID(7), m.Endpoint())
}

// TestEntryNDrainsRestartsAndYieldsEachPass exercises the scheduled-task
// form end to end: a pending heartbeat message on the monitor's endpoint is
// drained, a crashed record is restarted, and the body yields once per
// pass for the requested number of passes.
func TestEntryNDrainsRestartsAndYieldsEachPass(t *testing.T) {
	r := &fakeRestarter{}
	ep := types.EndpointID(9)
	drainer := &fakeDrainer{ep: ep, pending: []types.Message{{Type: types.MsgHeartbeat}}}
	m := New(r, drainer, ep, nil)
	require.NoError(t, m.Supervise(types.TaskID(1), types.EndpointID(1), "echo"))
	require.NoError(t, m.ReportCrash(types.EndpointID(1)))

	y := &fakeYielder{}
	entry := m.EntryN(y, 3)
	entry(nil)

	assert.Equal(t, 3, y.yields)
	assert.Equal(t, 1, drainer.recvd)
	assert.Equal(t, []types.TaskID{types.TaskID(1)}, r.restarted)
}

// TestEntryNWithNilDrainerIsANoOp confirms a Monitor constructed without a
// drainer (Supervise/ReportCrash/Process used imperatively, never scheduled
// as a task) still tolerates EntryN being called.
func TestEntryNWithNilDrainerIsANoOp(t *testing.T) {
	m := New(&fakeRestarter{}, nil, types.InvalidEndpoint, nil)
	y := &fakeYielder{}
	entry := m.EntryN(y, 2)
	entry(nil)
	assert.Equal(t, 2, y.yields)
}
