package ipc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehrlich-b/microkernel/internal/constants"
	"github.com/ehrlich-b/microkernel/internal/types"
)

func mustEndpoint(t *testing.T, tbl *Table) types.EndpointID {
	t.Helper()
	id, err := tbl.CreateEndpoint()
	require.NoError(t, err)
	return id
}

func TestCreateEndpointAllocatesDistinctIDs(t *testing.T) {
	tbl := NewTable()
	a := mustEndpoint(t, tbl)
	b := mustEndpoint(t, tbl)
	assert.NotEqual(t, a, b)
}

func TestCreateEndpointTableFull(t *testing.T) {
	tbl := NewTable()
	for i := 0; i < constants.MaxEndpoints; i++ {
		mustEndpoint(t, tbl)
	}
	_, err := tbl.CreateEndpoint()
	assert.ErrorIs(t, err, ErrTableFull)
}

func TestSendRecvFIFOOrdering(t *testing.T) {
	tbl := NewTable()
	id := mustEndpoint(t, tbl)

	for i := 0; i < 3; i++ {
		m, err := types.NewMessage(types.MsgEcho, 0, []byte{byte(i)})
		require.NoError(t, err)
		require.NoError(t, tbl.Send(id, m))
	}
	for i := 0; i < 3; i++ {
		m, err := tbl.Recv(id)
		require.NoError(t, err)
		assert.Equal(t, byte(i), m.Payload[0])
	}
}

func TestRecvEmptyQueueErrors(t *testing.T) {
	tbl := NewTable()
	id := mustEndpoint(t, tbl)
	_, err := tbl.Recv(id)
	assert.ErrorIs(t, err, ErrQueueEmpty)
}

func TestSendFullQueueErrors(t *testing.T) {
	tbl := NewTable()
	id := mustEndpoint(t, tbl)
	m, err := types.NewMessage(types.MsgHeartbeat, 0, nil)
	require.NoError(t, err)
	for i := 0; i < constants.EndpointQueueDepth; i++ {
		require.NoError(t, tbl.Send(id, m))
	}
	assert.ErrorIs(t, tbl.Send(id, m), ErrQueueFull)
}

func TestSendRecvInvalidEndpoint(t *testing.T) {
	tbl := NewTable()
	m, _ := types.NewMessage(types.MsgNone, 0, nil)
	assert.ErrorIs(t, tbl.Send(types.EndpointID(9999), m), ErrInvalidEndpoint)
	_, err := tbl.Recv(types.EndpointID(9999))
	assert.ErrorIs(t, err, ErrInvalidEndpoint)
	assert.ErrorIs(t, tbl.Send(types.InvalidEndpoint, m), ErrInvalidEndpoint)
}

func TestHasMessagesAndDepth(t *testing.T) {
	tbl := NewTable()
	id := mustEndpoint(t, tbl)

	has, err := tbl.HasMessages(id)
	require.NoError(t, err)
	assert.False(t, has)

	m, _ := types.NewMessage(types.MsgLog, 0, []byte("hi"))
	require.NoError(t, tbl.Send(id, m))

	has, err = tbl.HasMessages(id)
	require.NoError(t, err)
	assert.True(t, has)

	depth, err := tbl.Depth(id)
	require.NoError(t, err)
	assert.Equal(t, 1, depth)
}

// TestQueueWrapsAroundRingBoundary exercises invariant 3 from the data
// model: the ring buffer correctly wraps head/tail across its capacity
// boundary after repeated push/pop cycles, rather than only being tested at
// a fixed offset.
func TestQueueWrapsAroundRingBoundary(t *testing.T) {
	tbl := NewTable()
	id := mustEndpoint(t, tbl)

	for cycle := 0; cycle < constants.EndpointQueueDepth*3; cycle++ {
		m, err := types.NewMessage(types.MsgEcho, 0, []byte{byte(cycle)})
		require.NoError(t, err)
		require.NoError(t, tbl.Send(id, m))

		got, err := tbl.Recv(id)
		require.NoError(t, err)
		assert.Equal(t, byte(cycle), got.Payload[0])
	}
}
