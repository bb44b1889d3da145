package microkernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootDefaultsToMetricsObserver(t *testing.T) {
	k := Boot(nil)
	require.NotNil(t, k.Metrics())
}

func TestCreateTaskRejectsNilEntry(t *testing.T) {
	k := Boot(nil)
	_, err := k.CreateTask("bad", nil, nil)
	assert.True(t, IsCode(err, CodeNilEntry))
}

// TestEndToEndEchoRoundTrip is scenario S2 from the spec: a client sends a
// MsgEcho, an echo task replies, and the client observes the same payload
// addressed back to it.
func TestEndToEndEchoRoundTrip(t *testing.T) {
	k := Boot(nil)

	echoEP, err := k.CreateEndpoint()
	require.NoError(t, err)
	clientEP, err := k.CreateEndpoint()
	require.NoError(t, err)
	require.NoError(t, k.RegisterService("echo", echoEP))

	_, err = k.CreateTask("echo", func(arg any) {
		for i := 0; i < 2; i++ {
			for {
				has, err := k.HasMessages(echoEP)
				if err != nil || !has {
					break
				}
				msg, err := k.Recv(echoEP)
				if err != nil {
					break
				}
				if msg.Type == MsgEcho {
					reply, _ := NewMessage(MsgEchoReply, echoEP, msg.PayloadBytes())
					_ = k.Send(msg.Sender, reply)
				}
			}
			k.Yield()
		}
	}, nil)
	require.NoError(t, err)

	resolved, err := k.LookupService("echo")
	require.NoError(t, err)
	assert.Equal(t, echoEP, resolved)

	req, err := NewMessage(MsgEcho, clientEP, []byte("ping"))
	require.NoError(t, err)
	require.NoError(t, k.Send(echoEP, req))

	k.Run()

	reply, err := k.Recv(clientEP)
	require.NoError(t, err)
	assert.Equal(t, MsgEchoReply, reply.Type)
	assert.Equal(t, "ping", string(reply.PayloadBytes()))
}

// TestCrashAndSupervisedRestart is scenario S4: a supervised task that
// crashes is restarted by a later ProcessSupervisor pass, and runs again
// from its entry point.
func TestCrashAndSupervisedRestart(t *testing.T) {
	k := Boot(nil)
	ep, err := k.CreateEndpoint()
	require.NoError(t, err)

	runs := 0
	var taskID TaskID
	entry := func(arg any) {
		runs++
		if runs == 1 {
			_ = k.ReportCrash(ep)
			k.ExitCurrent()
			return
		}
	}
	taskID, err = k.CreateTask("flaky", entry, nil)
	require.NoError(t, err)
	require.NoError(t, k.Supervise(taskID, ep, "flaky"))

	k.Run()
	assert.Equal(t, StateFinished, k.TaskState(taskID))

	restarted := k.ProcessSupervisor()
	assert.Equal(t, []TaskID{taskID}, restarted)

	k.Run()
	assert.Equal(t, 2, runs)
	assert.Equal(t, StateFinished, k.TaskState(taskID))
}

func TestPanicInTaskContextOnlyEndsThatTask(t *testing.T) {
	k := Boot(nil)
	var sawCurrent TaskID
	id, err := k.CreateTask("faulty", func(arg any) {
		cur, _ := k.Current()
		sawCurrent = cur
		k.Panic("simulated fault")
	}, nil)
	require.NoError(t, err)

	k.Run()

	assert.Equal(t, id, sawCurrent)
	assert.Equal(t, StateFinished, k.TaskState(id))
}

func TestServicesListsRegisteredEndpoints(t *testing.T) {
	k := Boot(nil)
	ep, err := k.CreateEndpoint()
	require.NoError(t, err)
	require.NoError(t, k.RegisterService("console", ep))

	services := k.Services()
	require.Len(t, services, 1)
	assert.Equal(t, "console", services[0].Name)
	assert.Equal(t, ep, services[0].Endpoint)
}

func TestLogServicesDoesNotPanicWithNoServices(t *testing.T) {
	k := Boot(nil)
	assert.NotPanics(t, k.LogServices)
}

// TestCreateSupervisorTaskRestartsCrashedServiceViaScheduler is scenario S4,
// but with the supervisor scheduled as a task instead of driven by
// ProcessSupervisor: a supervised task crashes on its first run, and the
// supervisor's own scheduled task restarts it within the same k.Run.
func TestCreateSupervisorTaskRestartsCrashedServiceViaScheduler(t *testing.T) {
	k := Boot(nil)
	ep, err := k.CreateEndpoint()
	require.NoError(t, err)

	runs := 0
	taskID, err := k.CreateTask("flaky", func(arg any) {
		runs++
		if runs == 1 {
			_ = k.ReportCrash(ep)
			k.ExitCurrent()
			return
		}
	}, nil)
	require.NoError(t, err)
	require.NoError(t, k.Supervise(taskID, ep, "flaky"))

	_, err = k.CreateSupervisorTask(2)
	require.NoError(t, err)

	k.Run()

	assert.Equal(t, 2, runs)
	assert.Equal(t, StateFinished, k.TaskState(taskID))
}
