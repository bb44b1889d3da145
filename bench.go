package microkernel

import (
	"golang.org/x/sys/unix"
)

// monotonicNowNs reads CLOCK_MONOTONIC directly via unix.ClockGettime
// rather than time.Now, so BenchResult numbers are not affected by Go
// runtime wall-clock adjustments.
func monotonicNowNs() uint64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0
	}
	return uint64(ts.Sec)*1_000_000_000 + uint64(ts.Nsec)
}

// BenchResult is the per-iteration cost (in nanoseconds) of two ways of
// getting the same echo behavior: a direct function call versus a full
// Send -> scheduler dispatch -> Recv round trip through a Kernel.
type BenchResult struct {
	DirectCallNs   uint64
	IPCRoundTripNs uint64
}

func directEcho(payload []byte) []byte {
	out := make([]byte, len(payload))
	copy(out, payload)
	return out
}

// BenchmarkDirectVsIPC runs iterations of both paths and reports the
// average per-iteration cost of each. It exists to make the cost of this
// module's IPC indirection visible and measurable, not to stand in for
// go test -bench (see bench_test.go for that).
func BenchmarkDirectVsIPC(iterations int) BenchResult {
	payload := []byte("benchmark-payload")

	directStart := monotonicNowNs()
	for i := 0; i < iterations; i++ {
		_ = directEcho(payload)
	}
	directElapsed := monotonicNowNs() - directStart

	k := Boot(nil)
	echoEP, _ := k.CreateEndpoint()
	clientEP, _ := k.CreateEndpoint()

	// The client takes the lower task slot, so each of its sends is answered
	// by the echo task's next pass before the client receives.
	_, _ = k.CreateTask("client", func(arg any) {
		for i := 0; i < iterations; i++ {
			req, _ := NewMessage(MsgEcho, clientEP, payload)
			_ = k.Send(echoEP, req)
			k.Yield()
			_, _ = k.Recv(clientEP)
		}
	}, nil)

	_, _ = k.CreateTask("echo", func(arg any) {
		for i := 0; i < iterations; i++ {
			for {
				has, err := k.HasMessages(echoEP)
				if err != nil || !has {
					break
				}
				msg, err := k.Recv(echoEP)
				if err != nil {
					break
				}
				reply, err := NewMessage(MsgEchoReply, echoEP, msg.PayloadBytes())
				if err == nil {
					_ = k.Send(msg.Sender, reply)
				}
			}
			k.Yield()
		}
	}, nil)

	ipcStart := monotonicNowNs()
	k.Run()
	ipcElapsed := monotonicNowNs() - ipcStart

	n := uint64(iterations)
	if n == 0 {
		return BenchResult{}
	}
	return BenchResult{
		DirectCallNs:   directElapsed / n,
		IPCRoundTripNs: ipcElapsed / n,
	}
}
