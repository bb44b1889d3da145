// Command pingpong boots a kernel, registers an echo service, and drives a
// bounded number of ping/pong round trips through it, printing each reply
// and the resulting dispatch metrics.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ehrlich-b/microkernel"
	"github.com/ehrlich-b/microkernel/internal/logging"
)

func main() {
	var (
		pings   = flag.Int("pings", 5, "Number of ping messages to send")
		verbose = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)

	k := microkernel.Boot(&microkernel.Options{Logger: logger})

	echoEP, err := k.CreateEndpoint()
	if err != nil {
		logger.Error("failed to create echo endpoint", "error", err)
		os.Exit(1)
	}
	clientEP, err := k.CreateEndpoint()
	if err != nil {
		logger.Error("failed to create client endpoint", "error", err)
		os.Exit(1)
	}
	if err := k.RegisterService("echo", echoEP); err != nil {
		logger.Error("failed to register echo service", "error", err)
		os.Exit(1)
	}

	_, err = k.CreateTask("echo", func(arg any) {
		for i := 0; i < *pings; i++ {
			for {
				has, err := k.HasMessages(echoEP)
				if err != nil || !has {
					break
				}
				msg, err := k.Recv(echoEP)
				if err != nil {
					break
				}
				if msg.Type == microkernel.MsgEcho {
					reply, rerr := microkernel.NewMessage(microkernel.MsgEchoReply, echoEP, msg.PayloadBytes())
					if rerr == nil {
						_ = k.Send(msg.Sender, reply)
					}
				}
			}
			k.Yield()
		}
	}, nil)
	if err != nil {
		logger.Error("failed to create echo task", "error", err)
		os.Exit(1)
	}

	resolved, err := k.LookupService("echo")
	if err != nil {
		logger.Error("failed to resolve echo service", "error", err)
		os.Exit(1)
	}

	for i := 0; i < *pings; i++ {
		payload := []byte(fmt.Sprintf("ping-%d", i))
		req, err := microkernel.NewMessage(microkernel.MsgEcho, clientEP, payload)
		if err != nil {
			logger.Error("failed to build message", "error", err)
			os.Exit(1)
		}
		if err := k.Send(resolved, req); err != nil {
			logger.Error("failed to send", "error", err)
			os.Exit(1)
		}
	}

	k.Run()

	for i := 0; i < *pings; i++ {
		reply, err := k.Recv(clientEP)
		if err != nil {
			logger.Error("failed to receive reply", "error", err)
			os.Exit(1)
		}
		fmt.Printf("reply %d: %s\n", i, string(reply.PayloadBytes()))
	}

	snapshot := k.MetricsSnapshot()
	fmt.Printf("\ndispatches=%d sends=%d recvs=%d max_queue_depth=%d\n",
		snapshot.Dispatches, snapshot.Sends, snapshot.Recvs, snapshot.MaxQueueDepth)
}
