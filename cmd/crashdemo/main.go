// Command crashdemo boots a kernel with a single supervised task that
// crashes on its first run, and a supervisor scheduled as an ordinary task
// (microkernel.Kernel.CreateSupervisorTask) rather than driven by hand: the
// flaky task and the supervisor run side by side under one k.Run, the same
// way a real kernel would keep a monitor task alive alongside its services.
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
		sweeps  = flag.Int("sweeps", 3, "Supervisor passes to schedule")
		verbose = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)

	k := microkernel.Boot(&microkernel.Options{Logger: logger})

	ep, err := k.CreateEndpoint()
	if err != nil {
		logger.Error("failed to create endpoint", "error", err)
		os.Exit(1)
	}

	runs := 0
	taskID, err := k.CreateTask("flaky", func(arg any) {
		runs++
		if runs == 1 {
			fmt.Println("flaky: crashing on first run")
			_ = k.ReportCrash(ep)
			k.ExitCurrent()
			return
		}
		fmt.Println("flaky: ran cleanly")
	}, nil)
	if err != nil {
		logger.Error("failed to create task", "error", err)
		os.Exit(1)
	}
	if err := k.Supervise(taskID, ep, "flaky"); err != nil {
		logger.Error("failed to supervise task", "error", err)
		os.Exit(1)
	}
	if _, err := k.CreateSupervisorTask(*sweeps); err != nil {
		logger.Error("failed to schedule supervisor", "error", err)
		os.Exit(1)
	}

	k.Run()
	printStatus(k)
}

func printStatus(k *microkernel.Kernel) {
	for _, s := range k.SupervisionStatus() {
		fmt.Printf("  task=%d name=%q crashed=%v state=%v\n", s.Task, s.Name, s.Crashed, k.TaskState(s.Task))
	}
}
