// Command supervisord is a demo entrypoint that wires the job monitor, the
// event bus, and the completion handler together, the way the teacher's
// cmd/server wired its gRPC front end to the job library. It is explicitly a
// demonstration harness, not the out-of-scope submission front-end spec.md
// §1 describes.
package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/nagyistge/netflix.genie/pkg/archive"
	"github.com/nagyistge/netflix.genie/pkg/completion"
	"github.com/nagyistge/netflix.genie/pkg/events"
	"github.com/nagyistge/netflix.genie/pkg/execcmd"
	"github.com/nagyistge/netflix.genie/pkg/external"
	"github.com/nagyistge/netflix.genie/pkg/logging"
	"github.com/nagyistge/netflix.genie/pkg/metrics"
	"github.com/nagyistge/netflix.genie/pkg/model"
	"github.com/nagyistge/netflix.genie/pkg/monitor"
	"github.com/nagyistge/netflix.genie/pkg/scheduler"
)

// supervisor bundles the wiring that a production host would assemble once
// and reuse for every job, mirroring the teacher's runnerServer struct.
type supervisor struct {
	store       *external.Store
	bus         *events.Bus
	metrics     *metrics.MapSink
	monitorPool *scheduler.Pool
	handlerPool *scheduler.Pool
	handler     *completion.Handler
	baseWorkDir string
}

func newSupervisor(baseWorkDir string, monitorPoolSize, handlerPoolSize int) *supervisor {
	store := external.NewStore()
	bus := events.New()
	sink := metrics.NewMapSink()

	s := &supervisor{
		store:       store,
		bus:         bus,
		metrics:     sink,
		monitorPool: scheduler.New(monitorPoolSize),
		handlerPool: scheduler.New(handlerPoolSize),
		baseWorkDir: baseWorkDir,
	}

	s.handler = &completion.Handler{
		Search:      store,
		Persistence: store,
		Archiver: &archive.Processor{
			Search:       store,
			FileTransfer: external.LocalFileTransfer{},
			Exec:         execcmd.Runner{},
			Metrics:      sink,
			BaseWorkDir:  baseWorkDir,
			Config:       archive.DefaultConfig(),
		},
		Mail:        &external.LogMail{},
		Exec:        execcmd.Runner{},
		Metrics:     sink,
		BaseWorkDir: baseWorkDir,
	}

	// The completion handler runs on its own pool, separate from the
	// monitor pool, so archive/upload latency never delays probe ticks
	// (spec.md §5).
	bus.SubscribeJobFinished(func(e events.JobFinished) {
		s.handlerPool.Go(func() {
			s.handler.Handle(context.Background(), e)
		})
	})

	return s
}

// startMonitor registers jobID with the store and starts polling it on the
// monitor pool, mirroring how the launcher (out of scope here) would report
// a freshly forked PID to the supervisor.
func (s *supervisor) startMonitor(ctx context.Context, job model.Job, exec model.Execution, req model.Request, stdoutPath, stderrPath string, stdoutMax, stderrMax int64) {
	s.store.Put(job, exec, req)

	m := monitor.New(monitor.Config{
		JobID:      job.ID,
		Execution:  exec,
		StdoutPath: stdoutPath,
		StderrPath: stderrPath,
		StdoutMax:  stdoutMax,
		StderrMax:  stderrMax,
		Publisher:  s.bus,
		Metrics:    s.metrics,
	})

	monitor.Schedule(ctx, s.monitorPool, m, exec.CheckDelay)
}

func main() {
	var baseWorkDir string
	var monitorPoolSize, handlerPoolSize int

	root := &cobra.Command{
		Use:   "supervisord",
		Short: "Runs the job lifecycle supervisor demo",
	}
	root.PersistentFlags().StringVar(&baseWorkDir, "base-work-dir", "/tmp/genie/jobs", "Base working directory under which job directories live")
	root.PersistentFlags().IntVar(&monitorPoolSize, "monitor-pool-size", 8, "Number of concurrent monitor ticks")
	root.PersistentFlags().IntVar(&handlerPoolSize, "handler-pool-size", 4, "Number of concurrent completion-handler pipelines")
	root.PersistentFlags().BoolVar(&logging.Debug, "debug", false, "Enable verbose logging")

	injectCmd := &cobra.Command{
		Use:   "inject-job <pid> <check-delay-ms> <timeout-seconds>",
		Short: "Register a running process with the supervisor and watch it to completion, for manual testing",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := strconv.Atoi(args[0])
			if err != nil {
				return err
			}
			delayMS, err := strconv.Atoi(args[1])
			if err != nil {
				return err
			}
			timeoutS, err := strconv.Atoi(args[2])
			if err != nil {
				return err
			}

			s := newSupervisor(baseWorkDir, monitorPoolSize, handlerPoolSize)

			jobID := "demo-job"
			job := model.Job{ID: jobID, Status: model.StatusRunning}
			exec := model.Execution{
				PID:        pid,
				CheckDelay: time.Duration(delayMS) * time.Millisecond,
				Deadline:   time.Now().Add(time.Duration(timeoutS) * time.Second),
			}
			req := model.Request{}

			ctx := context.Background()
			s.startMonitor(ctx, job, exec, req, "", "", 0, 0)

			log.Printf("watching pid %d for job %s; press ctrl-c to stop", pid, jobID)
			<-ctx.Done()
			return nil
		},
	}

	root.AddCommand(injectCmd)

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
	os.Exit(0)
}
