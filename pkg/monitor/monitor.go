// Package monitor implements the C3 Job Monitor: it periodically drives the
// process checker and output-size guard for one job, debounces transient
// probe errors, and emits KillJob/JobFinished events on the event bus.
package monitor

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/nagyistge/netflix.genie/pkg/events"
	"github.com/nagyistge/netflix.genie/pkg/metrics"
	"github.com/nagyistge/netflix.genie/pkg/model"
	"github.com/nagyistge/netflix.genie/pkg/process"
	"github.com/nagyistge/netflix.genie/pkg/scheduler"
	"github.com/nagyistge/netflix.genie/pkg/sizeguard"
)

// MaxErrors is the number of consecutive probe errors tolerated before the
// monitor forces a kill. Six consecutive errors (MaxErrors+1) escalate, per
// spec.md §4.3 and the MAX_ERRORS=5 testable property in §8.
const MaxErrors = 5

// Checker is the subset of process.Checker's behavior the monitor needs,
// so tests can substitute a fake.
type Checker interface {
	Check(exec model.Execution) error
}

// SizeChecker is the subset of sizeguard's behavior the monitor needs.
type SizeChecker func(path string, max int64) (bool, error)

// Config holds everything needed to construct a Monitor for one job.
type Config struct {
	JobID      string
	Execution  model.Execution
	StdoutPath string
	StderrPath string
	StdoutMax  int64
	StderrMax  int64

	Checker     Checker
	SizeCheck   SizeChecker
	Publisher   *events.Bus
	Metrics     metrics.Sink
}

// Monitor drives one job's lifecycle polling. It is not safe to call Tick
// concurrently with itself — the fixed-delay schedule in spec.md §4.3 and §5
// guarantees ticks for one job never overlap, so no internal lock is needed.
type Monitor struct {
	cfg        Config
	errorCount int
	done       bool
}

// New constructs a Monitor from cfg. SizeCheck defaults to sizeguard.OK and
// Checker defaults to a fresh process.Checker when left nil.
func New(cfg Config) *Monitor {
	if cfg.SizeCheck == nil {
		cfg.SizeCheck = sizeguard.OK
	}
	if cfg.Checker == nil {
		cfg.Checker = &process.Checker{}
	}
	return &Monitor{cfg: cfg}
}

// Done reports whether this monitor has published its terminal event and
// should no longer be ticked.
func (m *Monitor) Done() bool { return m.done }

// Tick implements the four-branch protocol of spec.md §4.3. Exactly one
// branch runs per call.
func (m *Monitor) Tick(_ context.Context) {
	if m.done {
		return
	}

	err := m.cfg.Checker.Check(m.cfg.Execution)
	switch {
	case err == nil:
		m.errorCount = 0
		m.tickAlive()

	case errors.Is(err, process.ErrTimeout):
		m.cfg.Metrics.Inc(metrics.Timeout)
		m.publishKill("timeout")

	case errors.Is(err, process.ErrProcessGone):
		m.cfg.Metrics.Inc(metrics.Finished)
		m.publishFinished(events.ReasonProcessCompleted, "process detected complete")

	default:
		m.cfg.Metrics.Inc(metrics.UnsuccessfulStatusCheck)
		m.errorCount++
		if m.errorCount > MaxErrors {
			msg := "couldn't check status " + strconv.Itoa(m.errorCount) + " times"
			m.publishKill(msg)
			m.publishFinished(events.ReasonKilled, msg)
		}
	}
}

func (m *Monitor) tickAlive() {
	ok, err := m.cfg.SizeCheck(m.cfg.StdoutPath, m.cfg.StdoutMax)
	if err == nil && !ok {
		m.cfg.Metrics.Inc(metrics.StdOutTooLarge)
		m.publishKill("stdout too large")
		return
	}

	ok, err = m.cfg.SizeCheck(m.cfg.StderrPath, m.cfg.StderrMax)
	if err == nil && !ok {
		m.cfg.Metrics.Inc(metrics.StdErrTooLarge)
		m.publishKill("stderr too large")
		return
	}

	m.cfg.Metrics.Inc(metrics.SuccessfulStatusCheck)
}

func (m *Monitor) publishKill(reason string) {
	m.cfg.Publisher.PublishKillJob(events.KillJob{
		JobID:  m.cfg.JobID,
		Reason: reason,
		Source: "monitor",
	})
}

func (m *Monitor) publishFinished(reason events.Reason, message string) {
	m.done = true
	m.cfg.Publisher.PublishJobFinished(events.JobFinished{
		JobID:   m.cfg.JobID,
		Reason:  reason,
		Message: message,
		Source:  "monitor",
	})
}

// Schedule runs m on a fixed-delay loop: the next Tick starts exactly
// checkDelay after the previous Tick returns. No terminal event is
// published on ctx cancellation — that is a host shutdown, not a job
// lifecycle transition (spec.md §5, §9's "no external cancel API").
//
// Each Tick is submitted to pool individually rather than running the whole
// loop inside one pool worker: pool bounds concurrent ticks across jobs
// (spec.md §5), not concurrent monitors, so a worker must be released
// between ticks. The checkDelay wait between ticks happens on a timer
// outside the pool (time.AfterFunc), occupying no worker, and only
// resubmits to pool once the delay elapses. Schedule returns immediately
// after arranging the first tick; the loop it arranges continues on its own
// until m.Done() or ctx is canceled.
func Schedule(ctx context.Context, pool *scheduler.Pool, m *Monitor, checkDelay time.Duration) {
	var tick func()
	tick = func() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		m.Tick(ctx)
		if m.Done() {
			return
		}

		time.AfterFunc(checkDelay, func() {
			pool.Go(tick)
		})
	}

	pool.Go(tick)
}
