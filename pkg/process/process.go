// Package process probes whether a job's operating-system process is still
// alive. It is the C1 "Process Checker" of the job lifecycle supervisor.
package process

import (
	"errors"
	"strconv"
	"syscall"
	"time"

	"github.com/nagyistge/netflix.genie/pkg/model"
)

// Sentinel errors returned by Check. Timeout takes precedence over
// liveness/death detection, per spec.md §4.1.
var (
	ErrTimeout     = errors.New("process: execution deadline has passed")
	ErrProcessGone = errors.New("process: pid no longer names a live process")
)

// ProbeError wraps a failure of the underlying probe mechanism itself (as
// opposed to a definitive timeout or liveness answer).
type ProbeError struct {
	PID int
	Err error
}

func (e *ProbeError) Error() string {
	return "process: failed to probe pid " + strconv.Itoa(e.PID) + ": " + e.Err.Error()
}

func (e *ProbeError) Unwrap() error { return e.Err }

// Checker probes a single job's execution. Its zero value is ready to use.
type Checker struct {
	// Now lets tests substitute the wall clock. Defaults to time.Now.
	Now func() time.Time
}

func (c *Checker) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Check implements the C1 operation: it returns nil when the PID names a
// live process owned by the service, ErrTimeout when the deadline has
// already passed (checked first, regardless of liveness), ErrProcessGone
// when the PID no longer names a live process, or a *ProbeError when the
// probe mechanism itself failed.
//
// On POSIX this is a signal-zero delivery (kill -0): idempotent, and has no
// effect on the child.
func (c *Checker) Check(exec model.Execution) error {
	if !exec.Deadline.IsZero() && c.now().After(exec.Deadline) {
		return ErrTimeout
	}

	err := syscall.Kill(exec.PID, 0)
	if err == nil {
		return nil
	}
	if errors.Is(err, syscall.ESRCH) {
		return ErrProcessGone
	}
	if errors.Is(err, syscall.EPERM) {
		// The process table entry exists but belongs to another user: for
		// our purposes that still means "alive", matching kill(2)'s own
		// semantics (EPERM implies the target exists).
		return nil
	}
	return &ProbeError{PID: exec.PID, Err: err}
}
