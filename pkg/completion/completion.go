// Package completion implements the C5 Completion Handler: it consumes
// JobFinished events, runs the deterministic post-mortem pipeline of
// spec.md §4.5-§4.9, and transitions the persisted job state to a terminal
// value. Every step is its own error boundary — a failure in one step must
// never prevent later steps from running (spec.md §7).
package completion

import (
	"context"
	"time"

	"github.com/nagyistge/netflix.genie/pkg/archive"
	"github.com/nagyistge/netflix.genie/pkg/donefile"
	"github.com/nagyistge/netflix.genie/pkg/events"
	"github.com/nagyistge/netflix.genie/pkg/execcmd"
	"github.com/nagyistge/netflix.genie/pkg/external"
	"github.com/nagyistge/netflix.genie/pkg/logging"
	"github.com/nagyistge/netflix.genie/pkg/metrics"
	"github.com/nagyistge/netflix.genie/pkg/model"
)

// DoneFileWait bounds how long Handler waits for a racing done-file write
// before treating it as missing.
const DoneFileWait = 2 * time.Second

// CanonicalDoneFileMessage is the literal message spec.md §4.6 and §8
// require when the done file is missing or malformed.
const CanonicalDoneFileMessage = "Genie could not load done file."

// Handler implements Handle, the single entry point spec.md §4.5 describes.
type Handler struct {
	Search       external.Search
	Persistence  external.Persistence
	Archiver     *archive.Processor
	Mail         external.Mail
	Exec         execcmd.Execer
	Metrics      metrics.Sink
	BaseWorkDir  string
}

// Handle implements the completion pipeline of spec.md §4.5. It never
// returns an error to the caller: the only caller-visible outcome is event
// acknowledgement, which always succeeds (spec.md §7).
func (h *Handler) Handle(ctx context.Context, e events.JobFinished) {
	job, err := h.Search.GetJob(ctx, e.JobID)
	if err != nil {
		logging.Debugf("completion: cannot load job %s: %v", e.JobID, err)
		return
	}

	// Step 1: idempotence gate. Re-delivery of an already-terminal event is
	// a silent no-op, per spec.md §4.5 and the re-delivery property in §8.
	if job.Status.Terminal() {
		return
	}

	switch job.Status {
	case model.StatusInit:
		h.assignFromInit(ctx, e)
	case model.StatusRunning:
		h.finalizeFromDoneFile(ctx, e.JobID)
		h.cleanupProcessGroup(ctx, e.JobID)
	}

	// Step 3: post-mortem actions run regardless of which branch above ran.
	h.processDirectory(ctx, e.JobID)
	h.notifyEmail(ctx, e.JobID)
}

// assignFromInit maps a JobFinished reason observed while the job was still
// INIT to a terminal status, per spec.md §4.5 step 2.
func (h *Handler) assignFromInit(ctx context.Context, e events.JobFinished) {
	var status model.Status
	switch e.Reason {
	case events.ReasonKilled:
		status = model.StatusKilled
	case events.ReasonInvalid:
		status = model.StatusInvalid
	case events.ReasonFailedToInit:
		status = model.StatusFailed
	case events.ReasonProcessCompleted:
		status = model.StatusSucceeded
	default:
		// Unknown reason: log, count, and do not transition. Downstream
		// steps (archive, email) still run on the INIT job, preserved as a
		// flagged-for-review behavior per spec.md §9.
		logging.Debugf("completion: unknown JobFinished reason %q for job %s", e.Reason, e.JobID)
		h.Metrics.Inc(metrics.FinalStatusUpdateFailure)
		return
	}

	if err := h.Persistence.UpdateJobStatus(ctx, e.JobID, status, e.Message); err != nil {
		logging.Debugf("completion: failed to update status for job %s: %v", e.JobID, err)
		h.Metrics.Inc(metrics.FinalStatusUpdateFailure)
	}
}
