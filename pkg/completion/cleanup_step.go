package completion

import (
	"context"
	"strconv"

	"github.com/nagyistge/netflix.genie/pkg/logging"
	"github.com/nagyistge/netflix.genie/pkg/metrics"
)

// cleanupProcessGroup implements §4.7: a safety net pkill of the job's
// original process group. Success of the kill is an anomaly — it means the
// wrapper script failed to clean up after itself — and is counted as a
// failure, as is being unable to load the job's execution record. A failing
// kill command is the expected outcome and is not counted. This step never
// throws to the caller.
func (h *Handler) cleanupProcessGroup(ctx context.Context, jobID string) {
	exec, err := h.Search.GetJobExecution(ctx, jobID)
	if err != nil {
		logging.Debugf("completion: cannot load execution for job %s: %v", jobID, err)
		h.Metrics.Inc(metrics.ProcessGroupCleanupFailure)
		return
	}

	err = h.Exec.Run(ctx, "", "pkill", "-9", "-g", strconv.Itoa(exec.PID))
	if err == nil {
		// The kill succeeded: the group was still around. That should
		// never happen if the wrapper script cleaned up properly.
		logging.Debugf("completion: process group for job %s was not already gone", jobID)
		h.Metrics.Inc(metrics.ProcessGroupCleanupFailure)
	}
}
