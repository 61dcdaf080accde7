package completion

import (
	"context"
	"path/filepath"

	"github.com/nagyistge/netflix.genie/pkg/donefile"
	"github.com/nagyistge/netflix.genie/pkg/logging"
	"github.com/nagyistge/netflix.genie/pkg/metrics"
	"github.com/nagyistge/netflix.genie/pkg/model"
)

// finalizeFromDoneFile implements §4.6: read the done file and delegate to
// persistence.SetExitCode, which derives the terminal status from the exit
// code. A missing or malformed done file forces FAILED with the canonical
// message instead.
func (h *Handler) finalizeFromDoneFile(ctx context.Context, jobID string) {
	jobWorkingDir := filepath.Join(h.BaseWorkDir, jobID)

	exitCode, err := donefile.Read(ctx, jobWorkingDir, DoneFileWait)
	if err != nil {
		h.Metrics.Inc(metrics.DoneFileProcessingFailure)
		if err := h.Persistence.UpdateJobStatus(ctx, jobID, model.StatusFailed, CanonicalDoneFileMessage); err != nil {
			logging.Debugf("completion: failed to force FAILED status for job %s: %v", jobID, err)
			h.Metrics.Inc(metrics.FinalStatusUpdateFailure)
		}
		return
	}

	if err := h.Persistence.SetExitCode(ctx, jobID, exitCode); err != nil {
		logging.Debugf("completion: failed to set exit code for job %s: %v", jobID, err)
		h.Metrics.Inc(metrics.FinalStatusUpdateFailure)
	}
}
