package completion

import (
	"context"

	"github.com/nagyistge/netflix.genie/pkg/logging"
)

// processDirectory implements §4.8 by delegating to the archive package,
// which owns dependency deletion and tar-and-upload and counts their
// failures itself. An error it returns (the job directory cannot be
// stat'ed or the job cannot be loaded) is only logged; this step still
// returns normally so email notification always runs.
func (h *Handler) processDirectory(ctx context.Context, jobID string) {
	if err := h.Archiver.Process(ctx, jobID); err != nil {
		logging.Debugf("completion: directory processing failed for job %s: %v", jobID, err)
	}
}
