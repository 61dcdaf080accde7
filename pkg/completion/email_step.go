package completion

import (
	"context"
	"fmt"

	"github.com/nagyistge/netflix.genie/pkg/logging"
	"github.com/nagyistge/netflix.genie/pkg/metrics"
)

const emailSubjectPrefix = "Genie Job Completed: "

// notifyEmail implements §4.9: if the job request carries a non-empty
// email address, send one message stating the final status. Failure is
// counted and swallowed.
func (h *Handler) notifyEmail(ctx context.Context, jobID string) {
	req, err := h.Search.GetJobRequest(ctx, jobID)
	if err != nil {
		logging.Debugf("completion: cannot load request for job %s: %v", jobID, err)
		return
	}
	if req.Email == "" {
		return
	}

	status, err := h.Search.GetJobStatus(ctx, jobID)
	if err != nil {
		logging.Debugf("completion: cannot load status for job %s: %v", jobID, err)
		h.Metrics.Inc(metrics.EmailFailure)
		return
	}

	subject := emailSubjectPrefix + jobID
	body := fmt.Sprintf("Job %s finished with status %s.", jobID, status)

	if err := h.Mail.SendEmail(ctx, req.Email, subject, body); err != nil {
		logging.Debugf("completion: failed to send email for job %s: %v", jobID, err)
		h.Metrics.Inc(metrics.EmailFailure)
		return
	}
	h.Metrics.Inc(metrics.EmailSuccess)
}
