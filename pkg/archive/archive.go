// Package archive implements §4.8 Directory processing: optional dependency
// deletion followed by tar-and-upload of a job's working directory. Every
// sub-step swallows and counts its own failure so the remaining steps, and
// the completion handler's email notification, always still run.
package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nagyistge/netflix.genie/pkg/execcmd"
	"github.com/nagyistge/netflix.genie/pkg/external"
	"github.com/nagyistge/netflix.genie/pkg/logging"
	"github.com/nagyistge/netflix.genie/pkg/metrics"
)

// Config is the set of recognized configuration keys from spec.md §6.
type Config struct {
	DeleteArchiveFile  bool // default true
	DeleteDependencies bool // default true
	RunAsUser          bool // default false
}

// DefaultConfig matches the documented defaults in spec.md §6.
func DefaultConfig() Config {
	return Config{DeleteArchiveFile: true, DeleteDependencies: true, RunAsUser: false}
}

// Processor owns §4.8's directory processing.
type Processor struct {
	Search       external.Search
	FileTransfer external.FileTransfer
	Exec         execcmd.Execer
	Metrics      metrics.Sink
	BaseWorkDir  string
	Config       Config
}

// Process runs dependency deletion (if enabled) and archival (if the job
// requests it) for jobID. Failures inside dependency deletion and archival
// are counted against their own metrics and are not returned. The returned
// error reports only a failure to stat the job directory or to load the
// job, neither of which is counted against any metric.
func (p *Processor) Process(ctx context.Context, jobID string) error {
	jobWorkingDir := filepath.Join(p.BaseWorkDir, jobID)

	if _, err := os.Stat(jobWorkingDir); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("archive: stat %s: %w", jobWorkingDir, err)
	}

	if p.Config.DeleteDependencies {
		p.deleteDependencies(ctx, jobID, jobWorkingDir)
	}

	job, err := p.Search.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("archive: cannot load job %s: %w", jobID, err)
	}
	if job.ArchiveLocation == "" {
		return nil
	}

	return p.archiveAndUpload(ctx, jobID, jobWorkingDir, job.ArchiveLocation)
}

func (p *Processor) deleteDependencies(ctx context.Context, jobID, jobWorkingDir string) {
	req, err := p.Search.GetJobRequest(ctx, jobID)
	if err != nil {
		logging.Debugf("archive: cannot load request for job %s: %v", jobID, err)
		p.Metrics.Inc(metrics.DeleteDependenciesFailure)
		return
	}

	for _, app := range req.Applications {
		depPath := filepath.Join(jobWorkingDir, "genie", "applications", app.ID, "dependencies")
		if _, err := os.Stat(depPath); err != nil {
			continue // does not exist, nothing to delete
		}

		var rmErr error
		if p.Config.RunAsUser {
			rmErr = p.Exec.Run(ctx, "", "sudo", "rm", "-rf", depPath)
		} else {
			rmErr = p.Exec.Run(ctx, "", "rm", "-rf", depPath)
		}
		if rmErr != nil {
			logging.Debugf("archive: failed to delete dependencies at %s: %v", depPath, rmErr)
			p.Metrics.Inc(metrics.DeleteDependenciesFailure)
		}
	}
}

func (p *Processor) archiveAndUpload(ctx context.Context, jobID, jobWorkingDir, archiveLocation string) error {
	logsDir := filepath.Join(jobWorkingDir, "genie", "logs")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		p.Metrics.Inc(metrics.ArchivalFailure)
		logging.Debugf("archive: failed to create logs dir for job %s: %v", jobID, err)
		return nil
	}
	archivePath := filepath.Join(logsDir, jobID+".tar.gz")

	if err := p.Exec.Run(ctx, jobWorkingDir, "sudo", "tar", "-c", "-z", "-f", archivePath, "./"); err != nil {
		p.Metrics.Inc(metrics.ArchivalFailure)
		logging.Debugf("archive: tar failed for job %s: %v", jobID, err)
		return nil
	}

	if err := p.FileTransfer.PutFile(ctx, archivePath, archiveLocation); err != nil {
		p.Metrics.Inc(metrics.ArchivalFailure)
		logging.Debugf("archive: upload failed for job %s: %v", jobID, err)
		return nil
	}

	if p.Config.DeleteArchiveFile {
		if err := os.Remove(archivePath); err != nil {
			logging.Debugf("archive: failed to delete local archive %s: %v", archivePath, err)
			p.Metrics.Inc(metrics.ArchiveFileDeletionFailure)
		}
	}

	return nil
}
