// Package external declares the contracts for every collaborator spec.md §1
// and §6 place out of scope: the persistence service, the search service,
// the file-transfer service, and the mail service. The supervisor only ever
// depends on these interfaces; production hosts inject real clients, and
// the default implementations here exist so the supervisor (and its tests)
// can run standalone.
package external

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/nagyistge/netflix.genie/pkg/model"
)

// Persistence is the durable store of job metadata and status (spec.md §6).
type Persistence interface {
	UpdateJobStatus(ctx context.Context, jobID string, status model.Status, message string) error
	SetExitCode(ctx context.Context, jobID string, exitCode int) error
}

// Search is the read API over persisted jobs (spec.md §6).
type Search interface {
	GetJob(ctx context.Context, jobID string) (model.Job, error)
	GetJobExecution(ctx context.Context, jobID string) (model.Execution, error)
	GetJobRequest(ctx context.Context, jobID string) (model.Request, error)
	GetJobStatus(ctx context.Context, jobID string) (model.Status, error)
	GetJobApplications(ctx context.Context, jobID string) ([]model.Application, error)
}

// FileTransfer uploads a local archive to a remote URI (spec.md §6).
type FileTransfer interface {
	PutFile(ctx context.Context, localPath, remoteURI string) error
}

// Mail sends a single notification message (spec.md §6).
type Mail interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// ErrTerminal is returned by the in-memory Store when a caller tries to
// transition a job whose status is already terminal — the monotonic
// progression spec.md §3 requires.
var ErrTerminal = errors.New("external: job status is already terminal")

// ErrNotFound is returned by the in-memory Store for an unknown job ID.
var ErrNotFound = errors.New("external: job not found")

// Store is an in-memory Persistence+Search implementation. It is the
// default the supervisor runs against standalone, and what its tests
// exercise; it is not a production persistence layer (spec.md §1 places
// that out of scope).
type Store struct {
	mu    sync.Mutex
	jobs  map[string]model.Job
	execs map[string]model.Execution
	reqs  map[string]model.Request
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		jobs:  make(map[string]model.Job),
		execs: make(map[string]model.Execution),
		reqs:  make(map[string]model.Request),
	}
}

// Put seeds the store with a job's full record. Intended for test setup and
// for the launch subsystem (out of scope here) to register a job before the
// monitor starts.
func (s *Store) Put(job model.Job, exec model.Execution, req model.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	s.execs[job.ID] = exec
	s.reqs[job.ID] = req
}

func (s *Store) UpdateJobStatus(_ context.Context, jobID string, status model.Status, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	if job.Status.Terminal() {
		return ErrTerminal
	}
	job.Status = status
	s.jobs[jobID] = job
	return nil
}

// SetExitCode derives the terminal status from the exit code (0 ->
// SUCCEEDED, non-zero -> FAILED) and transitions the job, per spec.md
// §4.6's "persistence internally derives the terminal status" contract.
func (s *Store) SetExitCode(_ context.Context, jobID string, exitCode int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	if job.Status.Terminal() {
		return ErrTerminal
	}
	if exitCode == 0 {
		job.Status = model.StatusSucceeded
	} else {
		job.Status = model.StatusFailed
	}
	s.jobs[jobID] = job
	return nil
}

func (s *Store) GetJob(_ context.Context, jobID string) (model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return model.Job{}, ErrNotFound
	}
	return job, nil
}

func (s *Store) GetJobExecution(_ context.Context, jobID string) (model.Execution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exec, ok := s.execs[jobID]
	if !ok {
		return model.Execution{}, ErrNotFound
	}
	return exec, nil
}

func (s *Store) GetJobRequest(_ context.Context, jobID string) (model.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.reqs[jobID]
	if !ok {
		return model.Request{}, ErrNotFound
	}
	return req, nil
}

func (s *Store) GetJobStatus(ctx context.Context, jobID string) (model.Status, error) {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return 0, err
	}
	return job.Status, nil
}

func (s *Store) GetJobApplications(ctx context.Context, jobID string) ([]model.Application, error) {
	req, err := s.GetJobRequest(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return req.Applications, nil
}

// LocalFileTransfer is the default FileTransfer: it copies the local archive
// to a destination path, treating remoteURI as either a bare path or a
// file:// URI. Real deployments inject an object-store client instead; the
// supervisor's contract with this collaborator is only PutFile's signature
// (spec.md §6), so no SDK dependency belongs here.
type LocalFileTransfer struct{}

func (LocalFileTransfer) PutFile(_ context.Context, localPath, remoteURI string) error {
	dest := strings.TrimPrefix(remoteURI, "file://")
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("external: mkdir for %s: %w", dest, err)
	}
	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("external: open %s: %w", localPath, err)
	}
	defer src.Close()

	dst, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("external: create %s: %w", dest, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("external: copy %s to %s: %w", localPath, dest, err)
	}
	return nil
}

// LogMail is the default Mail: it records each message in Sent rather than
// sending anything, since an SMTP/provider integration is out of scope here
// (spec.md §1).
type LogMail struct {
	Sent []SentMail
	mu   sync.Mutex
}

// SentMail records one call to SendEmail, for assertions in tests.
type SentMail struct {
	To, Subject, Body string
}

func (m *LogMail) SendEmail(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, SentMail{To: to, Subject: subject, Body: body})
	return nil
}
