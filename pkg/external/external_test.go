package external

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nagyistge/netflix.genie/pkg/model"
)

func TestStore_SetExitCode_DerivesStatus(t *testing.T) {
	s := NewStore()
	s.Put(model.Job{ID: "j1", Status: model.StatusRunning}, model.Execution{}, model.Request{})

	require.NoError(t, s.SetExitCode(context.Background(), "j1", 0))
	job, err := s.GetJob(context.Background(), "j1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusSucceeded, job.Status)
}

func TestStore_SetExitCode_NonZeroFails(t *testing.T) {
	s := NewStore()
	s.Put(model.Job{ID: "j1", Status: model.StatusRunning}, model.Execution{}, model.Request{})

	require.NoError(t, s.SetExitCode(context.Background(), "j1", 1))
	job, err := s.GetJob(context.Background(), "j1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, job.Status)
}

func TestStore_TerminalStatusRejectsFurtherTransitions(t *testing.T) {
	s := NewStore()
	s.Put(model.Job{ID: "j1", Status: model.StatusSucceeded}, model.Execution{}, model.Request{})

	err := s.UpdateJobStatus(context.Background(), "j1", model.StatusFailed, "late event")
	assert.ErrorIs(t, err, ErrTerminal)

	job, _ := s.GetJob(context.Background(), "j1")
	assert.Equal(t, model.StatusSucceeded, job.Status, "status must not change once terminal")
}

func TestLocalFileTransfer_PutFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "archive.tar.gz")
	require.NoError(t, os.WriteFile(src, []byte("contents"), 0o644))

	dest := filepath.Join(dir, "remote", "archive.tar.gz")
	ft := LocalFileTransfer{}
	require.NoError(t, ft.PutFile(context.Background(), src, "file://"+dest))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "contents", string(got))
}

func TestLogMail_RecordsSentMail(t *testing.T) {
	m := &LogMail{}
	require.NoError(t, m.SendEmail(context.Background(), "u@x", "subj", "body"))
	require.Len(t, m.Sent, 1)
	assert.Equal(t, "u@x", m.Sent[0].To)
}
