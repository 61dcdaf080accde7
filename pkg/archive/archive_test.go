package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nagyistge/netflix.genie/pkg/external"
	"github.com/nagyistge/netflix.genie/pkg/metrics"
	"github.com/nagyistge/netflix.genie/pkg/model"
)

// fakeExec records every invocation instead of running a real command, so
// these tests don't depend on tar/rm/sudo being installed or on root
// privileges. It implements execcmd.Execer.
type fakeExec struct {
	calls [][]string
}

func (f *fakeExec) Run(_ context.Context, dir string, name string, args ...string) error {
	f.calls = append(f.calls, append([]string{name}, args...))

	// Simulate tar actually producing the archive file so downstream
	// upload/deletion steps have something real to act on.
	for i, a := range args {
		if a == "-f" && i+1 < len(args) {
			_ = os.WriteFile(args[i+1], []byte("fake archive"), 0o644)
		}
	}
	return nil
}

func TestProcess_MissingDirectoryIsNoop(t *testing.T) {
	store := external.NewStore()
	fe := &fakeExec{}
	p := &Processor{
		Search:      store,
		Exec:        fe,
		Metrics:     metrics.NewMapSink(),
		BaseWorkDir: t.TempDir(),
		Config:      DefaultConfig(),
	}

	err := p.Process(context.Background(), "no-such-job")
	require.NoError(t, err)
	assert.Empty(t, fe.calls)
}

func TestProcess_NoArchiveLocationNeverCallsTar(t *testing.T) {
	base := t.TempDir()
	jobID := "j1"
	require.NoError(t, os.MkdirAll(filepath.Join(base, jobID), 0o755))

	store := external.NewStore()
	store.Put(model.Job{ID: jobID, ArchiveLocation: ""}, model.Execution{}, model.Request{})

	fe := &fakeExec{}
	p := &Processor{
		Search:      store,
		Exec:        fe,
		Metrics:     metrics.NewMapSink(),
		BaseWorkDir: base,
		Config:      Config{DeleteDependencies: false},
	}

	err := p.Process(context.Background(), jobID)
	require.NoError(t, err)
	for _, call := range fe.calls {
		assert.NotContains(t, call, "tar", "no archiveLocation must never invoke tar")
	}
}

func TestProcess_DependencyDeletion(t *testing.T) {
	base := t.TempDir()
	jobID := "j1"
	depPath := filepath.Join(base, jobID, "genie", "applications", "app1", "dependencies")
	require.NoError(t, os.MkdirAll(depPath, 0o755))

	store := external.NewStore()
	store.Put(
		model.Job{ID: jobID},
		model.Execution{},
		model.Request{Applications: []model.Application{{ID: "app1"}}},
	)

	fe := &fakeExec{}
	p := &Processor{
		Search:      store,
		Exec:        fe,
		Metrics:     metrics.NewMapSink(),
		BaseWorkDir: base,
		Config:      Config{DeleteDependencies: true, RunAsUser: false},
	}

	err := p.Process(context.Background(), jobID)
	require.NoError(t, err)
	require.Len(t, fe.calls, 1)
	assert.Equal(t, "rm", fe.calls[0][0])
	assert.Contains(t, fe.calls[0], depPath)
}

func TestProcess_ArchiveWithUploadAndCleanup(t *testing.T) {
	base := t.TempDir()
	jobID := "j1"
	require.NoError(t, os.MkdirAll(filepath.Join(base, jobID), 0o755))

	store := external.NewStore()
	store.Put(
		model.Job{ID: jobID, ArchiveLocation: "file://" + filepath.Join(base, "uploaded.tar.gz")},
		model.Execution{},
		model.Request{},
	)

	fe := &fakeExec{}
	ft := &fakeFileTransfer{}
	p := &Processor{
		Search:       store,
		FileTransfer: ft,
		Exec:         fe,
		Metrics:      metrics.NewMapSink(),
		BaseWorkDir:  base,
		Config:       Config{DeleteArchiveFile: true},
	}

	err := p.Process(context.Background(), jobID)
	require.NoError(t, err)

	require.Len(t, fe.calls, 1)
	assert.Equal(t, "sudo", fe.calls[0][0])
	assert.Equal(t, "tar", fe.calls[0][1])

	require.Len(t, ft.calls, 1)
	assert.Equal(t, "file://"+filepath.Join(base, "uploaded.tar.gz"), ft.calls[0].remote)

	archivePath := filepath.Join(base, jobID, "genie", "logs", jobID+".tar.gz")
	_, statErr := os.Stat(archivePath)
	assert.True(t, os.IsNotExist(statErr), "local archive must be deleted after upload when DeleteArchiveFile is set")
}

type fakeFileTransfer struct {
	calls []fakePutFileCall
}

type fakePutFileCall struct {
	local, remote string
}

func (f *fakeFileTransfer) PutFile(_ context.Context, localPath, remoteURI string) error {
	f.calls = append(f.calls, fakePutFileCall{local: localPath, remote: remoteURI})
	return nil
}
