// Package donefile implements the C6 Done-File Reader: it parses the small
// structured exit record the job's wrapper script writes to
// <workdir>/<jobId>/genie/genie.done.
package donefile

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrMissingOrMalformed is returned when the done file cannot be read or
// does not contain a valid exitCode field.
var ErrMissingOrMalformed = errors.New("donefile: missing or malformed done file")

// doneFile is the structured exit record. exitCode is the only field the
// supervisor requires (spec.md §3); any other fields the wrapper writes are
// ignored.
type doneFile struct {
	ExitCode *int `json:"exitCode"`
}

// Path returns the fixed location of the done file inside a job's working
// directory, per spec.md §6's filesystem contract.
func Path(jobWorkingDir string) string {
	return filepath.Join(jobWorkingDir, "genie", "genie.done")
}

// Read parses the done file under jobWorkingDir and returns its exitCode.
// If the file is not yet present, Read waits up to wait for it to be
// created (using fsnotify rather than busy-polling, mirroring the teacher's
// outputWatcher) before giving up and returning ErrMissingOrMalformed.
func Read(ctx context.Context, jobWorkingDir string, wait time.Duration) (int, error) {
	path := Path(jobWorkingDir)

	if code, err := readFile(path); err == nil {
		return code, nil
	}

	if wait <= 0 {
		return 0, ErrMissingOrMalformed
	}

	dir := filepath.Dir(path)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		// No watcher available: fall back to a single direct read attempt.
		return readFileErr(path)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return readFileErr(path)
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		// A create could have raced the watcher.Add call above; check once
		// more on every loop iteration before blocking on events.
		if code, err := readFile(path); err == nil {
			return code, nil
		}

		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return readFileErr(path)
			}
			if ev.Name == path && (ev.Op&(fsnotify.Create|fsnotify.Write) != 0) {
				if code, err := readFile(path); err == nil {
					return code, nil
				}
			}
		case _, ok := <-watcher.Errors:
			if !ok {
				return readFileErr(path)
			}
		case <-timer.C:
			return readFileErr(path)
		case <-ctx.Done():
			return readFileErr(path)
		}
	}
}

func readFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var df doneFile
	if err := json.Unmarshal(data, &df); err != nil {
		return 0, err
	}
	if df.ExitCode == nil {
		return 0, ErrMissingOrMalformed
	}
	return *df.ExitCode, nil
}

func readFileErr(path string) (int, error) {
	code, err := readFile(path)
	if err != nil {
		return 0, ErrMissingOrMalformed
	}
	return code, nil
}
