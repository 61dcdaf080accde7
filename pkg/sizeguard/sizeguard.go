// Package sizeguard implements the C2 Output Size Guard: a cheap stat-based
// check of whether a job's stdout/stderr file has grown past a configured
// maximum.
package sizeguard

import (
	"errors"
	"os"
)

// OK reports whether the file at path is within max bytes. A missing file is
// not a violation (no file, no violation), per spec.md §4.2.
func OK(path string, max int64) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return true, nil
		}
		return false, err
	}
	return info.Size() <= max, nil
}
