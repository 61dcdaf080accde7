package execcmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Success(t *testing.T) {
	var r Runner
	err := r.Run(context.Background(), "", "true")
	require.NoError(t, err)
}

func TestRun_FailurePropagatesError(t *testing.T) {
	var r Runner
	err := r.Run(context.Background(), "", "false")
	assert.Error(t, err)
}

func TestRun_WorkingDirectory(t *testing.T) {
	var r Runner
	dir := t.TempDir()
	err := r.Run(context.Background(), dir, "test", "-d", ".")
	require.NoError(t, err, "cwd should be dir, which exists")
}

func TestRun_ArgumentsAreDiscreteTokens(t *testing.T) {
	// A value containing shell metacharacters must be passed through
	// untouched, not interpreted, proving there is no shell parsing.
	var r Runner
	err := r.Run(context.Background(), "", "test", "-z", "not; rm -rf /")
	assert.Error(t, err, "the literal string is non-empty, so `test -z` should fail")
}
