package process

import (
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nagyistge/netflix.genie/pkg/model"
)

func TestCheck_TimeoutTakesPrecedence(t *testing.T) {
	cmd := exec.Command("sleep", "30")
	require.NoError(t, cmd.Start())
	defer cmd.Process.Kill()

	c := &Checker{}
	exec := model.Execution{PID: cmd.Process.Pid, Deadline: time.Now().Add(-time.Second)}
	err := c.Check(exec)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestCheck_Alive(t *testing.T) {
	cmd := exec.Command("sleep", "30")
	require.NoError(t, cmd.Start())
	defer cmd.Process.Kill()

	c := &Checker{}
	err := c.Check(model.Execution{PID: cmd.Process.Pid})
	assert.NoError(t, err)
}

func TestCheck_ProcessGone(t *testing.T) {
	cmd := exec.Command("true")
	require.NoError(t, cmd.Run())

	c := &Checker{}
	err := c.Check(model.Execution{PID: cmd.Process.Pid})
	assert.ErrorIs(t, err, ErrProcessGone)
}

