package commands

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startFakeGpg(t *testing.T, scenario string, exit string) *processReaper {
	osCommand := NewDummyOSCommand()
	cmd := osCommand.NewCmd(os.Args[0])
	cmd.Env = append(cmd.Env, fakeGpgEnv+"="+scenario, fakeExitEnv+"="+exit, fakeStatusEnv+"=")
	osCommand.PrepareForSession(cmd)
	require.NoError(t, cmd.Start())

	reaper := newProcessReaper(NewDummyLog(), osCommand, cmd, 200*time.Millisecond, 2*time.Second)
	t.Cleanup(func() {
		reaper.cancel()
		reaper.release()
	})
	return reaper
}

func TestProcessReaperWait(t *testing.T) {
	type scenario struct {
		name     string
		exit     string
		expected int
	}

	scenarios := []scenario{
		{name: "success", exit: "0", expected: 0},
		{name: "failure", exit: "2", expected: 2},
	}

	for _, s := range scenarios {
		t.Run(s.name, func(t *testing.T) {
			// script reads stdin, which is /dev/null here
			reaper := startFakeGpg(t, "script", s.exit)

			code, err := reaper.wait()
			require.NoError(t, err)
			assert.Equal(t, s.expected, code)
			assert.True(t, reaper.exited)
		})
	}
}

func TestProcessReaperCancel(t *testing.T) {
	reaper := startFakeGpg(t, "hang", "0")
	assert.False(t, reaper.tryReap())

	started := time.Now()
	reaper.cancel()

	assert.True(t, reaper.exited)
	assert.Less(t, time.Since(started), time.Second)

	_, err := reaper.exitCode()
	assert.True(t, HasErrorKind(err, SystemError), err)
	assert.True(t, strings.Contains(err.Error(), "terminated"), err)
}

func TestProcessReaperWaitTimesOut(t *testing.T) {
	reaper := startFakeGpg(t, "hang", "0")
	reaper.waitTimeout = 100 * time.Millisecond

	started := time.Now()
	_, err := reaper.wait()

	assert.True(t, HasErrorKind(err, SystemError), err)
	assert.True(t, reaper.exited)
	assert.Less(t, time.Since(started), 2*time.Second)
}

func TestProcessReaperCancelAfterExit(t *testing.T) {
	reaper := startFakeGpg(t, "script", "0")
	require.True(t, reaper.waitExit(2*time.Second))

	assert.NotPanics(t, reaper.cancel)
	code, err := reaper.exitCode()
	assert.NoError(t, err)
	assert.Equal(t, 0, code)
}

