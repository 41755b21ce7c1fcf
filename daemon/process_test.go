package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/floresta-chain/nodeharness/errors"
	"github.com/floresta-chain/nodeharness/ulogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newShellProcess(t *testing.T, script string) *Process {
	t.Helper()

	dir := t.TempDir()
	logPath := filepath.Join(dir, "daemon.log")

	return NewProcess(ulogger.NewVerboseTestLogger(t), "/bin/sh", []string{"-c", script}, dir, logPath)
}

func TestStartNonexistentExecutable(t *testing.T) {
	dir := t.TempDir()
	p := NewProcess(ulogger.NewVerboseTestLogger(t), filepath.Join(dir, "no-such-daemon"), nil, dir, filepath.Join(dir, "daemon.log"))

	err := p.Start(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrProcessStartup))
	assert.False(t, p.IsRunning())
}

func TestStartImmediateExitSurfacesOutput(t *testing.T) {
	p := newShellProcess(t, "echo fatal: cannot open chainstate; exit 3")

	err := p.Start(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrProcessStartup))
	assert.Contains(t, err.Error(), "cannot open chainstate")
}

func TestStartTwiceFails(t *testing.T) {
	p := newShellProcess(t, "sleep 5")

	require.NoError(t, p.Start(context.Background()))

	t.Cleanup(func() {
		_ = p.Kill()
		p.WaitExit(2 * time.Second)
	})

	err := p.Start(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument))
}

func TestOutputGoesToLogFileAndTail(t *testing.T) {
	p := newShellProcess(t, "echo RPC server is running at 127.0.0.1:4000; sleep 1")

	require.NoError(t, p.Start(context.Background()))

	require.True(t, p.WaitExit(3*time.Second))

	logBytes, err := os.ReadFile(p.LogPath())
	require.NoError(t, err)

	assert.Contains(t, string(logBytes), "RPC server is running at 127.0.0.1:4000")
	assert.Contains(t, p.Output(), "RPC server is running at 127.0.0.1:4000")
}

func TestGracefulExitIsNeverSignalled(t *testing.T) {
	// a daemon that exits on its own within the graceful window must not
	// receive an interrupt or kill signal: exit code 0 proves it
	p := newShellProcess(t, "sleep 1")

	require.NoError(t, p.Start(context.Background()))
	require.True(t, p.IsRunning())

	require.NoError(t, p.EnsureStopped(3*time.Second, time.Second))

	assert.False(t, p.IsRunning())
	assert.Equal(t, 0, p.ExitCode())
}

func TestInterruptTierStopsCooperativeDaemon(t *testing.T) {
	p := newShellProcess(t, `trap 'exit 0' TERM; while :; do sleep 0.05; done`)

	require.NoError(t, p.Start(context.Background()))

	require.NoError(t, p.EnsureStopped(300*time.Millisecond, 3*time.Second))

	assert.False(t, p.IsRunning())
	assert.Equal(t, 0, p.ExitCode(), "daemon honoured SIGTERM, the kill tier must not have fired")
}

func TestKillTierReapsStubbornDaemon(t *testing.T) {
	p := newShellProcess(t, `trap '' TERM INT; while :; do sleep 0.05; done`)

	require.NoError(t, p.Start(context.Background()))

	require.NoError(t, p.EnsureStopped(300*time.Millisecond, 300*time.Millisecond))

	assert.False(t, p.IsRunning(), "no escalation path may leave the process running")
	assert.NotEqual(t, 0, p.ExitCode())
}

func TestSignalStalePIDIsNoop(t *testing.T) {
	p := newShellProcess(t, "sleep 0.5")

	require.NoError(t, p.Start(context.Background()))
	require.True(t, p.WaitExit(3*time.Second))

	// process is long gone, signalling it must not be an error
	assert.NoError(t, p.Interrupt())
	assert.NoError(t, p.Kill())
}

func TestEnsureStoppedBeforeStart(t *testing.T) {
	p := newShellProcess(t, "sleep 1")

	assert.NoError(t, p.EnsureStopped(time.Second, time.Second))
}

func TestWaitExitTimeout(t *testing.T) {
	p := newShellProcess(t, "sleep 5")

	require.NoError(t, p.Start(context.Background()))

	t.Cleanup(func() {
		_ = p.Kill()
		p.WaitExit(2 * time.Second)
	})

	assert.False(t, p.WaitExit(300*time.Millisecond))
	assert.True(t, p.IsRunning())
}
