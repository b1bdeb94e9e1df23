package daemon

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDaemon(t *testing.T) *Daemon {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "iconwatch.pid"))
}

func TestPIDRoundTrip(t *testing.T) {
	d := newTestDaemon(t)

	pid, err := d.ReadPID()
	require.NoError(t, err)
	assert.Zero(t, pid, "missing PID file reads as zero")

	require.NoError(t, d.WritePID())
	pid, err = d.ReadPID()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	require.NoError(t, d.RemovePID())
	require.NoError(t, d.RemovePID(), "removing twice is fine")
}

func TestReadPIDInvalid(t *testing.T) {
	d := newTestDaemon(t)
	require.NoError(t, os.WriteFile(d.pidFile, []byte("not-a-pid"), 0644))

	_, err := d.ReadPID()
	assert.Error(t, err)
}

func TestReadPIDTrimsNewline(t *testing.T) {
	d := newTestDaemon(t)
	require.NoError(t, os.WriteFile(d.pidFile, []byte("4242\n"), 0644))

	pid, err := d.ReadPID()
	require.NoError(t, err)
	assert.Equal(t, 4242, pid)
}

func TestIsRunningSelf(t *testing.T) {
	d := newTestDaemon(t)
	require.NoError(t, d.WritePID())

	running, pid, err := d.IsRunning()
	require.NoError(t, err)
	assert.True(t, running)
	assert.Equal(t, os.Getpid(), pid)
}

func TestAcquire(t *testing.T) {
	d := newTestDaemon(t)
	require.NoError(t, d.Acquire())
	require.NoError(t, d.Acquire(), "the owning process may acquire again")

	running, _, err := d.IsRunning()
	require.NoError(t, err)
	assert.True(t, running)
}

func TestStaleEntryIsRemoved(t *testing.T) {
	d := newTestDaemon(t)
	// PIDs this large are never handed out
	require.NoError(t, os.WriteFile(d.pidFile, []byte(strconv.Itoa(1<<30)), 0644))

	running, _, err := d.IsRunning()
	require.NoError(t, err)
	assert.False(t, running)

	_, err = os.Stat(d.pidFile)
	assert.True(t, os.IsNotExist(err))
}

func TestStopNotRunning(t *testing.T) {
	d := newTestDaemon(t)
	assert.ErrorIs(t, d.Stop(time.Second), ErrNotRunning)
}
