package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mstanton/overseer/internal/daemon"
)

func TestPidFile_Path(t *testing.T) {
	dir := testEnv(t)

	pf := pidFile()
	expected := filepath.Join(dir, "overseer-watch.pid")
	assert.Equal(t, expected, pf.Path)
}

func TestWatchLogPath(t *testing.T) {
	dir := testEnv(t)

	logPath := watchLogPath()
	expected := filepath.Join(dir, "overseer-watch.log")
	assert.Equal(t, expected, logPath)
}

func TestWatchRoots_FromConfig(t *testing.T) {
	testEnv(t)

	roots, err := watchRoots([]string{"/tmp/a", "/tmp/b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/tmp/a", "/tmp/b"}, roots)

	_, err = watchRoots(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no directories to watch")
}

func TestWatchStatusRun_NotRunning(t *testing.T) {
	testEnv(t)

	// No PID file exists, so status should show "not running" without error.
	err := watchStatusRun()
	assert.NoError(t, err)
}

func TestWatchStopRun_NotRunning(t *testing.T) {
	testEnv(t)

	// No PID file exists, so stop should return an error.
	err := watchStopRun()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not running")
}

func TestWatchStartRun_AlreadyRunning(t *testing.T) {
	dir := testEnv(t)

	// Write a PID file for the current process (which is alive).
	pf := daemon.NewPIDFile(filepath.Join(dir, "overseer-watch.pid"))
	require.NoError(t, pf.Write())
	t.Cleanup(func() { _ = os.Remove(pf.Path) })

	err := watchStartRun(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}
