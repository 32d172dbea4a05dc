package daemonlifecycle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAcquireLock_SecondAttemptFails(t *testing.T) {
	dir := t.TempDir()

	lock, err := AcquireLock(dir)
	require.NoError(t, err)
	defer lock.Close()

	_, err = AcquireLock(dir)
	require.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestAcquireLock_ReleasedAfterClose(t *testing.T) {
	dir := t.TempDir()

	lock, err := AcquireLock(dir)
	require.NoError(t, err)
	require.NoError(t, lock.Close())

	lock2, err := AcquireLock(dir)
	require.NoError(t, err)
	defer lock2.Close()
}

func TestStop_CleansUpStalePIDFileSilently(t *testing.T) {
	dir := t.TempDir()
	pidPath := filepath.Join(dir, "daemon.pid")
	require.NoError(t, os.WriteFile(pidPath, []byte("999999999\n"), 0o600))

	require.NoError(t, Stop(dir))
	_, err := os.Stat(pidPath)
	require.True(t, os.IsNotExist(err))
}

func TestStop_NoPIDFileIsNoop(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Stop(dir))
}
