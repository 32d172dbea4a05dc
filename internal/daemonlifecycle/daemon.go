// Package daemonlifecycle implements pidfile-based start/stop for the
// long-running HTTP tool server: a detached child reinvokes the same
// binary; a second start attempt fails instead of spawning twice.
package daemonlifecycle

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// ErrAlreadyRunning is returned by Start when a daemon already holds the
// pidfile's lock.
var ErrAlreadyRunning = errors.New("daemon already running")

// Lock represents a held pidfile lock; Close releases it.
type Lock struct {
	file *os.File
	path string
}

func (l *Lock) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	_ = os.Remove(l.path)
	return err
}

// AcquireLock opens (or creates) the pidfile under stateDir, takes an
// exclusive non-blocking lock, and writes this process's PID into it. It is
// meant to be called from inside the spawned child itself.
func AcquireLock(stateDir string) (*Lock, error) {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	pidPath := filepath.Join(stateDir, "daemon.pid")

	f, err := os.OpenFile(pidPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open pidfile: %w", err)
	}

	if err := flockExclusive(f); err != nil {
		_ = f.Close()
		if errors.Is(err, ErrAlreadyRunning) {
			return nil, ErrAlreadyRunning
		}
		return nil, fmt.Errorf("lock pidfile: %w", err)
	}

	_ = f.Truncate(0)
	_, _ = f.Seek(0, 0)
	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		_ = f.Close()
		return nil, err
	}
	_ = f.Sync()

	return &Lock{file: f, path: pidPath}, nil
}

// Start spawns a detached child reinvoking the current executable with args
// (typically the same flags minus --daemon), and reports an explicit
// "already running" error if the pidfile names a live process.
func Start(stateDir string, args []string) error {
	if pid, alive := readLivePID(stateDir); alive {
		return fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, pid)
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	cmd := exec.Command(exe, args...)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.SysProcAttr = detachedAttr()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("spawn daemon: %w", err)
	}
	return cmd.Process.Release()
}

// Stop reads the pidfile and sends a termination signal. If the named
// process no longer exists, it silently cleans up the stale pidfile.
func Stop(stateDir string) error {
	pidPath := filepath.Join(stateDir, "daemon.pid")
	data, err := os.ReadFile(pidPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		_ = os.Remove(pidPath)
		return nil
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		_ = os.Remove(pidPath)
		return nil
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		_ = os.Remove(pidPath)
		return nil
	}
	return nil
}

func readLivePID(stateDir string) (int, bool) {
	pidPath := filepath.Join(stateDir, "daemon.pid")
	data, err := os.ReadFile(pidPath)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, false
	}
	// On unix, FindProcess always succeeds; signal 0 probes liveness
	// without actually delivering anything.
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return 0, false
	}
	return pid, true
}
