package process

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits for server output. A server lives as long as its host, so
// its logs are size-bounded.
const (
	logMaxSizeMB  = 10
	logMaxBackups = 3
)

// LogFiles owns the stdout/stderr logs of one process run. Both are
// lumberjack writers: output of earlier runs is rotated into timestamped
// backups next to the current file.
type LogFiles struct {
	stdout     *lj.Logger
	stderr     *lj.Logger
	dataDir    string
	stdoutName string // e.g. "dolt-stdout.log"
	stderrName string // e.g. "dolt-stderr.log"
}

func (l *LogFiles) rotating(path string) *lj.Logger {
	return &lj.Logger{
		Filename:   path,
		MaxSize:    logMaxSizeMB,
		MaxBackups: logMaxBackups,
		LocalTime:  true,
	}
}

// open starts both logs with an empty current file, so Tail only ever sees
// the current run. Neither is kept unless both succeed.
func (l *LogFiles) open() error {
	stdout := l.rotating(l.StdoutPath())
	if err := stdout.Rotate(); err != nil {
		return fmt.Errorf("open stdout log: %w", err)
	}
	stderr := l.rotating(l.StderrPath())
	if err := stderr.Rotate(); err != nil {
		_ = stdout.Close()
		return fmt.Errorf("open stderr log: %w", err)
	}
	l.stdout = stdout
	l.stderr = stderr
	return nil
}

// Close closes both logs. Safe to call repeatedly.
func (l *LogFiles) Close() {
	if l.stdout != nil {
		_ = l.stdout.Close()
		l.stdout = nil
	}
	if l.stderr != nil {
		_ = l.stderr.Close()
		l.stderr = nil
	}
}

// StdoutPath returns the path of the current stdout log.
func (l *LogFiles) StdoutPath() string {
	return filepath.Join(l.dataDir, l.stdoutName)
}

// StderrPath returns the path of the current stderr log.
func (l *LogFiles) StderrPath() string {
	return filepath.Join(l.dataDir, l.stderrName)
}

// Tail returns up to maxBytes from the end of the stderr log followed by up
// to maxBytes from the end of the stdout log. Unreadable or missing files
// contribute nothing. It is used to classify why a server exited early.
func (l *LogFiles) Tail(maxBytes int64) string {
	if l.dataDir == "" {
		return ""
	}
	return tailFile(l.StderrPath(), maxBytes) + tailFile(l.StdoutPath(), maxBytes)
}

func tailFile(path string, maxBytes int64) string {
	f, err := os.Open(path) //nolint:gosec // G304: path is built from the server data dir
	if err != nil {
		return ""
	}
	defer f.Close() //nolint:errcheck // read-only handle

	info, err := f.Stat()
	if err != nil {
		return ""
	}
	if offset := info.Size() - maxBytes; offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return ""
		}
	}
	data, err := io.ReadAll(io.LimitReader(f, maxBytes))
	if err != nil {
		return ""
	}
	return string(data)
}

// NewLogFiles opens "<name>-stdout.log" and "<name>-stderr.log" in dataDir,
// rotating away the output of a previous run.
func NewLogFiles(dataDir, processName string) (LogFiles, error) {
	l := LogFiles{
		dataDir:    dataDir,
		stdoutName: processName + "-stdout.log",
		stderrName: processName + "-stderr.log",
	}
	if err := l.open(); err != nil {
		return LogFiles{}, err
	}
	return l, nil
}

// DefaultStopTimeout is the stop timeout used when none is configured.
const DefaultStopTimeout = 10 * time.Second

// termGracePeriod is how long a process gets after SIGTERM before SIGKILL.
// It is capped at the overall stop timeout.
const termGracePeriod = 5 * time.Second

// killDrainTimeout bounds the wait for cmd.Wait to return once the process
// has been killed or has already exited.
const killDrainTimeout = 10 * time.Second

// drainDone receives from done or gives up after timeout. It returns false
// on timeout.
func drainDone(done <-chan error, timeout time.Duration) (bool, error) {
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case err := <-done:
		return true, err
	case <-t.C:
		return false, nil
	}
}

// stopWithDone sends SIGTERM, schedules SIGKILL after the grace period and
// waits for the existing cmd.Wait goroutine to report through done. It never
// calls cmd.Wait itself.
//
// Worst case it blocks for timeout + killDrainTimeout.
func stopWithDone(cmd *exec.Cmd, done <-chan error, timeout time.Duration, name string) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	if done == nil {
		return fmt.Errorf("%s: done channel must not be nil", name)
	}

	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		// Already exited.
		ok, waitErr := drainDone(done, killDrainTimeout)
		if !ok {
			return fmt.Errorf("%s: timed out draining process after signal failure", name)
		}
		return expectSignalExit(waitErr, name)
	}

	grace := min(termGracePeriod, timeout)
	killTimer := time.AfterFunc(grace, func() {
		_ = cmd.Process.Kill() // no-op error if the process already finished
	})
	defer killTimer.Stop()

	totalTimer := time.NewTimer(timeout)
	defer totalTimer.Stop()

	select {
	case err := <-done:
		return expectSignalExit(err, name)
	case <-totalTimer.C:
		ok, waitErr := drainDone(done, killDrainTimeout)
		if !ok {
			return fmt.Errorf("%s: timed out waiting for process to exit after SIGKILL", name)
		}
		if err := expectSignalExit(waitErr, name); err != nil {
			return fmt.Errorf("%s stop timeout: %w", name, err)
		}
		return nil
	}
}

// expectSignalExit treats exits caused by SIGTERM or SIGKILL as a clean stop.
// Database servers that trap SIGTERM and exit 0 also count as clean.
func expectSignalExit(err error, name string) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			sig := status.Signal()
			if sig == syscall.SIGTERM || sig == syscall.SIGKILL {
				return nil
			}
		}
	}
	return fmt.Errorf("%s: %w", name, err)
}

// StartCmd opens the log files, points stdout/stderr at them and starts cmd.
// The writers are not *os.File, so cmd.Wait returns only after all output has
// been copied; Tail after Exited sees everything the process wrote. On
// failure the log files are closed again.
func StartCmd(cmd *exec.Cmd, dataDir, processName string) (LogFiles, error) {
	logFiles, err := NewLogFiles(dataDir, processName)
	if err != nil {
		return LogFiles{}, fmt.Errorf("create %s logs: %w", processName, err)
	}

	cmd.Stdout = logFiles.stdout
	cmd.Stderr = logFiles.stderr

	if err := cmd.Start(); err != nil {
		logFiles.Close()
		return LogFiles{}, fmt.Errorf("start %s process: %w", processName, err)
	}

	return logFiles, nil
}
