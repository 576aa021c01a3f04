package process

import (
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/giantswarm/embeddb/internal/sentinel"
)

// ErrAlreadyStarted is returned when Start is called on a process that is
// already running.
const ErrAlreadyStarted = sentinel.Error("process already started")

// ErrNilCmd is returned when SetupAndStart is called with a nil *exec.Cmd.
const ErrNilCmd = sentinel.Error("cmd must not be nil")

// ErrEmptyCmdPath is returned when SetupAndStart is called with an empty cmd.Path.
const ErrEmptyCmdPath = sentinel.Error("cmd.Path must not be empty")

// ErrEmptyDataDir is returned when SetupAndStart is called without a data directory.
const ErrEmptyDataDir = sentinel.Error("data directory must not be empty")

// BaseProcess holds the start/stop plumbing shared by child processes.
// Engine packages embed it in their own server types.
//
// BaseProcess is not safe for concurrent use; the owning server serializes
// SetupAndStart, Stop, Close and the state queries.
type BaseProcess struct {
	cmd         *exec.Cmd
	waitDone    <-chan error    // result of the single cmd.Wait call
	exited      <-chan struct{} // closed once the process has exited
	startedAt   time.Time
	logFiles    LogFiles
	name        string
	log         *slog.Logger
	stopTimeout time.Duration // used by Close when Stop was skipped; zero means DefaultStopTimeout
}

// NewBaseProcess creates a BaseProcess. A nil logger falls back to
// slog.Default(). Panics if name is empty.
func NewBaseProcess(name string, logger *slog.Logger, stopTimeout time.Duration) BaseProcess {
	if name == "" {
		panic("embeddb: process name must not be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return BaseProcess{name: name, log: logger, stopTimeout: stopTimeout}
}

// Stop sends SIGTERM, escalating to SIGKILL, and waits up to timeout for the
// process to exit. Afterwards IsStarted reports false even if Stop failed.
// Stopping a process that was never started returns nil. For a process that
// already exited on its own, the error is its exit status.
func (b *BaseProcess) Stop(timeout time.Duration) error {
	if b.cmd == nil || b.cmd.Process == nil {
		b.reset()
		return nil
	}
	pid := b.cmd.Process.Pid
	exitedBefore := !b.IsAlive()
	err := stopWithDone(b.cmd, b.waitDone, timeout, b.name)
	// A process that already exited cannot be orphaned; err is its own
	// exit status.
	if err != nil && !exitedBefore {
		b.log.Warn("process stop failed; process may be orphaned",
			"process", b.name, "pid", pid, "error", err)
	}
	b.reset()
	return err
}

func (b *BaseProcess) reset() {
	b.cmd = nil
	b.waitDone = nil
	b.exited = nil
	b.startedAt = time.Time{}
}

// Close closes the log files. A process that is still running is stopped
// first, with a warning, so file handles are never closed under a live child.
func (b *BaseProcess) Close() {
	if b.cmd != nil {
		b.log.Warn("process.Close called without Stop; stopping automatically",
			"process", b.name)
		timeout := b.stopTimeout
		if timeout <= 0 {
			timeout = DefaultStopTimeout
		}
		if err := b.Stop(timeout); err != nil {
			b.log.Warn("auto-stop during Close failed",
				"process", b.name, "error", err)
		}
	}
	b.logFiles.Close()
}

// Logger returns the logger used by this process.
func (b *BaseProcess) Logger() *slog.Logger {
	return b.log
}

// Exited returns a channel that is closed when the process exits, or nil if
// the process is not started.
func (b *BaseProcess) Exited() <-chan struct{} {
	return b.exited
}

// IsStarted reports whether the process has been started and not yet stopped.
func (b *BaseProcess) IsStarted() bool {
	return b.cmd != nil
}

// IsAlive reports whether the process was started and has not exited on its
// own since. Unlike IsStarted it observes crashes.
func (b *BaseProcess) IsAlive() bool {
	if b.cmd == nil || b.exited == nil {
		return false
	}
	select {
	case <-b.exited:
		return false
	default:
		return true
	}
}

// PID returns the process id, or 0 when the process is not started.
func (b *BaseProcess) PID() int {
	if b.cmd == nil || b.cmd.Process == nil {
		return 0
	}
	return b.cmd.Process.Pid
}

// StartedAt returns when the process was started, or the zero time.
func (b *BaseProcess) StartedAt() time.Time {
	return b.startedAt
}

// LogFiles returns the stdout/stderr log files of the current or last run.
func (b *BaseProcess) LogFiles() *LogFiles {
	return &b.logFiles
}

// SetupAndStart creates log files, wires stdout/stderr and starts cmd with
// its working directory set to dataDir. cmd must have Path and Args set.
//
// Exactly one goroutine calls cmd.Wait; its result is delivered to Stop and
// its completion is broadcast through Exited.
func (b *BaseProcess) SetupAndStart(cmd *exec.Cmd, dataDir string) error {
	if cmd == nil {
		return ErrNilCmd
	}
	if cmd.Path == "" {
		return ErrEmptyCmdPath
	}
	if dataDir == "" {
		return ErrEmptyDataDir
	}
	if b.cmd != nil {
		return ErrAlreadyStarted
	}

	cmd.Dir = dataDir
	configureSysProcAttr(cmd)

	// Release handles from a previous run before new files are created.
	b.logFiles.Close()

	logFiles, err := StartCmd(cmd, dataDir, b.name)
	if err != nil {
		return fmt.Errorf("start command: %w", err)
	}
	b.cmd = cmd
	b.logFiles = logFiles
	b.startedAt = time.Now()

	done := make(chan error, 1)
	exited := make(chan struct{})
	go func() {
		done <- cmd.Wait()
		close(exited)
	}()
	b.waitDone = done
	b.exited = exited

	return nil
}
