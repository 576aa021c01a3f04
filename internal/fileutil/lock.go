package fileutil

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"
)

// lockRetryInterval is the interval between attempts to take a file lock.
const lockRetryInterval = 50 * time.Millisecond

// AcquireLock takes an exclusive inter-process lock on lockPath, creating the
// file and its parent directory if needed. It retries until the lock is held
// or ctx is done.
func AcquireLock(ctx context.Context, lockPath string) (*flock.Flock, error) {
	if err := EnsureDirForFile(lockPath); err != nil {
		return nil, err
	}

	fl := flock.New(lockPath)
	locked, err := fl.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return nil, fmt.Errorf("acquire file lock %s: %w", lockPath, err)
	}
	if !locked {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("acquire file lock %s: %w", lockPath, ctx.Err())
		}
		return nil, fmt.Errorf("acquire file lock %s: lock not acquired", lockPath)
	}
	return fl, nil
}

// ReleaseLock unlocks and closes fl. The lock file stays on disk: removing it
// could invalidate a lock another process takes in between.
// Errors are logged at debug level only.
func ReleaseLock(log *slog.Logger, fl *flock.Flock) {
	if fl == nil {
		return
	}
	if err := fl.Close(); err != nil {
		log.Debug("release file lock", "path", fl.Path(), "error", err)
	}
}
