package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
)

// ErrLocked is returned when another process holds the ROM lock past the
// caller's deadline
var ErrLocked = errors.New("❌ ROM is locked by another process")

const lockPollInterval = 100 * time.Millisecond

// fileLock is a cross-process lock: a file next to the ROM holding the
// owner's PID. Locks left behind by dead processes are removed.
type fileLock struct {
	path   string
	logger hclog.Logger
}

func lockPathFor(romPath string) string {
	return romPath + ".lock"
}

// tryAcquire makes one attempt at taking the lock
func (l *fileLock) tryAcquire() (bool, error) {
	if data, err := os.ReadFile(l.path); err == nil {
		l.logger.Debug("🔍 Lock file exists, checking if it's stale...")

		contents := strings.TrimSpace(string(data))
		pid, err := strconv.Atoi(contents)
		switch {
		case err != nil:
			l.logger.Info("🧹 Removing invalid lock file (couldn't parse PID)", "path", l.path)
			os.Remove(l.path)
		case !processAlive(pid):
			l.logger.Info("🧹 Removing stale lock from dead process", "pid", pid)
			os.Remove(l.path)
		default:
			l.logger.Debug("🔒 Lock held by active process", "pid", pid)
			return false, nil
		}
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, err
	}
	defer file.Close()

	if _, err := fmt.Fprintf(file, "%d\n", os.Getpid()); err != nil {
		os.Remove(l.path)
		return false, err
	}

	l.logger.Debug("🔒 Acquired ROM lock", "path", l.path, "pid", os.Getpid())
	return true, nil
}

// acquire polls until the lock is taken or ctx ends
func (l *fileLock) acquire(ctx context.Context) error {
	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()

	for attempt := 0; ; attempt++ {
		ok, err := l.tryAcquire()
		if err != nil {
			return fmt.Errorf("taking lock %s: %w", l.path, err)
		}
		if ok {
			return nil
		}

		if attempt%10 == 0 {
			l.logger.Debug("⏳ Waiting for ROM lock...", "path", l.path)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s: %v", ErrLocked, l.path, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *fileLock) release() {
	if err := os.Remove(l.path); err != nil {
		l.logger.Debug("⚠️ Failed to remove lock file", "error", err)
	} else {
		l.logger.Debug("🔓 Released ROM lock")
	}
}
