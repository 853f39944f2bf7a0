package export

import (
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// LockTimeout is how long an export waits for another process to finish
// writing the same target.
const LockTimeout = 5 * time.Second

// Lock errors.
var (
	ErrLockTimeout  = errors.New("export lock timeout")
	errLockFileOpen = errors.New("failed to open lock file")
)

const (
	filePerms = 0o644
	dirPerms  = 0o755
)

// fileLock is an exclusive flock held on "<target>.lock".
type fileLock struct {
	file *os.File
}

// acquireLock takes an exclusive lock guarding target. A separate lock file
// is used because target itself is replaced by rename.
func acquireLock(target string, timeout time.Duration) (*fileLock, error) {
	lockPath := target + ".lock"

	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, filePerms) //nolint:gosec // path is from config
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errLockFileOpen, err)
	}

	deadline := time.Now().Add(timeout)

	const retryInterval = 10 * time.Millisecond

	for {
		flockErr := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if flockErr == nil {
			return &fileLock{file: file}, nil
		}

		if !errors.Is(flockErr, unix.EWOULDBLOCK) && !errors.Is(flockErr, unix.EINTR) {
			_ = file.Close()

			return nil, fmt.Errorf("flock %s: %w", lockPath, flockErr)
		}

		if time.Now().After(deadline) {
			_ = file.Close()

			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, target)
		}

		time.Sleep(retryInterval)
	}
}

func (l *fileLock) release() error {
	if l.file == nil {
		return nil
	}

	unlockErr := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil

	return errors.Join(unlockErr, closeErr)
}

// withLock runs fn while holding the lock for target.
func withLock(target string, fn func() error) (err error) {
	lk, err := acquireLock(target, LockTimeout)
	if err != nil {
		return err
	}

	defer func() {
		err = errors.Join(err, lk.release())
	}()

	return fn()
}
