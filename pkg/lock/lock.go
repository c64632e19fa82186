package lock

import (
	"fmt"
	"os"
	"strings"

	"github.com/arthur-debert/envdeploy/pkg/errors"
	"github.com/arthur-debert/envdeploy/pkg/logging"
	"github.com/arthur-debert/envdeploy/pkg/paths"
)

// WriteLock is a held write lock. It must be released exactly once.
type WriteLock struct {
	path string
	file *os.File
}

// Acquire takes the write lock for root. It never blocks: when another
// process, or another run in this process, holds the lock an ErrLockHeld
// error is returned.
func Acquire(root string) (*WriteLock, error) {
	logger := logging.GetLogger("lock")

	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, errors.Wrap(err, errors.ErrDirCreate, "cannot create lock directory").
			WithDetail("path", root)
	}

	path := paths.LockPath(root)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrFileAccess, "cannot open lock file").
			WithDetail("path", path)
	}

	if err := lockFile(file); err != nil {
		holder := readHolder(file)
		_ = file.Close()
		if err == errHeld {
			return nil, errors.Newf(errors.ErrLockHeld, "another deploy holds the write lock at %s%s", path, holder).
				WithDetail("path", path)
		}
		return nil, errors.Wrap(err, errors.ErrFileAccess, "cannot lock file").
			WithDetail("path", path)
	}

	// Record the holder for the error message of concurrent runs
	if err := file.Truncate(0); err == nil {
		_, _ = file.WriteAt([]byte(fmt.Sprintf("%d\n", os.Getpid())), 0)
	}

	logger.Debug().Str("path", path).Msg("Write lock acquired")
	return &WriteLock{path: path, file: file}, nil
}

// Path returns the lock file location.
func (l *WriteLock) Path() string {
	return l.path
}

// Release drops the lock. The lock file itself is left in place, removing
// it would let a waiting process lock a file that is about to vanish.
func (l *WriteLock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}

	_ = l.file.Truncate(0)
	unlockErr := unlockFile(l.file)
	closeErr := l.file.Close()
	l.file = nil

	logger := logging.GetLogger("lock")
	logger.Debug().Str("path", l.path).Msg("Write lock released")

	if unlockErr != nil {
		return errors.Wrap(unlockErr, errors.ErrFileAccess, "cannot unlock file").WithDetail("path", l.path)
	}
	if closeErr != nil {
		return errors.Wrap(closeErr, errors.ErrFileAccess, "cannot close lock file").WithDetail("path", l.path)
	}
	return nil
}

// CheckDisabled fails with ErrWriteLocked when deploys have been disabled
// administratively by setting a write lock message.
func CheckDisabled(message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil
	}
	return errors.Newf(errors.ErrWriteLocked, "deploys are disabled: %s", message)
}

func readHolder(file *os.File) string {
	buf := make([]byte, 32)
	n, _ := file.ReadAt(buf, 0)
	pid := strings.TrimSpace(string(buf[:n]))
	if pid == "" {
		return ""
	}
	return fmt.Sprintf(" (pid %s)", pid)
}
