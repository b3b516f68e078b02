// Package locking implements the directory-level session lock consumed
// by begin_session/end_session: at most one writable database per
// directory at a time.
package locking

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/fulldump/idxdb/dberrors"
)

const lockFileName = ".lock"

// Lock is an acquired session lock over one database directory.
type Lock struct {
	path  string
	owner string
}

// Acquire creates dir's lock file with O_EXCL, polling with backoff until
// it succeeds or timeout elapses. timeout == 0 means a non-blocking
// try-once acquire.
func Acquire(dir string, timeout time.Duration) (*Lock, error) {
	path := filepath.Join(dir, lockFileName)
	owner := uuid.NewString()

	var deadline time.Time
	hasDeadline := timeout > 0
	if hasDeadline {
		deadline = time.Now().Add(timeout)
	}

	backoff := 10 * time.Millisecond
	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			fmt.Fprintf(f, "%s\n%d\n", owner, os.Getpid())
			f.Close()
			return &Lock{path: path, owner: owner}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("%w: %s", dberrors.ErrIO, err.Error())
		}
		if timeout == 0 {
			return nil, dberrors.ErrDatabaseLocked
		}
		if hasDeadline && time.Now().After(deadline) {
			return nil, dberrors.ErrDatabaseLocked
		}
		time.Sleep(backoff)
		if backoff < 200*time.Millisecond {
			backoff *= 2
		}
	}
}

// Release removes the lock file. Safe to call on a nil Lock.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	return os.Remove(l.path)
}
