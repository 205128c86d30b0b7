package filesession

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// backend performs a single lock acquisition attempt per call. Retrying and
// sleeping belong to Session.Lock.
type backend interface {
	tryLock(t lockTarget, want LockMode) error
	release(t lockTarget) error
}

// lockTarget is what a back-end needs to know about the requesting session.
type lockTarget struct {
	file       *os.File
	path       string
	held       LockMode
	staleAfter time.Duration
}

// markerPath returns the sibling marker used by fallback locking.
func markerPath(path string) string {
	return filepath.Clean(path + ".lock")
}

// markerLocker encodes an exclusive holder as the existence of "<path>.lock".
// Shared holders leave no trace. Checking and creating the marker are separate
// steps, so two processes can both observe it absent and both create it; this
// is a best-effort protocol, not a correctness guarantee.
type markerLocker struct{}

func (markerLocker) tryLock(t lockTarget, want LockMode) error {
	marker := markerPath(t.path)

	locked, err := markerHeld(marker, t.staleAfter)
	if err != nil {
		return err
	}

	if want == LockExclusive {
		switch {
		case locked && t.held == LockExclusive:
			return nil
		case !locked:
			f, err := os.OpenFile(marker, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o666)
			if err != nil {
				return fmt.Errorf("create lock marker: %w", err)
			}
			return f.Close()
		default:
			return errLockBusy
		}
	}

	switch {
	case locked && t.held == LockExclusive:
		if err := os.Remove(marker); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove lock marker: %w", err)
		}
		return nil
	case !locked:
		return nil
	default:
		return errLockBusy
	}
}

func (markerLocker) release(t lockTarget) error {
	if t.held != LockExclusive {
		return nil
	}
	err := os.Remove(markerPath(t.path))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// markerHeld reports whether a live marker exists. A marker whose
// modification time is older than staleAfter is removed and treated as absent.
func markerHeld(marker string, staleAfter time.Duration) (bool, error) {
	info, err := os.Stat(marker)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat lock marker: %w", err)
	}

	if time.Since(info.ModTime()) > staleAfter {
		if err := os.Remove(marker); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return false, fmt.Errorf("remove stale lock marker: %w", err)
		}
		return false, nil
	}
	return true, nil
}
