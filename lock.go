package filesession

import (
	"context"
	"fmt"
	"time"
)

// Lock changes the advisory lock to mode. It retries up to the retry budget,
// sleeping one retry interval after each failed attempt, and cannot be
// cancelled; use LockContext for that.
//
// Requesting LockExclusive on a read-only session fails at once with
// ErrLockDenied. Requesting the mode already held succeeds at once. When the
// budget runs out the held mode is unchanged and ErrLockTimeout is returned.
func (s *Session) Lock(mode LockMode) error {
	return s.LockContext(context.Background(), mode)
}

// LockContext is Lock with the sleeps between attempts bounded by ctx.
func (s *Session) LockContext(ctx context.Context, mode LockMode) error {
	s.debugf("lock(%s)", mode)

	if s.file == nil {
		s.warnf("lock(%s): file resource invalid", mode)
		return &PathError{Op: "lock", Err: ErrNoResource}
	}
	if mode != LockShared && mode != LockExclusive {
		return &PathError{Op: "lock", Path: s.path, Err: fmt.Errorf("%w: lock mode %s", ErrNotSupported, mode)}
	}
	if mode == LockExclusive && s.readonly {
		s.errorf("lock(%s): %s is opened read-only", mode, s.path)
		return &PathError{Op: "lock", Path: s.path, Err: ErrLockDenied}
	}
	if mode == s.lockMode {
		return nil
	}

	attempts := max(s.retries, 1)
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = s.backend.tryLock(s.target(), mode)
		if lastErr == nil {
			s.lockMode = mode
			s.refreshSize()
			return nil
		}
		s.debugf("lock(%s): attempt %d/%d on %s failed: %v", mode, attempt, attempts, s.path, lastErr)

		if s.retries > 0 {
			if err := sleepContext(ctx, s.interval); err != nil {
				s.errorf("lock(%s): change on %s cancelled: %v", mode, s.path, err)
				return &PathError{Op: "lock", Path: s.path, Err: err}
			}
		}
	}

	s.errorf("lock(%s): change on %s failed after %d attempts", mode, s.path, attempts)
	return &PathError{Op: "lock", Path: s.path, Err: fmt.Errorf("%w: %w", ErrLockTimeout, lastErr)}
}

// ensureLock takes want unless the held mode already covers it.
func (s *Session) ensureLock(want LockMode) error {
	if s.lockMode.covers(want) {
		return nil
	}
	return s.Lock(want)
}

func (s *Session) target() lockTarget {
	return lockTarget{
		file:       s.file,
		path:       s.path,
		held:       s.lockMode,
		staleAfter: s.budget(),
	}
}

// budget is the retry budget expressed as a duration.
func (s *Session) budget() time.Duration {
	return time.Duration(s.retries) * s.interval
}

// refreshSize reloads the cached size from disk.
func (s *Session) refreshSize() {
	info, err := s.file.Stat()
	if err != nil {
		s.warnf("stat %s failed, cached size is stale: %v", s.path, err)
		return
	}
	s.size = info.Size()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
