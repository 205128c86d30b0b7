//go:build unix

package filesession

import (
	"errors"

	"golang.org/x/sys/unix"
)

func init() {
	registerBackend(LockingNative, func() backend { return flockLocker{} })
}

// flockLocker uses flock(2) on the session's descriptor. Each attempt is
// non-blocking; the OS owns correctness and releases the lock when the
// descriptor is closed.
type flockLocker struct{}

func (flockLocker) tryLock(t lockTarget, want LockMode) error {
	fd := int(t.file.Fd())

	err := unix.Flock(fd, flockOp(want)|unix.LOCK_NB)
	if errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EAGAIN) {
		// A conversion is not atomic: the kernel may have dropped the held
		// lock before refusing the new one.
		if t.held != LockNone {
			_ = unix.Flock(fd, flockOp(t.held)|unix.LOCK_NB)
		}
		return errLockBusy
	}
	return err
}

func flockOp(mode LockMode) int {
	if mode == LockExclusive {
		return unix.LOCK_EX
	}
	return unix.LOCK_SH
}

func (flockLocker) release(t lockTarget) error {
	return unix.Flock(int(t.file.Fd()), unix.LOCK_UN)
}
