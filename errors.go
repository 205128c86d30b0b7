package filesession

import (
	"errors"
	"fmt"
)

// Session errors
var (
	ErrAlreadyOpen    = errors.New("session already holds a file")
	ErrNotExist       = errors.New("file does not exist")
	ErrCreationFailed = errors.New("file could not be created or opened")
	ErrLockDenied     = errors.New("exclusive lock denied on read-only session")
	ErrLockTimeout    = errors.New("lock retry budget exhausted")
	ErrIOTimeout      = errors.New("i/o deadline exceeded")
	ErrNoResource     = errors.New("session holds no file")
	ErrBinaryMode     = errors.New("session is in binary mode")
	ErrInvalidText    = errors.New("payload is not valid UTF-8")
	ErrNotSupported   = errors.New("operation not supported")
)

// errLockBusy is returned by a single acquisition attempt when another holder
// blocks it. The acquire loop turns it into ErrLockTimeout once the budget runs out.
var errLockBusy = errors.New("lock held by another session")

// PathError records an error and the operation and file path that caused it
type PathError struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface
func (e *PathError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error
func (e *PathError) Unwrap() error {
	return e.Err
}

// IsNotExist reports whether an error indicates that the target file
// does not exist
func IsNotExist(err error) bool {
	return errors.Is(err, ErrNotExist)
}

// IsTimeout reports whether an error is a lock or i/o timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrLockTimeout) || errors.Is(err, ErrIOTimeout)
}

// IsLockDenied reports whether an exclusive lock was refused because the
// session is read-only.
func IsLockDenied(err error) bool {
	return errors.Is(err, ErrLockDenied)
}
