package filesession

import (
	"context"
	"os"
	"time"
)

// Info is a snapshot of a session's file
type Info struct {
	Path       string
	Size       int64 // on-disk size at the time of the call
	CachedSize int64 // size the session last trusted
	Position   int64
	ModTime    time.Time
	Mode       os.FileMode
	Lock       LockMode
	Locking    Locking
	Readonly   bool
	Binary     bool
}

// ============================================================================
// Core Interfaces (Interface Segregation)
// ============================================================================

// Reader is the read side of a session.
// Use this type in function signatures that must not modify the file.
type Reader interface {
	// Read reads n bytes, or up to EOF when n is 0.
	Read(n int, timeout time.Duration) ([]byte, error)

	// ReadString reads like Read and decodes the result as UTF-8.
	ReadString(n int, timeout time.Duration) (string, error)

	// Seek moves the position to an absolute offset.
	Seek(offset int64) error

	// Tell returns the position.
	Tell() (int64, error)

	// AtEOF reports whether the position equals the cached size.
	AtEOF() bool
}

// Writer is the write side of a session.
type Writer interface {
	// Write writes data at the position and returns the bytes written.
	Write(data []byte, timeout time.Duration) (int, error)

	// WriteString writes UTF-8 encoded text.
	WriteString(text string, timeout time.Duration) (int, error)

	// Truncate resizes the file.
	Truncate(size int64) error

	// Flush commits written data to stable storage.
	Flush() error
}

// Locker exposes the advisory lock state machine.
type Locker interface {
	Lock(mode LockMode) error
	LockContext(ctx context.Context, mode LockMode) error
	LockMode() LockMode
}

// FileSession is the full session surface.
type FileSession interface {
	Reader
	Writer
	Locker
	Open(path string, readonly bool, mode OpenMode) error
	Close(deleteIfEmpty bool) error
	IsOpen() bool
}

// ============================================================================
// Change notification (ChangeToken Pattern)
// ============================================================================

// ChangeToken represents a change notification token.
//
// Consumers can either:
// 1. Poll HasChanged() periodically
// 2. Register a callback via RegisterChangeCallback()
type ChangeToken interface {
	// HasChanged returns true if a change has occurred.
	// Once true, it remains true (tokens are single-use).
	HasChanged() bool

	// ActiveChangeCallbacks indicates if the token proactively raises callbacks.
	ActiveChangeCallbacks() bool

	// RegisterChangeCallback registers a callback to be invoked when change occurs.
	// Returns a function to unregister the callback.
	RegisterChangeCallback(callback func()) (unregister func())
}

// Ensure Session implements interfaces
var (
	_ FileSession = (*Session)(nil)
	_ Reader      = (*Session)(nil)
	_ Writer      = (*Session)(nil)
	_ Locker      = (*Session)(nil)
)
