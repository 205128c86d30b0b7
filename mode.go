package filesession

import (
	"fmt"
	"strings"
)

// LockMode is the advisory lock a session holds on its file.
type LockMode int

const (
	// LockNone means no file is held.
	LockNone LockMode = iota
	// LockShared allows other shared holders but no exclusive holder.
	LockShared
	// LockExclusive excludes every other holder.
	LockExclusive
)

// String returns the lock mode name
func (m LockMode) String() string {
	switch m {
	case LockShared:
		return "shared"
	case LockExclusive:
		return "exclusive"
	default:
		return "none"
	}
}

// covers reports whether holding m satisfies a request for want.
func (m LockMode) covers(want LockMode) bool {
	return m != LockNone && m >= want
}

// OpenMode selects how Open creates and positions the file and whether
// payloads are raw bytes or UTF-8 text.
type OpenMode struct {
	// Append positions the session at the end of the file and makes every
	// write land there.
	Append bool

	// Truncate empties an existing file on open.
	Truncate bool

	// Create creates the file when it does not exist.
	Create bool

	// Binary selects raw byte payloads. When false the session tries text
	// mode and falls back to binary if the existing content is not text.
	Binary bool
}

// DefaultOpenMode is append, read and write, create if absent, binary.
var DefaultOpenMode = OpenMode{Append: true, Create: true, Binary: true}

// TextOpenMode is DefaultOpenMode with text payloads.
var TextOpenMode = OpenMode{Append: true, Create: true}

// ParseOpenMode converts a traditional mode string ("a+b", "r+", "w+b", ...)
// into an OpenMode. Read/write access is decided by Open's readonly flag, so
// '+' is accepted and ignored.
func ParseOpenMode(s string) (OpenMode, error) {
	if s == "" {
		return OpenMode{}, fmt.Errorf("%w: empty open mode", ErrNotSupported)
	}

	var m OpenMode
	switch s[0] {
	case 'r':
	case 'w':
		m.Create = true
		m.Truncate = true
	case 'a':
		m.Create = true
		m.Append = true
	default:
		return OpenMode{}, fmt.Errorf("%w: open mode %q", ErrNotSupported, s)
	}

	for _, c := range s[1:] {
		switch c {
		case '+', 't':
		case 'b':
			m.Binary = true
		default:
			return OpenMode{}, fmt.Errorf("%w: open mode %q", ErrNotSupported, s)
		}
	}
	return m, nil
}

// String renders the mode in the traditional notation.
func (m OpenMode) String() string {
	var b strings.Builder
	switch {
	case m.Append:
		b.WriteByte('a')
	case m.Truncate:
		b.WriteByte('w')
	default:
		b.WriteByte('r')
	}
	b.WriteByte('+')
	if m.Binary {
		b.WriteByte('b')
	}
	return b.String()
}
