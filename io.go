package filesession

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

const (
	// ChunkSize is the largest transfer issued per native read or write.
	ChunkSize = 4096

	// DefaultTimeout makes an i/o call use the retry budget as its timeout.
	DefaultTimeout time.Duration = -1
)

func (s *Session) deadline(timeout time.Duration) time.Time {
	if timeout < 0 {
		timeout = s.budget()
	}
	return time.Now().Add(timeout)
}

// Read reads n bytes from the current position, or everything up to EOF when
// n is 0, in chunks of at most ChunkSize. A shared lock is taken first unless
// a lock is already held; its retries do not count against timeout.
//
// The returned data is whatever was read, also on error. Reaching EOF before
// n bytes yields io.ErrUnexpectedEOF (io.EOF if nothing was read); running
// out of time yields ErrIOTimeout.
func (s *Session) Read(n int, timeout time.Duration) ([]byte, error) {
	s.debugf("read(%d, %s)", n, timeout)

	if s.file == nil {
		return nil, &PathError{Op: "read", Err: ErrNoResource}
	}
	if n < 0 {
		return nil, &PathError{Op: "read", Path: s.path, Err: fmt.Errorf("negative byte count %d", n)}
	}
	if err := s.ensureLock(LockShared); err != nil {
		return nil, err
	}

	deadline := s.deadline(timeout)
	var buf bytes.Buffer
	chunk := make([]byte, ChunkSize)
	remaining := n

	for n == 0 || remaining > 0 {
		if !time.Now().Before(deadline) {
			s.errorf("read %s: timeout occurred before EOF (%d bytes read)", s.path, buf.Len())
			return buf.Bytes(), &PathError{Op: "read", Path: s.path, Err: ErrIOTimeout}
		}

		part := ChunkSize
		if n > 0 && remaining < part {
			part = remaining
		}
		m, err := s.file.Read(chunk[:part])
		buf.Write(chunk[:m])
		remaining -= m

		if errors.Is(err, io.EOF) || (m == 0 && err == nil) {
			if n == 0 {
				return buf.Bytes(), nil
			}
			s.debugf("read %s: EOF after %d of %d bytes", s.path, buf.Len(), n)
			if buf.Len() == 0 {
				return buf.Bytes(), io.EOF
			}
			return buf.Bytes(), io.ErrUnexpectedEOF
		}
		if err != nil {
			return buf.Bytes(), &PathError{Op: "read", Path: s.path, Err: err}
		}
	}
	return buf.Bytes(), nil
}

// ReadString is Read for text sessions. Byte sequences that are not valid
// UTF-8, including a character cut off at n bytes, become U+FFFD.
func (s *Session) ReadString(n int, timeout time.Duration) (string, error) {
	s.debugf("read_string(%d, %s)", n, timeout)
	if s.file != nil && s.binary {
		return "", &PathError{Op: "read", Path: s.path, Err: ErrBinaryMode}
	}

	data, err := s.Read(n, timeout)
	text, decErr := unicode.UTF8.NewDecoder().Bytes(data)
	if decErr != nil {
		text = data
	}
	return string(text), err
}

// Write writes data at the current position (at the end in append mode) in
// chunks of at most ChunkSize, after taking an exclusive lock. It returns the
// number of bytes written; when timeout expires first the count is partial,
// the cached size is reloaded from disk and ErrIOTimeout is returned.
//
// Text sessions only accept valid UTF-8.
func (s *Session) Write(data []byte, timeout time.Duration) (int, error) {
	s.debugf("write(%d bytes, %s)", len(data), timeout)

	if s.file == nil {
		return 0, &PathError{Op: "write", Err: ErrNoResource}
	}
	if !s.binary && !utf8.Valid(data) {
		return 0, &PathError{Op: "write", Path: s.path, Err: ErrInvalidText}
	}
	return s.write(data, timeout)
}

// WriteString writes text encoded as UTF-8. It works in both modes.
func (s *Session) WriteString(text string, timeout time.Duration) (int, error) {
	s.debugf("write_string(%d bytes, %s)", len(text), timeout)

	if s.file == nil {
		return 0, &PathError{Op: "write", Err: ErrNoResource}
	}
	return s.write([]byte(text), timeout)
}

func (s *Session) write(data []byte, timeout time.Duration) (int, error) {
	if err := s.ensureLock(LockExclusive); err != nil {
		return 0, err
	}

	start, err := s.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, &PathError{Op: "write", Path: s.path, Err: err}
	}
	if s.mode.Append {
		start = s.size
	}
	end := start + int64(len(data))

	deadline := s.deadline(timeout)
	written := 0
	for written < len(data) && time.Now().Before(deadline) {
		part := min(ChunkSize, len(data)-written)
		m, err := s.file.Write(data[written : written+part])
		written += m
		if err != nil {
			s.refreshSize()
			s.errorf("write %s: failed after %d of %d bytes: %v", s.path, written, len(data), err)
			return written, &PathError{Op: "write", Path: s.path, Err: err}
		}
	}

	if written < len(data) {
		s.refreshSize()
		s.errorf("write %s: timeout occurred after %d of %d bytes", s.path, written, len(data))
		return written, &PathError{Op: "write", Path: s.path, Err: ErrIOTimeout}
	}

	if end > s.size {
		s.size = end
	}
	return written, nil
}

// Truncate resizes the file to size under an exclusive lock. The position is
// not moved.
func (s *Session) Truncate(size int64) error {
	s.debugf("truncate(%d)", size)

	if s.file == nil {
		return &PathError{Op: "truncate", Err: ErrNoResource}
	}
	if err := s.ensureLock(LockExclusive); err != nil {
		return err
	}
	if err := s.file.Truncate(size); err != nil {
		return &PathError{Op: "truncate", Path: s.path, Err: err}
	}
	s.size = size
	return nil
}
