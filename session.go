package filesession

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Session is one open file together with its advisory lock state and cached
// metadata.
//
// A Session is not safe for concurrent use. Contention between independent
// sessions, in this process or another, is what the lock manager arbitrates;
// two goroutines sharing one Session need their own mutual exclusion.
type Session struct {
	file     *os.File
	path     string
	size     int64
	lockMode LockMode
	readonly bool
	binary   bool
	mode     OpenMode
	backend  backend

	retries     int
	interval    time.Duration
	umask       int
	hasUmask    bool
	permissions os.FileMode
	hasPerm     bool
	logger      Logger
	locking     Locking
	fallback    pathPatterns
}

// New creates an unopened Session.
func New(opts ...Option) (*Session, error) {
	o := processOptions(opts...)

	if o.TimeoutRetries < 0 {
		return nil, fmt.Errorf("timeout retries must be >= 0, got %d", o.TimeoutRetries)
	}
	if o.RetryInterval <= 0 {
		return nil, fmt.Errorf("retry interval must be positive, got %s", o.RetryInterval)
	}

	s := &Session{
		size:     -1,
		retries:  o.TimeoutRetries,
		interval: o.RetryInterval,
		logger:   o.Logger,
	}

	if o.Umask != "" {
		mask, err := ParseUmask(o.Umask)
		if err != nil {
			return nil, err
		}
		s.umask, s.hasUmask = mask, true
	}
	if o.Permissions != "" {
		perm, err := ParsePermissions(o.Permissions)
		if err != nil {
			return nil, err
		}
		s.permissions, s.hasPerm = perm, true
	}

	kind, err := ParseLocking(string(o.Locking))
	if err != nil {
		return nil, err
	}
	s.locking = kind.resolve()
	if _, err := createBackend(s.locking); err != nil {
		return nil, err
	}

	if s.fallback, err = compilePatterns(o.FallbackPatterns); err != nil {
		return nil, err
	}

	runtime.SetFinalizer(s, (*Session).finalize)
	return s, nil
}

// finalize closes a Session that was dropped while still holding a file.
func (s *Session) finalize() {
	if s.file != nil {
		_ = s.Close(true)
	}
}

// Open opens path and takes a shared lock on it. On any failure the Session
// stays unopened and a file created by this call is removed again.
func (s *Session) Open(path string, readonly bool, mode OpenMode) error {
	s.debugf("open(%s, readonly=%t, mode=%s)", path, readonly, mode)

	if s.file != nil {
		return &PathError{Op: "open", Path: path, Err: ErrAlreadyOpen}
	}

	path = filepath.Clean(path)

	exists, err := regularFileExists(path)
	if err != nil {
		return &PathError{Op: "open", Path: path, Err: err}
	}
	if !exists && readonly {
		s.warnf("failed opening %s: file does not exist", path)
		return &PathError{Op: "open", Path: path, Err: ErrNotExist}
	}
	created := !exists && !readonly

	flags := os.O_RDONLY
	if !readonly {
		flags = os.O_RDWR
		if mode.Create {
			flags |= os.O_CREATE
		}
		if mode.Truncate {
			flags |= os.O_TRUNC
		}
		if mode.Append {
			flags |= os.O_APPEND
		}
	}

	perm := os.FileMode(0o666)
	if s.hasPerm {
		perm = s.permissions.Perm()
	}

	var f *os.File
	openFile := func() error {
		var err error
		f, err = os.OpenFile(path, flags, perm)
		return err
	}
	if created && s.hasUmask {
		err = withUmask(s.umask, openFile)
	} else {
		err = openFile()
	}
	if err != nil {
		if created {
			s.removeArtifact(path)
		}
		return &PathError{Op: "open", Path: path, Err: fmt.Errorf("%w: %w", ErrCreationFailed, err)}
	}

	binary := mode.Binary
	if !binary {
		text, err := sniffText(f)
		switch {
		case err != nil:
			s.warnf("open %s: cannot inspect content, using binary mode: %v", path, err)
			binary = true
		case !text:
			s.debugf("open %s: content is not text, using binary mode", path)
			binary = true
		}
	}

	if created && s.hasPerm {
		if err := os.Chmod(path, s.permissions); err != nil {
			s.warnf("open %s: chmod %s failed: %v", path, s.permissions, err)
		}
	}

	s.file = f
	s.path = path
	s.readonly = readonly
	s.binary = binary
	s.mode = mode
	s.lockMode = LockNone
	s.backend = s.backendFor(path)

	if err := s.Lock(LockShared); err != nil {
		s.rollback(created)
		return err
	}

	if mode.Append {
		if _, err := f.Seek(0, io.SeekEnd); err != nil {
			s.warnf("open %s: seek to end failed: %v", path, err)
		}
	}
	return nil
}

// rollback undoes a half-finished Open.
func (s *Session) rollback(created bool) {
	path := s.path
	if err := s.backend.release(s.target()); err != nil {
		s.warnf("open %s: releasing lock failed: %v", path, err)
	}
	if err := s.file.Close(); err != nil {
		s.warnf("open %s: closing handle failed: %v", path, err)
	}
	if created {
		s.removeArtifact(path)
	}
	s.reset()
}

// Close releases the lock and the file handle. When deleteIfEmpty is set on a
// writable session whose position is still at the start after a 1-byte probe
// read, the file is removed. The Session is unopened afterwards even when a
// step fails.
func (s *Session) Close(deleteIfEmpty bool) error {
	s.debugf("close(deleteIfEmpty=%t)", deleteIfEmpty)

	if s.file == nil {
		return &PathError{Op: "close", Err: ErrNoResource}
	}
	defer s.reset()

	path := s.path
	remove := !s.readonly && deleteIfEmpty

	pos, err := s.file.Seek(0, io.SeekCurrent)
	if err != nil {
		s.warnf("close %s: reading position failed: %v", path, err)
		remove = false
	}
	if remove && pos == 0 {
		// Read one byte so a file grown by another holder is not mistaken for
		// empty. A direct read: the i/o deadline may already be spent.
		_, _ = s.file.Read(make([]byte, 1))
		if pos, err = s.file.Seek(0, io.SeekCurrent); err != nil {
			s.warnf("close %s: reading position failed: %v", path, err)
			remove = false
		}
	}

	if err := s.backend.release(s.target()); err != nil {
		s.warnf("close %s: releasing %s lock failed: %v", path, s.lockMode, err)
	}
	if err := s.file.Close(); err != nil {
		s.warnf("close %s: closing handle failed: %v", path, err)
	}

	if remove && pos == 0 {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.warnf("close %s: removing empty file failed: %v", path, err)
			return &PathError{Op: "close", Path: path, Err: err}
		}
	}
	return nil
}

func (s *Session) reset() {
	s.file = nil
	s.path = ""
	s.size = -1
	s.lockMode = LockNone
	s.readonly = false
	s.binary = false
	s.mode = OpenMode{}
	s.backend = nil
}

// Flush commits written data to stable storage.
func (s *Session) Flush() error {
	s.debugf("flush()")
	if s.file == nil {
		return &PathError{Op: "flush", Err: ErrNoResource}
	}
	if err := s.file.Sync(); err != nil {
		return &PathError{Op: "flush", Path: s.path, Err: err}
	}
	return nil
}

// Seek moves the position to offset bytes from the start of the file.
func (s *Session) Seek(offset int64) error {
	s.debugf("seek(%d)", offset)
	if s.file == nil {
		return &PathError{Op: "seek", Err: ErrNoResource}
	}
	if _, err := s.file.Seek(offset, io.SeekStart); err != nil {
		return &PathError{Op: "seek", Path: s.path, Err: err}
	}
	return nil
}

// Tell returns the current position.
func (s *Session) Tell() (int64, error) {
	s.debugf("tell()")
	if s.file == nil {
		return -1, &PathError{Op: "tell", Err: ErrNoResource}
	}
	pos, err := s.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return -1, &PathError{Op: "tell", Path: s.path, Err: err}
	}
	return pos, nil
}

// AtEOF reports whether the position equals the cached size. An unopened
// session is always at EOF.
func (s *Session) AtEOF() bool {
	s.debugf("eof_check()")
	if s.file == nil {
		return true
	}
	pos, err := s.file.Seek(0, io.SeekCurrent)
	return err == nil && pos == s.size
}

// IsOpen reports whether the session holds a file.
func (s *Session) IsOpen() bool {
	s.debugf("resource_check()")
	return s.file != nil
}

// Handle returns the underlying file. Reading or writing through it bypasses
// locking and the cached size.
func (s *Session) Handle() (*os.File, bool) {
	return s.file, s.file != nil
}

// Path returns the normalized path of the held file, or "".
func (s *Session) Path() string { return s.path }

// Size returns the cached size, or -1 when unopened. It is only current right
// after a lock change or a write.
func (s *Session) Size() int64 { return s.size }

// LockMode returns the lock currently held.
func (s *Session) LockMode() LockMode { return s.lockMode }

// Readonly reports whether the held file was opened read-only.
func (s *Session) Readonly() bool { return s.readonly }

// Binary reports whether payloads are raw bytes rather than text.
func (s *Session) Binary() bool { return s.binary }

// Locking returns the back-end in use: the resolved construction choice, or
// fallback when the held path matches a fallback pattern.
func (s *Session) Locking() Locking {
	if s.file != nil {
		if _, ok := s.backend.(markerLocker); ok {
			return LockingFallback
		}
	}
	return s.locking
}

// SetLogger replaces the diagnostic sink. nil disables diagnostics.
func (s *Session) SetLogger(l Logger) {
	s.logger = l
}

// Info returns a snapshot of the held file.
func (s *Session) Info() (*Info, error) {
	if s.file == nil {
		return nil, &PathError{Op: "info", Err: ErrNoResource}
	}
	st, err := s.file.Stat()
	if err != nil {
		return nil, &PathError{Op: "info", Path: s.path, Err: err}
	}
	pos, err := s.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, &PathError{Op: "info", Path: s.path, Err: err}
	}
	return &Info{
		Path:       s.path,
		Size:       st.Size(),
		CachedSize: s.size,
		Position:   pos,
		ModTime:    st.ModTime(),
		Mode:       st.Mode(),
		Lock:       s.lockMode,
		Locking:    s.Locking(),
		Readonly:   s.readonly,
		Binary:     s.binary,
	}, nil
}

func (s *Session) backendFor(path string) backend {
	if s.fallback.match(path) {
		return markerLocker{}
	}
	l, err := createBackend(s.locking)
	if err != nil {
		// New validated the back-end; only a registry change could get here.
		s.warnf("open %s: %v; using fallback locking", path, err)
		return markerLocker{}
	}
	return l
}

func (s *Session) removeArtifact(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.warnf("removing partially created %s failed: %v", path, err)
	}
}

// regularFileExists reports whether path names an existing regular file.
func regularFileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !info.Mode().IsRegular() {
		return false, fmt.Errorf("%w: not a regular file", ErrNotSupported)
	}
	return true, nil
}
