package filesession

import "time"

// ReadOnlySession exposes only the read side of a Session, so code handed a
// ReadOnlySession cannot take an exclusive lock or modify the file by
// accident. It does not own the Session; closing stays with the caller.
//
// Example:
//
//	s, _ := filesession.New()
//	_ = s.Open("config.json", true, filesession.TextOpenMode)
//	defer s.Close(false)
//
//	view := filesession.ReadOnly(s)
//	data, err := view.Read(0, filesession.DefaultTimeout)
type ReadOnlySession struct {
	s *Session
}

// ReadOnly wraps s in a read-only view.
func ReadOnly(s *Session) *ReadOnlySession {
	return &ReadOnlySession{s: s}
}

func (r *ReadOnlySession) Read(n int, timeout time.Duration) ([]byte, error) {
	return r.s.Read(n, timeout)
}

func (r *ReadOnlySession) ReadString(n int, timeout time.Duration) (string, error) {
	return r.s.ReadString(n, timeout)
}

func (r *ReadOnlySession) Seek(offset int64) error {
	return r.s.Seek(offset)
}

func (r *ReadOnlySession) Tell() (int64, error) {
	return r.s.Tell()
}

func (r *ReadOnlySession) AtEOF() bool {
	return r.s.AtEOF()
}

// Checksums computes checksums of the whole file.
func (r *ReadOnlySession) Checksums(algorithms []ChecksumAlgorithm) (map[ChecksumAlgorithm]string, error) {
	return r.s.Checksums(algorithms)
}

// Info returns a snapshot of the file.
func (r *ReadOnlySession) Info() (*Info, error) {
	return r.s.Info()
}

var _ Reader = (*ReadOnlySession)(nil)
