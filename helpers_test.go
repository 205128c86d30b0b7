package filesession

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testInterval = 10 * time.Millisecond

// lockingKinds returns the back-ends this platform can exercise.
func lockingKinds() []Locking {
	if ProbeLocking() == LockingNative {
		return []Locking{LockingNative, LockingFallback}
	}
	return []Locking{LockingFallback}
}

func newTestSession(t *testing.T, opts ...Option) *Session {
	t.Helper()

	base := []Option{
		WithTimeoutRetries(2),
		WithRetryInterval(testInterval),
	}
	s, err := New(append(base, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		if s.IsOpen() {
			_ = s.Close(false)
		}
	})
	return s
}

func writeTestFile(t *testing.T, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// recordingLogger keeps every message for assertions.
type recordingLogger struct {
	debug, warning, errors []string
}

func (l *recordingLogger) Debug(msg string)   { l.debug = append(l.debug, msg) }
func (l *recordingLogger) Warning(msg string) { l.warning = append(l.warning, msg) }
func (l *recordingLogger) Error(msg string)   { l.errors = append(l.errors, msg) }

// freshMarker creates a lock marker that will not turn stale during the test.
func freshMarker(t *testing.T, marker string) {
	t.Helper()

	if err := os.WriteFile(marker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(marker, future, future); err != nil {
		t.Fatal(err)
	}
}
