package filesession

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLockTransitions(t *testing.T) {
	for _, kind := range lockingKinds() {
		t.Run(string(kind), func(t *testing.T) {
			s := newTestSession(t, WithLocking(kind))
			path := filepath.Join(t.TempDir(), "f")
			if err := s.Open(path, false, DefaultOpenMode); err != nil {
				t.Fatal(err)
			}

			for _, mode := range []LockMode{LockExclusive, LockShared, LockExclusive, LockExclusive, LockShared} {
				if err := s.Lock(mode); err != nil {
					t.Fatalf("Lock(%s) error = %v", mode, err)
				}
				if s.LockMode() != mode {
					t.Fatalf("LockMode() = %s, want %s", s.LockMode(), mode)
				}
			}

			if err := s.Lock(LockNone); !errors.Is(err, ErrNotSupported) {
				t.Errorf("Lock(none) error = %v, want ErrNotSupported", err)
			}
		})
	}
}

func TestLockReadonlyExclusiveDenied(t *testing.T) {
	path := writeTestFile(t, "f", []byte("x"))
	log := &recordingLogger{}
	s := newTestSession(t, WithRetryInterval(time.Second), WithLogger(log))
	if err := s.Open(path, true, DefaultOpenMode); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	err := s.Lock(LockExclusive)
	if !errors.Is(err, ErrLockDenied) || !IsLockDenied(err) {
		t.Fatalf("Lock(exclusive) error = %v, want ErrLockDenied", err)
	}
	if elapsed := time.Since(start); elapsed >= time.Second {
		t.Errorf("denial took %s, expected no retry sleep", elapsed)
	}
	if s.LockMode() != LockShared {
		t.Errorf("LockMode() = %s, want shared", s.LockMode())
	}
	if len(log.errors) == 0 {
		t.Error("expected an error to be logged")
	}

	// Writing needs the exclusive lock as well.
	if _, err := s.Write([]byte("y"), DefaultTimeout); !errors.Is(err, ErrLockDenied) {
		t.Errorf("Write() error = %v, want ErrLockDenied", err)
	}
}

func TestLockContention(t *testing.T) {
	for _, kind := range lockingKinds() {
		t.Run(string(kind), func(t *testing.T) {
			path := writeTestFile(t, "f", []byte("x"))

			// Marker age must stay below the stale threshold across the retries.
			interval := WithRetryInterval(50 * time.Millisecond)
			holder := newTestSession(t, WithLocking(kind), interval)
			if err := holder.Open(path, false, DefaultOpenMode); err != nil {
				t.Fatal(err)
			}
			contender := newTestSession(t, WithLocking(kind), interval)
			if err := contender.Open(path, false, DefaultOpenMode); err != nil {
				t.Fatal(err)
			}

			if err := holder.Lock(LockExclusive); kind == LockingNative {
				// flock: the contender's shared lock blocks the upgrade.
				if !errors.Is(err, ErrLockTimeout) {
					t.Fatalf("Lock(exclusive) error = %v, want ErrLockTimeout", err)
				}
				if err := contender.Close(false); err != nil {
					t.Fatal(err)
				}
				if err := holder.Lock(LockExclusive); err != nil {
					t.Fatalf("Lock(exclusive) after release error = %v", err)
				}
				if err := contender.Open(path, false, DefaultOpenMode); !errors.Is(err, ErrLockTimeout) {
					t.Fatalf("Open() while exclusively locked error = %v, want ErrLockTimeout", err)
				}
				return
			} else if err != nil {
				t.Fatalf("Lock(exclusive) error = %v", err)
			}

			// Marker locking: shared holders leave no trace, so only the
			// contender's requests are refused.
			if err := contender.Lock(LockExclusive); !errors.Is(err, ErrLockTimeout) {
				t.Fatalf("contender Lock(exclusive) error = %v, want ErrLockTimeout", err)
			}
			if contender.LockMode() != LockShared {
				t.Errorf("contender LockMode() = %s, want shared", contender.LockMode())
			}

			if err := holder.Lock(LockShared); err != nil {
				t.Fatal(err)
			}
			if fileExists(markerPath(path)) {
				t.Error("marker left behind after downgrade")
			}
			if err := contender.Lock(LockExclusive); err != nil {
				t.Fatalf("contender Lock(exclusive) after downgrade error = %v", err)
			}
		})
	}
}

func TestLockBudgetExhaustion(t *testing.T) {
	path := writeTestFile(t, "f", []byte("x"))
	interval := 50 * time.Millisecond

	s := newTestSession(t, WithLocking(LockingFallback), WithRetryInterval(interval))
	if err := s.Open(path, false, DefaultOpenMode); err != nil {
		t.Fatal(err)
	}
	freshMarker(t, markerPath(path))

	start := time.Now()
	err := s.Lock(LockExclusive)
	elapsed := time.Since(start)

	if !errors.Is(err, ErrLockTimeout) || !IsTimeout(err) {
		t.Fatalf("Lock(exclusive) error = %v, want ErrLockTimeout", err)
	}
	if elapsed < 2*interval {
		t.Errorf("gave up after %s, want at least %s", elapsed, 2*interval)
	}
	if s.LockMode() != LockShared {
		t.Errorf("LockMode() = %s, want shared", s.LockMode())
	}
}

func TestWriteUnderForeignMarker(t *testing.T) {
	path := writeTestFile(t, "f", []byte("x"))
	interval := 50 * time.Millisecond

	s := newTestSession(t, WithLocking(LockingFallback), WithRetryInterval(interval))
	if err := s.Open(path, false, OpenMode{Binary: true}); err != nil {
		t.Fatal(err)
	}
	freshMarker(t, markerPath(path))

	start := time.Now()
	n, err := s.Write([]byte("y"), 2*interval)
	elapsed := time.Since(start)

	if !IsTimeout(err) {
		t.Fatalf("Write() error = %v, want a timeout", err)
	}
	if n != 0 {
		t.Errorf("Write() = %d bytes, want 0", n)
	}
	if elapsed < 2*interval {
		t.Errorf("gave up after %s, want at least %s", elapsed, 2*interval)
	}
	if s.LockMode() != LockShared {
		t.Errorf("LockMode() = %s, want shared", s.LockMode())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "x" {
		t.Errorf("content = %q, want unchanged", data)
	}
}

func TestLockZeroBudgetSingleAttempt(t *testing.T) {
	path := writeTestFile(t, "f", []byte("x"))

	s := newTestSession(t, WithLocking(LockingFallback), WithTimeoutRetries(0), WithRetryInterval(time.Second))
	if err := s.Open(path, false, DefaultOpenMode); err != nil {
		t.Fatal(err)
	}

	// With a zero budget every marker counts as stale, so the attempt succeeds
	// without sleeping.
	if err := os.WriteFile(markerPath(path), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	past := time.Now().Add(-time.Millisecond)
	if err := os.Chtimes(markerPath(path), past, past); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	if err := s.Lock(LockExclusive); err != nil {
		t.Fatalf("Lock(exclusive) error = %v", err)
	}
	if elapsed := time.Since(start); elapsed >= time.Second {
		t.Errorf("Lock took %s, expected no sleep", elapsed)
	}
}

func TestLockStaleMarker(t *testing.T) {
	path := writeTestFile(t, "f", []byte("x"))
	marker := markerPath(path)

	if err := os.WriteFile(marker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(marker, old, old); err != nil {
		t.Fatal(err)
	}

	s := newTestSession(t, WithLocking(LockingFallback))
	if err := s.Open(path, false, DefaultOpenMode); err != nil {
		t.Fatalf("Open() with stale marker error = %v", err)
	}
	if fileExists(marker) {
		t.Error("stale marker not removed")
	}

	if err := s.Lock(LockExclusive); err != nil {
		t.Fatalf("Lock(exclusive) error = %v", err)
	}
	info, err := os.Stat(marker)
	if err != nil {
		t.Fatalf("marker missing after exclusive lock: %v", err)
	}
	if time.Since(info.ModTime()) > time.Minute {
		t.Error("marker was not recreated")
	}

	if err := s.Close(false); err != nil {
		t.Fatal(err)
	}
	if fileExists(marker) {
		t.Error("marker not removed by Close")
	}
}

func TestLockContextCancel(t *testing.T) {
	path := writeTestFile(t, "f", []byte("x"))

	s := newTestSession(t, WithLocking(LockingFallback), WithTimeoutRetries(5), WithRetryInterval(time.Hour))
	if err := s.Open(path, false, DefaultOpenMode); err != nil {
		t.Fatal(err)
	}
	freshMarker(t, markerPath(path))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := s.LockContext(ctx, LockExclusive)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("LockContext() error = %v, want context.DeadlineExceeded", err)
	}
	if s.LockMode() != LockShared {
		t.Errorf("LockMode() = %s, want shared", s.LockMode())
	}
}

func TestLockRefreshesSize(t *testing.T) {
	path := writeTestFile(t, "f", []byte("abc"))
	s := newTestSession(t)
	if err := s.Open(path, false, DefaultOpenMode); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("abcdef"), 0o644); err != nil {
		t.Fatal(err)
	}
	if s.Size() != 3 {
		t.Fatalf("Size() = %d before relock, want 3", s.Size())
	}
	if err := s.Lock(LockExclusive); err != nil {
		t.Fatal(err)
	}
	if s.Size() != 6 {
		t.Errorf("Size() = %d after relock, want 6", s.Size())
	}
}

func TestFallbackPatterns(t *testing.T) {
	if ProbeLocking() != LockingNative {
		t.Skip("native locking not available")
	}
	dir := t.TempDir()

	s := newTestSession(t, WithFallbackPatterns(filepath.ToSlash(dir)+"/*.nfs"))

	if err := s.Open(filepath.Join(dir, "data.nfs"), false, DefaultOpenMode); err != nil {
		t.Fatal(err)
	}
	if s.Locking() != LockingFallback {
		t.Errorf("Locking() = %s, want fallback", s.Locking())
	}
	if err := s.Close(true); err != nil {
		t.Fatal(err)
	}

	if err := s.Open(filepath.Join(dir, "data.local"), false, DefaultOpenMode); err != nil {
		t.Fatal(err)
	}
	if s.Locking() != LockingNative {
		t.Errorf("Locking() = %s, want native", s.Locking())
	}
}

func TestParseLocking(t *testing.T) {
	tests := []struct {
		in      string
		want    Locking
		wantErr bool
	}{
		{in: "", want: LockingAuto},
		{in: "auto", want: LockingAuto},
		{in: "native", want: LockingNative},
		{in: "fallback", want: LockingFallback},
		{in: "NFS", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseLocking(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLocking(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLocking(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if LockingAuto.resolve() != ProbeLocking() {
		t.Error("auto does not resolve to the probed capability")
	}
}
