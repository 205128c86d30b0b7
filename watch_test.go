package filesession

import (
	"context"
	"os"
	"testing"
	"time"
)

func waitChanged(t *testing.T, token ChangeToken) {
	t.Helper()

	fired := make(chan struct{}, 1)
	token.RegisterChangeCallback(func() { fired <- struct{}{} })
	if token.HasChanged() {
		return
	}
	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("change not detected")
	}
}

func TestWatchFileChange(t *testing.T) {
	path := writeTestFile(t, "f", []byte("v1"))
	s := newTestSession(t)
	if err := s.Open(path, true, DefaultOpenMode); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	token, err := s.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	if token.HasChanged() {
		t.Fatal("token changed before any write")
	}

	if err := os.WriteFile(path, []byte("v2"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitChanged(t, token)
}

func TestWatchMarker(t *testing.T) {
	path := writeTestFile(t, "f", []byte("x"))
	s := newTestSession(t, WithLocking(LockingFallback))
	if err := s.Open(path, false, DefaultOpenMode); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	token, err := s.Watch(ctx)
	if err != nil {
		t.Fatal(err)
	}

	other := newTestSession(t, WithLocking(LockingFallback))
	if err := other.Open(path, false, DefaultOpenMode); err != nil {
		t.Fatal(err)
	}
	if err := other.Lock(LockExclusive); err != nil {
		t.Fatal(err)
	}
	waitChanged(t, token)
}

func TestWatchPolling(t *testing.T) {
	path := writeTestFile(t, "f", []byte("v1"))
	s := newTestSession(t, WithRetryInterval(5*time.Millisecond))
	if err := s.Open(path, true, DefaultOpenMode); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	token := s.pollChanges(ctx, path, markerPath(path))

	if err := os.WriteFile(path, []byte("version 2"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitChanged(t, token)
}

func TestWatchUnopened(t *testing.T) {
	s := newTestSession(t)
	if _, err := s.Watch(context.Background()); err == nil {
		t.Error("Watch() on unopened session succeeded")
	}
}
