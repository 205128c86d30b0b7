package filesession

import (
	"errors"
	"testing"
)

func TestPathError(t *testing.T) {
	err := &PathError{Op: "lock", Path: "/tmp/f", Err: ErrLockTimeout}
	if got := err.Error(); got != "lock /tmp/f: lock retry budget exhausted" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, ErrLockTimeout) || !IsTimeout(err) {
		t.Error("PathError does not unwrap to its cause")
	}

	noPath := &PathError{Op: "close", Err: ErrNoResource}
	if got := noPath.Error(); got != "close: session holds no file" {
		t.Errorf("Error() = %q", got)
	}
	if IsNotExist(noPath) || IsLockDenied(noPath) {
		t.Error("unexpected classification")
	}
}
