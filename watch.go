package filesession

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch returns a ChangeToken that fires the first time the held file or its
// lock marker is written, created, removed or renamed by anyone. Watching
// stops when ctx is cancelled or the token fires.
//
// When no native watcher can be set up, the token polls the file and the
// marker once per retry interval instead.
func (s *Session) Watch(ctx context.Context) (ChangeToken, error) {
	s.debugf("watch()")
	if s.file == nil {
		return nil, &PathError{Op: "watch", Err: ErrNoResource}
	}

	abs, err := filepath.Abs(s.path)
	if err != nil {
		return nil, &PathError{Op: "watch", Path: s.path, Err: err}
	}
	marker := markerPath(abs)

	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		err = watcher.Add(filepath.Dir(abs))
		if err != nil {
			watcher.Close()
		}
	}
	if err != nil {
		s.warnf("watch %s: native watcher unavailable, polling: %v", s.path, err)
		return s.pollChanges(ctx, abs, marker), nil
	}

	token := NewCallbackChangeToken()
	go func() {
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != abs && event.Name != marker {
					continue
				}
				if event.Op == fsnotify.Chmod {
					continue
				}
				token.SignalChange()
				return
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return token, nil
}

// statSnapshot is what the polling watcher compares between ticks.
type statSnapshot struct {
	exists  bool
	size    int64
	modTime time.Time
}

func snapshot(path string) statSnapshot {
	info, err := os.Stat(path)
	if err != nil {
		return statSnapshot{}
	}
	return statSnapshot{exists: true, size: info.Size(), modTime: info.ModTime()}
}

func (s *Session) pollChanges(ctx context.Context, path, marker string) ChangeToken {
	file, lock := snapshot(path), snapshot(marker)
	return NewPollingChangeToken(ctx, PollingConfig{
		Interval: s.interval,
		CheckFunc: func() bool {
			return snapshot(path) != file || snapshot(marker) != lock
		},
	})
}
