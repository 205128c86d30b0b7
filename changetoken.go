package filesession

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// CallbackChangeToken is a ChangeToken signalled by native file system events.
type CallbackChangeToken struct {
	mu        sync.RWMutex
	changed   atomic.Bool
	callbacks []func()
}

// NewCallbackChangeToken creates a new ChangeToken that supports active callbacks.
func NewCallbackChangeToken() *CallbackChangeToken {
	return &CallbackChangeToken{}
}

func (t *CallbackChangeToken) HasChanged() bool {
	return t.changed.Load()
}

func (t *CallbackChangeToken) ActiveChangeCallbacks() bool {
	return true
}

func (t *CallbackChangeToken) RegisterChangeCallback(callback func()) (unregister func()) {
	return registerCallback(&t.mu, &t.callbacks, callback)
}

// SignalChange marks the token as changed and invokes all callbacks once.
func (t *CallbackChangeToken) SignalChange() {
	if t.changed.Swap(true) {
		return
	}
	runCallbacks(&t.mu, &t.callbacks)
}

// pollingChangeToken is a ChangeToken for when no watcher can be created.
// It calls checkFunc every interval until it reports a change or the
// context is cancelled.
type pollingChangeToken struct {
	mu        sync.RWMutex
	changed   atomic.Bool
	callbacks []func()
	cancel    context.CancelFunc
	checkFunc func() bool
	interval  time.Duration
	stopped   atomic.Bool
}

// PollingConfig configures a polling change token.
type PollingConfig struct {
	// Interval between polls (default: 1 second)
	Interval time.Duration
	// CheckFunc returns true if a change is detected
	CheckFunc func() bool
}

// NewPollingChangeToken creates a ChangeToken that polls for changes.
//
// The polling goroutine runs until the check reports a change; cancel ctx or
// call Stop to end it earlier.
func NewPollingChangeToken(ctx context.Context, config PollingConfig) *pollingChangeToken {
	if config.Interval <= 0 {
		config.Interval = time.Second
	}

	ctx, cancel := context.WithCancel(ctx)
	t := &pollingChangeToken{
		checkFunc: config.CheckFunc,
		interval:  config.Interval,
		cancel:    cancel,
	}

	go t.poll(ctx)
	return t
}

func (t *pollingChangeToken) poll(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	defer t.stopped.Store(true)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if t.checkFunc != nil && t.checkFunc() {
				if !t.changed.Swap(true) {
					runCallbacks(&t.mu, &t.callbacks)
				}
				return
			}
		}
	}
}

func (t *pollingChangeToken) HasChanged() bool {
	return t.changed.Load()
}

func (t *pollingChangeToken) ActiveChangeCallbacks() bool {
	return true
}

func (t *pollingChangeToken) RegisterChangeCallback(callback func()) (unregister func()) {
	return registerCallback(&t.mu, &t.callbacks, callback)
}

// Stop ends polling.
func (t *pollingChangeToken) Stop() {
	t.cancel()
}

func registerCallback(mu *sync.RWMutex, callbacks *[]func(), callback func()) func() {
	mu.Lock()
	*callbacks = append(*callbacks, callback)
	index := len(*callbacks) - 1
	mu.Unlock()

	return func() {
		mu.Lock()
		defer mu.Unlock()
		if index < len(*callbacks) {
			// Set to nil instead of removing to avoid index shifting
			(*callbacks)[index] = nil
		}
	}
}

func runCallbacks(mu *sync.RWMutex, callbacks *[]func()) {
	mu.RLock()
	snapshot := make([]func(), len(*callbacks))
	copy(snapshot, *callbacks)
	mu.RUnlock()

	for _, cb := range snapshot {
		if cb != nil {
			cb()
		}
	}
}
