package filesession

import (
	"fmt"
	"sync"
)

// Locking selects the advisory lock back-end a session uses.
type Locking string

const (
	// LockingAuto uses native locking when the platform provides it.
	LockingAuto Locking = "auto"
	// LockingNative uses the OS advisory lock primitive (flock).
	LockingNative Locking = "native"
	// LockingFallback uses a sibling "<path>.lock" marker file.
	LockingFallback Locking = "fallback"
)

// backendFactory creates a lock back-end
type backendFactory func() backend

var (
	backendFactories = map[Locking]backendFactory{
		LockingFallback: func() backend { return markerLocker{} },
	}
	factoryMutex sync.RWMutex
)

// registerBackend registers a lock back-end factory. Platform files call it
// from init.
func registerBackend(kind Locking, factory backendFactory) {
	factoryMutex.Lock()
	defer factoryMutex.Unlock()
	backendFactories[kind] = factory
}

// createBackend creates the back-end for an already resolved capability
func createBackend(kind Locking) (backend, error) {
	factoryMutex.RLock()
	factory, exists := backendFactories[kind]
	factoryMutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s locking is not available on this platform", ErrNotSupported, kind)
	}
	return factory(), nil
}

var probeOnce = sync.OnceValue(func() Locking {
	factoryMutex.RLock()
	defer factoryMutex.RUnlock()
	if _, ok := backendFactories[LockingNative]; ok {
		return LockingNative
	}
	return LockingFallback
})

// ProbeLocking reports the locking capability of this process: native when
// the platform has an advisory lock primitive, fallback otherwise. The
// result is computed once.
func ProbeLocking() Locking {
	return probeOnce()
}

// ParseLocking validates a capability name. The empty string means auto.
func ParseLocking(s string) (Locking, error) {
	switch Locking(s) {
	case "", LockingAuto:
		return LockingAuto, nil
	case LockingNative, LockingFallback:
		return Locking(s), nil
	default:
		return "", fmt.Errorf("%w: unknown locking %q", ErrNotSupported, s)
	}
}

func (k Locking) resolve() Locking {
	if k == "" || k == LockingAuto {
		return ProbeLocking()
	}
	return k
}
