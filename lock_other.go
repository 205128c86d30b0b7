//go:build !unix

package filesession

// No advisory lock primitive is registered on this platform, so ProbeLocking
// reports LockingFallback and sessions use "<path>.lock" markers.
