//go:build !unix

package filesession

// withUmask runs fn directly; there is no process umask on this platform.
func withUmask(_ int, fn func() error) error {
	return fn()
}
