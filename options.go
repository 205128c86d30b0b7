package filesession

import "time"

// Default construction values
const (
	DefaultTimeoutRetries = 5
	DefaultRetryInterval  = time.Second
)

// Option configures a Session
type Option func(*Options)

// Options contains the construction parameters of a Session
type Options struct {
	// Umask is an octal string applied while a new file is created.
	Umask string

	// Permissions is an octal string applied with chmod to newly created
	// files only.
	Permissions string

	// TimeoutRetries is the lock retry budget. The same value, in
	// RetryInterval units, is the default i/o timeout and the age after
	// which a fallback lock marker counts as abandoned.
	TimeoutRetries int

	// RetryInterval is the sleep between failed lock attempts.
	RetryInterval time.Duration

	// Logger receives diagnostics; nil disables them.
	Logger Logger

	// Locking selects the lock back-end.
	Locking Locking

	// FallbackPatterns are glob patterns of paths that always use
	// marker-file locking.
	FallbackPatterns []string
}

// WithUmask sets the umask applied before a new file is created
func WithUmask(umask string) Option {
	return func(o *Options) {
		o.Umask = umask
	}
}

// WithPermissions sets the permissions applied to newly created files
func WithPermissions(perm string) Option {
	return func(o *Options) {
		o.Permissions = perm
	}
}

// WithTimeoutRetries sets the retry budget
func WithTimeoutRetries(n int) Option {
	return func(o *Options) {
		o.TimeoutRetries = n
	}
}

// WithRetryInterval sets the time unit the retry budget is counted in
func WithRetryInterval(d time.Duration) Option {
	return func(o *Options) {
		o.RetryInterval = d
	}
}

// WithLogger sets the diagnostic sink
func WithLogger(l Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithLocking selects the lock back-end
func WithLocking(kind Locking) Option {
	return func(o *Options) {
		o.Locking = kind
	}
}

// WithFallbackPatterns adds glob patterns of paths that use marker-file
// locking regardless of the selected back-end
func WithFallbackPatterns(patterns ...string) Option {
	return func(o *Options) {
		o.FallbackPatterns = append(o.FallbackPatterns, patterns...)
	}
}

func processOptions(opts ...Option) *Options {
	o := &Options{
		TimeoutRetries: DefaultTimeoutRetries,
		RetryInterval:  DefaultRetryInterval,
		Locking:        LockingAuto,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
