package filesession

import (
	"os"
	"strings"
	"time"

	"github.com/gobeaver/beaver-kit/config"
)

type Config struct {
	// Octal umask applied while a new file is created; empty keeps the process umask
	Umask string `env:"FILESESSION_UMASK"`

	// Octal permissions applied to newly created files; empty keeps the open defaults
	Permissions string `env:"FILESESSION_PERMISSIONS"`

	// Lock retry budget and its unit
	TimeoutRetries  int `env:"FILESESSION_TIMEOUT_RETRIES,default:5"`
	RetryIntervalMS int `env:"FILESESSION_RETRY_INTERVAL_MS,default:1000"`

	// Lock back-end (auto, native, fallback)
	Locking string `env:"FILESESSION_LOCKING,default:auto"`

	// Glob patterns of paths that always use marker-file locking
	FallbackPaths string `env:"FILESESSION_FALLBACK_PATHS"` // comma-separated

	// Diagnostic level (debug, info, warn, error); "off" disables logging
	LogLevel string `env:"FILESESSION_LOG_LEVEL,default:warn"`
}

// GetConfig returns config loaded from environment
func GetConfig() (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Options converts the configuration into Session options. Diagnostics go to
// stderr.
func (c *Config) Options() []Option {
	opts := []Option{
		WithTimeoutRetries(c.TimeoutRetries),
		WithRetryInterval(time.Duration(c.RetryIntervalMS) * time.Millisecond),
		WithLocking(Locking(strings.ToLower(strings.TrimSpace(c.Locking)))),
	}
	if c.Umask != "" {
		opts = append(opts, WithUmask(c.Umask))
	}
	if c.Permissions != "" {
		opts = append(opts, WithPermissions(c.Permissions))
	}
	if patterns := splitList(c.FallbackPaths); len(patterns) > 0 {
		opts = append(opts, WithFallbackPatterns(patterns...))
	}

	if level := strings.TrimSpace(c.LogLevel); strings.EqualFold(level, "off") {
		opts = append(opts, WithLogger(nil))
	} else {
		opts = append(opts, WithLogger(NewLogger(os.Stderr, level)))
	}
	return opts
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
