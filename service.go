package filesession

import (
	"errors"
	"fmt"

	"github.com/gobeaver/beaver-kit/config"
)

// Builder creates Sessions from environment variables under a custom prefix
type Builder struct {
	prefix string
}

// WithPrefix creates a new Builder with the specified prefix
func WithPrefix(prefix string) *Builder {
	return &Builder{prefix: prefix}
}

// Config loads the configuration using the builder's prefix
func (b *Builder) Config() (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg, config.LoadOptions{Prefix: b.prefix}); err != nil {
		return nil, err
	}
	return cfg, nil
}

// New creates a new Session using the builder's prefix. opts are applied
// after the loaded configuration and take precedence.
func (b *Builder) New(opts ...Option) (*Session, error) {
	cfg, err := b.Config()
	if err != nil {
		return nil, err
	}
	return NewFromConfig(cfg, opts...)
}

// NewFromEnv creates a Session from BEAVER_FILESESSION_* variables.
func NewFromEnv(opts ...Option) (*Session, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, err
	}
	return NewFromConfig(cfg, opts...)
}

// NewFromConfig creates a Session from cfg, then applies opts.
func NewFromConfig(cfg *Config, opts ...Option) (*Session, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return New(append(cfg.Options(), opts...)...)
}

// validateConfig checks configuration validity
func validateConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	if cfg.TimeoutRetries < 0 {
		return fmt.Errorf("timeout retries must be >= 0, got %d", cfg.TimeoutRetries)
	}
	if cfg.RetryIntervalMS <= 0 {
		return fmt.Errorf("retry interval must be positive, got %dms", cfg.RetryIntervalMS)
	}
	if _, err := ParseLocking(cfg.Locking); err != nil {
		return err
	}
	if cfg.Umask != "" {
		if _, err := ParseUmask(cfg.Umask); err != nil {
			return err
		}
	}
	if cfg.Permissions != "" {
		if _, err := ParsePermissions(cfg.Permissions); err != nil {
			return err
		}
	}
	if _, err := compilePatterns(splitList(cfg.FallbackPaths)); err != nil {
		return err
	}
	return nil
}
