// Package main provides the filesession command-line interface.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gobeaver/filesession"
	"github.com/spf13/cobra"
)

// globalFlags are the persistent flags shared by every subcommand. Their
// defaults come from the BEAVER_FILESESSION_* environment.
type globalFlags struct {
	retries       int
	retryInterval int
	locking       string
	logLevel      string
	umask         string
	permissions   string
}

func newRootCmd(cfg *filesession.Config) *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "filesession",
		Short: "Locked, timeout-bounded file access",
		Long: `Read, write and lock files through advisory locks that cooperate with
every other filesession user of the same file.

Native flock is used where the platform supports it; otherwise a sibling
"<file>.lock" marker is used.`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.IntVar(&flags.retries, "retries", cfg.TimeoutRetries, "Lock attempts before giving up")
	pf.IntVar(&flags.retryInterval, "retry-interval", cfg.RetryIntervalMS, "Milliseconds between lock attempts")
	pf.StringVar(&flags.locking, "locking", cfg.Locking, "Lock back-end: auto, native or fallback")
	pf.StringVar(&flags.logLevel, "log-level", cfg.LogLevel, "Diagnostics level: debug, info, warn, error or off")
	pf.StringVar(&flags.umask, "umask", cfg.Umask, "Octal umask for newly created files")
	pf.StringVar(&flags.permissions, "permissions", cfg.Permissions, "Octal permissions for newly created files")

	newSession := func() (*filesession.Session, error) {
		c := *cfg
		c.TimeoutRetries = flags.retries
		c.RetryIntervalMS = flags.retryInterval
		c.Locking = flags.locking
		c.LogLevel = flags.logLevel
		c.Umask = flags.umask
		c.Permissions = flags.permissions
		return filesession.NewFromConfig(&c)
	}

	rootCmd.AddCommand(
		createCatCmd(newSession),
		createWriteCmd(newSession),
		createTruncateCmd(newSession),
		createLockCmd(newSession),
		createChecksumCmd(newSession),
		createProbeCmd(),
	)
	return rootCmd
}

func main() {
	cfg, err := filesession.GetConfig()
	if err != nil {
		log.Fatalf("Loading configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(cfg).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
