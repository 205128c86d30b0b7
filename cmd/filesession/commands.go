package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/gobeaver/filesession"
	"github.com/spf13/cobra"
)

type sessionFactory func() (*filesession.Session, error)

func createCatCmd(newSession sessionFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "cat <path>",
		Short: "Print a file under a shared lock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession()
			if err != nil {
				return err
			}
			if err := s.Open(args[0], true, filesession.DefaultOpenMode); err != nil {
				return err
			}
			defer s.Close(false)

			view := filesession.ReadOnly(s)
			if err := view.Seek(0); err != nil {
				return err
			}
			data, err := view.Read(0, filesession.DefaultTimeout)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func createWriteCmd(newSession sessionFactory) *cobra.Command {
	var truncate bool

	writeCmd := &cobra.Command{
		Use:   "write <path>",
		Short: "Append standard input to a file under an exclusive lock",
		Long: `Append standard input to a file under an exclusive lock, creating it if needed.

Examples:
  echo hello | filesession write notes.txt
  filesession write --truncate state.json < new.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("reading input: %w", err)
			}

			s, err := newSession()
			if err != nil {
				return err
			}
			mode := filesession.DefaultOpenMode
			if truncate {
				mode = filesession.OpenMode{Truncate: true, Create: true, Binary: true}
			}
			if err := s.Open(args[0], false, mode); err != nil {
				return err
			}

			n, werr := s.Write(data, filesession.DefaultTimeout)
			if werr == nil {
				werr = s.Flush()
			}
			// An empty file written by this command is intentional, keep it.
			if err := s.Close(false); err != nil && werr == nil {
				werr = err
			}
			if werr != nil {
				return werr
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d bytes to %s\n", n, args[0])
			return nil
		},
	}

	writeCmd.Flags().BoolVar(&truncate, "truncate", false, "Replace the file content instead of appending")
	return writeCmd
}

func createTruncateCmd(newSession sessionFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "truncate <path> <size>",
		Short: "Resize an existing file under an exclusive lock",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			size, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || size < 0 {
				return fmt.Errorf("invalid size %q", args[1])
			}

			s, err := newSession()
			if err != nil {
				return err
			}
			if err := s.Open(args[0], false, filesession.OpenMode{Binary: true}); err != nil {
				return err
			}
			defer s.Close(false)

			return s.Truncate(size)
		},
	}
}

func createLockCmd(newSession sessionFactory) *cobra.Command {
	var (
		exclusive bool
		hold      time.Duration
	)

	lockCmd := &cobra.Command{
		Use:   "lock <path>",
		Short: "Hold a lock on a file",
		Long: `Take a lock on an existing file and hold it until the duration elapses or
the command is interrupted. Useful for testing contention between processes.

Examples:
  filesession lock data.db --exclusive --hold 30s`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession()
			if err != nil {
				return err
			}
			if err := s.Open(args[0], !exclusive, filesession.OpenMode{Binary: true}); err != nil {
				return err
			}
			defer s.Close(false)

			mode := filesession.LockShared
			if exclusive {
				mode = filesession.LockExclusive
			}
			if err := s.LockContext(cmd.Context(), mode); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "holding %s lock on %s (%s)\n", mode, s.Path(), s.Locking())

			timer := time.NewTimer(hold)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-cmd.Context().Done():
			}
			return nil
		},
	}

	lockCmd.Flags().BoolVar(&exclusive, "exclusive", false, "Take an exclusive instead of a shared lock")
	lockCmd.Flags().DurationVar(&hold, "hold", 10*time.Second, "How long to hold the lock")
	return lockCmd
}

func createChecksumCmd(newSession sessionFactory) *cobra.Command {
	var algorithms []string

	checksumCmd := &cobra.Command{
		Use:   "checksum <path>",
		Short: "Print checksums of a file under a shared lock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			algs := make([]filesession.ChecksumAlgorithm, 0, len(algorithms))
			for _, a := range algorithms {
				algs = append(algs, filesession.ChecksumAlgorithm(a))
			}

			s, err := newSession()
			if err != nil {
				return err
			}
			if err := s.Open(args[0], true, filesession.DefaultOpenMode); err != nil {
				return err
			}
			defer s.Close(false)

			sums, err := filesession.ReadOnly(s).Checksums(algs)
			if err != nil {
				return err
			}

			names := make([]string, 0, len(sums))
			for alg := range sums {
				names = append(names, string(alg))
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n", name, sums[filesession.ChecksumAlgorithm(name)], args[0])
			}
			return nil
		},
	}

	checksumCmd.Flags().StringSliceVarP(&algorithms, "algorithm", "a", []string{"sha256"},
		"Checksum algorithms: md5, sha1, sha256, sha512, crc32, xxhash")
	return checksumCmd
}

func createProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Report the locking capability of this platform",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), filesession.ProbeLocking())
		},
	}
}
