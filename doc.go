// Package filesession manages one open file at a time together with an
// advisory lock on it, bounded retries, and timeout-limited chunked I/O.
//
// A [Session] is created once with its retry policy and can then open,
// use and close any number of files in sequence. Opening takes a shared lock;
// writing and truncating upgrade it to exclusive; explicit [Session.Lock]
// calls move between the two.
//
// # Basic Usage
//
//	s, err := filesession.New(
//	    filesession.WithTimeoutRetries(5),
//	    filesession.WithRetryInterval(time.Second),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := s.Open("state.json", false, filesession.TextOpenMode); err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close(true)
//
//	// Write takes the exclusive lock itself
//	n, err := s.WriteString(`{"ok":true}`, filesession.DefaultTimeout)
//
//	// Read everything from the start
//	s.Seek(0)
//	data, err := s.Read(0, filesession.DefaultTimeout)
//
// # Locking
//
// Locks are advisory: they only arbitrate between sessions (in this process
// or another) that use the same protocol. Two back-ends exist:
//
//   - native: flock(2) on the open handle, available on unix platforms
//   - fallback: a sibling "<path>.lock" marker file whose existence means an
//     exclusive holder; markers older than the retry budget are treated as
//     abandoned and removed
//
// [ProbeLocking] reports which one this process can use, and [WithLocking]
// or [WithFallbackPatterns] force the fallback for all or some paths (for
// example network mounts where flock is unreliable).
//
// Every lock change is attempted up to TimeoutRetries times with one
// RetryInterval of sleep after each failure. On exhaustion [ErrLockTimeout]
// is returned and the held mode is unchanged. Use [Session.LockContext] to
// cut the waiting short.
//
// # Timeouts
//
// Read and Write move data in chunks of [ChunkSize] bytes and check their
// deadline before each chunk. [DefaultTimeout] means "the retry budget", i.e.
// TimeoutRetries * RetryInterval. On expiry the bytes moved so far are
// returned together with [ErrIOTimeout].
//
// # Configuration
//
// Sessions can be built from environment variables with [NewFromEnv] or
// [WithPrefix]:
//
//	BEAVER_FILESESSION_TIMEOUT_RETRIES=5
//	BEAVER_FILESESSION_RETRY_INTERVAL_MS=1000
//	BEAVER_FILESESSION_LOCKING=auto
//	BEAVER_FILESESSION_FALLBACK_PATHS=/mnt/nfs/**
//	BEAVER_FILESESSION_UMASK=022
//	BEAVER_FILESESSION_PERMISSIONS=0640
//	BEAVER_FILESESSION_LOG_LEVEL=warn
//
// # Change Notification
//
// [Session.Watch] returns a [ChangeToken] that fires when the held file or
// its lock marker changes on disk:
//
//	token, err := s.Watch(ctx)
//	token.RegisterChangeCallback(func() {
//	    log.Println("state.json changed")
//	})
//
// # Concurrency
//
// A Session is not safe for concurrent use by multiple goroutines. Give each
// goroutine its own Session; the lock then arbitrates between them.
package filesession
