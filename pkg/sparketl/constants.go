package sparketl

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess         = 0  // Load completed successfully
	ExitGeneralError    = 1  // Unknown or unclassified error
	ExitUsageError      = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic           = 3  // Internal panic (unexpected crash)
	ExitConfigError     = 10 // Invalid configuration
	ExitConnectionError = 11 // Failed to connect to database
	ExitFilesystemError = 12 // Unreadable data directory or file
	ExitParseError      = 13 // Malformed JSON line or missing field
	ExitLoadError       = 14 // Datastore rejected a row
)

const (
	// AppName is reported to PostgreSQL as application_name.
	AppName = "sparketl"

	// DataFileExtension is the only extension picked up by the file walker.
	DataFileExtension = ".json"

	// NextSongPage is the page value marking an actual song playback.
	NextSongPage = "NextSong"

	// DefaultDatabase is used when no database is configured anywhere.
	DefaultDatabase = "sparkifydb"

	// DefaultSongDataPath is the catalog root when none is configured.
	DefaultSongDataPath = "data/song_data"

	// DefaultLogDataPath is the event log root when none is configured.
	DefaultLogDataPath = "data/log_data"

	// DefaultTimeout bounds a whole run.
	DefaultTimeout = 30 * time.Minute

	// DefaultLookupCacheSize caps the number of cached song lookups.
	DefaultLookupCacheSize = 10000

	// DefaultRetryInitialDelay is the default initial delay before the first retry attempt.
	DefaultRetryInitialDelay = 100 * time.Millisecond

	// DefaultRetryMaxDelay is the default maximum delay between retry attempts.
	DefaultRetryMaxDelay = 1 * time.Minute

	// DefaultRetryMaxAttempts is the default maximum number of connect retry attempts.
	// Only connection establishment is retried; inserts never are.
	DefaultRetryMaxAttempts = 3
)
