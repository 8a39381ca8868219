package sparketl

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Song is one row of the songs dimension.
type Song struct {
	SongID   string
	Title    string
	ArtistID string
	Year     int
	Duration float64
}

// Values returns the row in songs column order.
func (s Song) Values() []any {
	return []any{s.SongID, s.Title, s.ArtistID, s.Year, s.Duration}
}

// Artist is one row of the artists dimension.
type Artist struct {
	ArtistID  string
	Name      string
	Location  *string  // nullable
	Latitude  *float64 // nullable
	Longitude *float64 // nullable
}

// Values returns the row in artists column order.
func (a Artist) Values() []any {
	return []any{a.ArtistID, a.Name, a.Location, a.Latitude, a.Longitude}
}

// User is one row of the users dimension.
// Level reflects the last event loaded for the user.
type User struct {
	UserID    string
	FirstName string
	LastName  string
	Gender    string
	Level     string
}

// Values returns the row in users column order.
func (u User) Values() []any {
	return []any{u.UserID, u.FirstName, u.LastName, u.Gender, u.Level}
}

// TimeRecord is one row of the time dimension. Every field except
// StartTime is derived from StartTime (UTC).
type TimeRecord struct {
	StartTime time.Time
	Hour      int // 0-23
	Day       int // 1-31
	Week      int // ISO 8601 week, 1-53
	Month     int // 1-12
	Year      int
	Weekday   int // Monday=0 .. Sunday=6
}

// Values returns the row in time column order.
func (t TimeRecord) Values() []any {
	return []any{t.StartTime, t.Hour, t.Day, t.Week, t.Month, t.Year, t.Weekday}
}

// SongPlay is one row of the songplays fact table.
// SongID and ArtistID are nil when the catalog has no matching song.
type SongPlay struct {
	StartTime time.Time
	UserID    string
	Level     string
	SongID    *string
	ArtistID  *string
	SessionID int64
	Location  string
	UserAgent string
}

// Values returns the row in songplays column order (songplay_id is generated by the store).
func (p SongPlay) Values() []any {
	return []any{p.StartTime, p.UserID, p.Level, p.SongID, p.ArtistID, p.SessionID, p.Location, p.UserAgent}
}

// SongMatch is a catalog hit returned by a song lookup.
type SongMatch struct {
	SongID   string
	ArtistID string
}

// Pass names one of the two load passes.
type Pass string

const (
	PassSongs Pass = "songs"
	PassLogs  Pass = "logs"
)

// ParsePasses turns an --only value into the ordered list of passes to run.
// An empty value selects both passes, catalog first.
func ParsePasses(only string) ([]Pass, error) {
	switch strings.ToLower(strings.TrimSpace(only)) {
	case "", "all":
		return []Pass{PassSongs, PassLogs}, nil
	case string(PassSongs):
		return []Pass{PassSongs}, nil
	case string(PassLogs):
		return []Pass{PassLogs}, nil
	default:
		return nil, fmt.Errorf("unknown pass %q (want songs, logs or all): %w", only, ErrInvalidConfig)
	}
}

// LoadConfig contains all parameters needed for a load run.
type LoadConfig struct {
	// RunID identifies the run. A zero value is replaced with a fresh UUID.
	RunID uuid.UUID

	// SongDataPath is the root directory of catalog files.
	SongDataPath string

	// LogDataPath is the root directory of event log files.
	LogDataPath string

	// Passes selects which passes run. Catalog always runs before logs.
	Passes []Pass

	// DryRun parses and transforms every file against an in-memory store.
	DryRun bool

	// StrictLookup fails the run when a lookup matches more than one song.
	StrictLookup bool

	// LookupCacheTTL enables the lookup cache when positive.
	LookupCacheTTL time.Duration

	// LookupCacheSize bounds the lookup cache.
	LookupCacheSize int

	// Timeout is the global timeout for the entire run.
	Timeout time.Duration

	// Verbose enables detailed logging.
	Verbose bool
}

// Validate checks if the LoadConfig has all required fields and valid values.
// It returns a multi-error if multiple validation failures occur.
func (c *LoadConfig) Validate() error {
	var errs []error

	if len(c.Passes) == 0 {
		errs = append(errs, fmt.Errorf("at least one pass is required: %w", ErrInvalidConfig))
	}
	for _, p := range c.Passes {
		switch p {
		case PassSongs:
			if c.SongDataPath == "" {
				errs = append(errs, fmt.Errorf("SongDataPath is required: %w", ErrInvalidConfig))
			}
		case PassLogs:
			if c.LogDataPath == "" {
				errs = append(errs, fmt.Errorf("LogDataPath is required: %w", ErrInvalidConfig))
			}
		default:
			errs = append(errs, fmt.Errorf("unknown pass %q: %w", p, ErrInvalidConfig))
		}
	}

	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout cannot be negative: %w", ErrInvalidConfig))
	}
	if c.LookupCacheTTL < 0 {
		errs = append(errs, fmt.Errorf("lookup cache TTL cannot be negative: %w", ErrInvalidConfig))
	}
	if c.LookupCacheSize < 0 {
		errs = append(errs, fmt.Errorf("lookup cache size cannot be negative: %w", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// PassSummary counts what one pass loaded.
type PassSummary struct {
	Pass           Pass
	Root           string
	FilesFound     int
	FilesProcessed int
	Songs          int
	Artists        int
	Users          int
	TimeRows       int
	SongPlays      int
	SkippedEvents  int
	LookupHits     int
	LookupMisses   int
	Duration       time.Duration
}

// RunSummary collects the pass summaries of one run.
type RunSummary struct {
	RunID  uuid.UUID
	Passes []PassSummary
}

// ConnectionConfig represents parsed connection parameters.
type ConnectionConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string

	// AuthMethod indicates the authentication mechanism to use
	AuthMethod AuthMethod

	// Additional connection parameters
	AppName          string
	ConnectTimeout   time.Duration
	AdditionalParams map[string]string

	// AWSRegion is required for AuthMethodAWSIAM.
	AWSRegion string

	// GoogleInstance is the Cloud SQL instance (project:region:instance) for AuthMethodGoogleIAM.
	GoogleInstance string

	// Azure Entra ID authentication parameters (used when AuthMethod is AuthMethodAzureEntraID)
	// If all three are provided, Service Principal authentication is used.
	// Otherwise the DefaultAzureCredential chain is used.
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string
}

// AuthMethod represents the type of authentication to use.
type AuthMethod int

const (
	AuthMethodStandard     AuthMethod = iota // Username/Password
	AuthMethodAWSIAM                         // AWS IAM Database Authentication
	AuthMethodGoogleIAM                      // Google Cloud SQL IAM
	AuthMethodAzureEntraID                   // Azure Active Directory (Entra ID)
)

// String returns a human-readable string representation of the AuthMethod.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodStandard:
		return "Standard"
	case AuthMethodAWSIAM:
		return "AWS IAM"
	case AuthMethodGoogleIAM:
		return "Google IAM"
	case AuthMethodAzureEntraID:
		return "Azure Entra ID"
	default:
		return fmt.Sprintf("Unknown(%d)", a)
	}
}

// IsValid returns true if the AuthMethod is a valid, defined value.
func (a AuthMethod) IsValid() bool {
	return a >= AuthMethodStandard && a <= AuthMethodAzureEntraID
}

// ParseAuthMethod maps a config or flag value to an AuthMethod.
func ParseAuthMethod(s string) (AuthMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard", "password":
		return AuthMethodStandard, nil
	case "aws", "aws-iam", "awsiam":
		return AuthMethodAWSIAM, nil
	case "google", "google-iam", "gcp":
		return AuthMethodGoogleIAM, nil
	case "azure", "entra", "azure-entra-id":
		return AuthMethodAzureEntraID, nil
	default:
		return AuthMethodStandard, fmt.Errorf("%q: %w", s, ErrUnsupportedAuthMethod)
	}
}
