package sparketl

import "context"

// Store hands out one unit of work per source file.
type Store interface {
	Begin(ctx context.Context) (FileTx, error)
}

// SongQuerier finds catalog songs by title, artist name and duration.
type SongQuerier interface {
	// FindSongs returns up to limit matches ordered by song_id.
	FindSongs(ctx context.Context, title, artistName string, duration float64, limit int) ([]SongMatch, error)
}

// FileTx receives every row derived from one source file and commits them together.
// Rows are written in the fixed column order of each table.
type FileTx interface {
	SongQuerier

	InsertSongs(ctx context.Context, songs ...Song) error
	InsertArtists(ctx context.Context, artists ...Artist) error

	// UpsertUsers inserts or replaces users keyed by user_id, so the last
	// row written for a user wins regardless of store constraints.
	UpsertUsers(ctx context.Context, users ...User) error

	InsertTimes(ctx context.Context, times ...TimeRecord) error
	InsertSongPlays(ctx context.Context, plays ...SongPlay) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// LookupResolver maps an event's (title, artist, duration) to catalog keys.
// A nil match with a nil error means the catalog has no such song.
type LookupResolver interface {
	Resolve(ctx context.Context, q SongQuerier, title, artistName string, duration float64) (*SongMatch, error)
}
