package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vvka-141/sparketl/pkg/sparketl"
)

func strPtr(s string) *string { return &s }

func TestMemoryStore_CommitKeyRules(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	ts := time.Unix(1, 0).UTC()

	for i := 0; i < 2; i++ {
		tx, err := s.Begin(ctx)
		require.NoError(t, err)

		require.NoError(t, tx.InsertSongs(ctx, sparketl.Song{SongID: "S1", Title: "T", ArtistID: "A1", Year: 2000, Duration: 180.5}))
		require.NoError(t, tx.InsertArtists(ctx, sparketl.Artist{ArtistID: "A1", Name: "N"}))
		require.NoError(t, tx.InsertTimes(ctx, sparketl.TimeRecord{StartTime: ts}))
		require.NoError(t, tx.UpsertUsers(ctx,
			sparketl.User{UserID: "U1", Level: "free"},
			sparketl.User{UserID: "U1", Level: "paid"},
		))
		require.NoError(t, tx.InsertSongPlays(ctx, sparketl.SongPlay{StartTime: ts, UserID: "U1", SessionID: 7}))
		require.NoError(t, tx.Commit(ctx))
	}

	assert.Len(t, s.Songs(), 1)
	assert.Len(t, s.Artists(), 1)
	assert.Len(t, s.Times(), 1)
	require.Len(t, s.Users(), 1)
	assert.Equal(t, "paid", s.Users()[0].Level)
	assert.Len(t, s.SongPlays(), 2, "songplays are appended on every commit")
	assert.Equal(t, 2, s.Commits())
}

func TestMemoryStore_RollbackDiscards(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.InsertSongs(ctx, sparketl.Song{SongID: "S1"}))
	require.NoError(t, tx.Rollback(ctx))
	require.NoError(t, tx.Rollback(ctx), "second rollback is a no-op")

	assert.Empty(t, s.Songs())
	assert.Equal(t, 1, s.Rollbacks())
	assert.Zero(t, s.Commits())

	assert.ErrorIs(t, tx.InsertSongs(ctx, sparketl.Song{SongID: "S2"}), errTxClosed)
	assert.ErrorIs(t, tx.Commit(ctx), errTxClosed)
}

func TestMemoryStore_RollbackAfterCommitIsNoop(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.UpsertUsers(ctx, sparketl.User{UserID: "U1"}))
	require.NoError(t, tx.Commit(ctx))
	require.NoError(t, tx.Rollback(ctx))

	assert.Len(t, s.Users(), 1)
	assert.Zero(t, s.Rollbacks())
}

func TestMemoryStore_FindSongs(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.InsertSongs(ctx,
		sparketl.Song{SongID: "S9", Title: "T", ArtistID: "A1", Duration: 180.5},
		sparketl.Song{SongID: "S3", Title: "T", ArtistID: "A2", Duration: 180.5},
		sparketl.Song{SongID: "S5", Title: "T", ArtistID: "A1", Duration: 180.5},
		sparketl.Song{SongID: "S7", Title: "T", ArtistID: "A1", Duration: 99},
	))
	require.NoError(t, tx.InsertArtists(ctx,
		sparketl.Artist{ArtistID: "A1", Name: "N", Location: strPtr("L")},
		sparketl.Artist{ArtistID: "A2", Name: "Other"},
	))

	pending, err := tx.FindSongs(ctx, "T", "N", 180.5, 2)
	require.NoError(t, err)
	assert.Equal(t, []sparketl.SongMatch{{SongID: "S5", ArtistID: "A1"}, {SongID: "S9", ArtistID: "A1"}}, pending,
		"a transaction sees its own pending rows, ordered by song id")

	other, err := s.Begin(ctx)
	require.NoError(t, err)
	isolated, err := other.FindSongs(ctx, "T", "N", 180.5, 2)
	require.NoError(t, err)
	assert.Empty(t, isolated, "uncommitted rows are invisible to other transactions")

	require.NoError(t, tx.Commit(ctx))

	one, err := other.FindSongs(ctx, "T", "N", 180.5, 1)
	require.NoError(t, err)
	assert.Equal(t, []sparketl.SongMatch{{SongID: "S5", ArtistID: "A1"}}, one)

	none, err := other.FindSongs(ctx, "T", "Nobody", 180.5, 2)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryStore_InsertHookRejects(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	reject := errors.New("duplicate key")
	s.SetInsertHook(func(table string, values []any) error {
		if table == "songplays" && values[1] == "BAD" {
			return reject
		}
		return nil
	})

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.InsertSongPlays(ctx, sparketl.SongPlay{UserID: "OK"}))
	err = tx.InsertSongPlays(ctx, sparketl.SongPlay{UserID: "BAD"})
	assert.ErrorIs(t, err, reject)
	require.NoError(t, tx.Rollback(ctx))

	assert.Empty(t, s.SongPlays())
}
