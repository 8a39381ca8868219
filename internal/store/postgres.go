package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/vvka-141/sparketl/pkg/sparketl"
)

// TxBeginner starts a transaction. *pgx.Conn, *pgxpool.Conn and
// *pgxpool.Pool all satisfy it.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore writes rows to the star schema.
type PostgresStore struct {
	db TxBeginner
}

// NewPostgresStore creates a store over db.
// Panics if db is nil.
func NewPostgresStore(db TxBeginner) *PostgresStore {
	if db == nil {
		panic("db cannot be nil")
	}
	return &PostgresStore{db: db}
}

// Begin opens the transaction for one source file.
func (s *PostgresStore) Begin(ctx context.Context) (sparketl.FileTx, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &pgFileTx{tx: tx, batch: &pgx.Batch{}}, nil
}

// pgFileTx queues inserts and sends them as one batch before any read and on commit.
type pgFileTx struct {
	tx     pgx.Tx
	batch  *pgx.Batch
	rows   []string
	closed bool
}

func (t *pgFileTx) queue(sql, row string, values []any) {
	t.batch.Queue(sql, values...)
	t.rows = append(t.rows, row)
}

func (t *pgFileTx) flush(ctx context.Context) error {
	if t.batch.Len() == 0 {
		return nil
	}
	batch, rows := t.batch, t.rows
	t.batch, t.rows = &pgx.Batch{}, nil

	results := t.tx.SendBatch(ctx, batch)
	for i := range rows {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return wrapInsertError(rows[i], err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to complete batch insert: %w", err)
	}
	return nil
}

func (t *pgFileTx) InsertSongs(_ context.Context, songs ...sparketl.Song) error {
	if t.closed {
		return errTxClosed
	}
	for _, s := range songs {
		t.queue(insertSongSQL, "songs "+s.SongID, s.Values())
	}
	return nil
}

func (t *pgFileTx) InsertArtists(_ context.Context, artists ...sparketl.Artist) error {
	if t.closed {
		return errTxClosed
	}
	for _, a := range artists {
		t.queue(insertArtistSQL, "artists "+a.ArtistID, a.Values())
	}
	return nil
}

func (t *pgFileTx) UpsertUsers(_ context.Context, users ...sparketl.User) error {
	if t.closed {
		return errTxClosed
	}
	for _, u := range users {
		t.queue(upsertUserSQL, "users "+u.UserID, u.Values())
	}
	return nil
}

func (t *pgFileTx) InsertTimes(_ context.Context, times ...sparketl.TimeRecord) error {
	if t.closed {
		return errTxClosed
	}
	for _, tr := range times {
		t.queue(insertTimeSQL, "time "+tr.StartTime.Format("2006-01-02T15:04:05.000Z"), tr.Values())
	}
	return nil
}

func (t *pgFileTx) InsertSongPlays(_ context.Context, plays ...sparketl.SongPlay) error {
	if t.closed {
		return errTxClosed
	}
	for _, p := range plays {
		t.queue(insertSongPlaySQL, fmt.Sprintf("songplays session %d user %s", p.SessionID, p.UserID), p.Values())
	}
	return nil
}

// FindSongs sends any queued inserts first so the lookup sees them.
func (t *pgFileTx) FindSongs(ctx context.Context, title, artistName string, duration float64, limit int) ([]sparketl.SongMatch, error) {
	if t.closed {
		return nil, errTxClosed
	}
	if err := t.flush(ctx); err != nil {
		return nil, err
	}

	rows, err := t.tx.Query(ctx, findSongsSQL, title, artistName, duration, limit)
	if err != nil {
		return nil, fmt.Errorf("song lookup failed: %w", err)
	}
	matches, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (sparketl.SongMatch, error) {
		var m sparketl.SongMatch
		err := row.Scan(&m.SongID, &m.ArtistID)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("song lookup failed: %w", err)
	}
	return matches, nil
}

// Commit sends queued inserts and commits. On failure the transaction is rolled back.
func (t *pgFileTx) Commit(ctx context.Context) error {
	if t.closed {
		return errTxClosed
	}
	if err := t.flush(ctx); err != nil {
		t.Rollback(ctx) //nolint:errcheck
		return err
	}
	t.closed = true
	if err := t.tx.Commit(ctx); err != nil {
		return wrapInsertError("commit", err)
	}
	return nil
}

// Rollback discards the file's rows. It is a no-op after Commit.
func (t *pgFileTx) Rollback(ctx context.Context) error {
	if t.closed {
		return nil
	}
	t.closed = true
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to roll back: %w", err)
	}
	return nil
}

var (
	_ sparketl.Store  = (*PostgresStore)(nil)
	_ sparketl.FileTx = (*pgFileTx)(nil)
)
