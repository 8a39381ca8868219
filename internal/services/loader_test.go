package services

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vvka-141/sparketl/internal/files/filesystem"
	"github.com/vvka-141/sparketl/internal/files/scanner"
	"github.com/vvka-141/sparketl/internal/logging"
	"github.com/vvka-141/sparketl/internal/records"
	"github.com/vvka-141/sparketl/internal/store"
	"github.com/vvka-141/sparketl/pkg/sparketl"
)

const (
	songS1 = `{"song_id":"S1","title":"T","artist_id":"A1","year":2000,"duration":180.5,"artist_name":"N","artist_location":"L","artist_latitude":1.0,"artist_longitude":2.0}`
	songS2 = `{"song_id":"S2","title":"T","artist_id":"A1","year":2001,"duration":180.5,"artist_name":"N","artist_location":null,"artist_latitude":null,"artist_longitude":null}`

	eventHome     = `{"page":"Home","ts":999,"userId":"U1","firstName":"F","lastName":"La","gender":"M","level":"free","song":null,"artist":null,"length":null,"sessionId":7,"location":"X","userAgent":"UA"}`
	eventNextSong = `{"page":"NextSong","ts":1000,"userId":"U1","firstName":"F","lastName":"La","gender":"M","level":"free","song":"T","artist":"N","length":180.5,"sessionId":7,"location":"X","userAgent":"UA"}`
	eventUnknown  = `{"page":"NextSong","ts":2000,"userId":"U2","firstName":"G","lastName":"Lb","gender":"F","level":"paid","song":"Other","artist":"Nobody","length":99.0,"sessionId":8,"location":"Y","userAgent":"UB"}`
	eventUpgrade  = `{"page":"NextSong","ts":3000,"userId":"U1","firstName":"F","lastName":"La","gender":"M","level":"paid","song":"T","artist":"N","length":180.5,"sessionId":9,"location":"X","userAgent":"UA"}`
)

type fixture struct {
	fs     *filesystem.MemoryFileSystem
	store  *store.MemoryStore
	out    *bytes.Buffer
	svc    *LoadService
	config sparketl.LoadConfig
}

func newFixture(t *testing.T, verbose bool) *fixture {
	t.Helper()
	fs := filesystem.NewMemoryFileSystem("/data")
	fs.AddDir("song_data")
	fs.AddDir("log_data")
	out := &bytes.Buffer{}
	logger := logging.NewConsoleLoggerTo(out, verbose, logging.WithoutTimestamps())

	return &fixture{
		fs:    fs,
		store: store.NewMemoryStore(),
		out:   out,
		svc:   NewLoadService(scanner.NewScannerWithFS(fs), records.NewParserWithFS(fs), logger),
		config: sparketl.LoadConfig{
			SongDataPath: "/data/song_data",
			LogDataPath:  "/data/log_data",
			Passes:       []sparketl.Pass{sparketl.PassSongs, sparketl.PassLogs},
		},
	}
}

func (f *fixture) run(t *testing.T) (*sparketl.RunSummary, error) {
	t.Helper()
	return f.svc.Run(context.Background(), f.store, f.config)
}

func TestNewLoadService_NilDeps(t *testing.T) {
	fs := filesystem.NewMemoryFileSystem("/data")
	walker := scanner.NewScannerWithFS(fs)
	parser := records.NewParserWithFS(fs)
	logger := logging.NewNullLogger()

	assert.Panics(t, func() { NewLoadService(nil, parser, logger) })
	assert.Panics(t, func() { NewLoadService(walker, nil, logger) })
	assert.Panics(t, func() { NewLoadService(walker, parser, nil) })
}

func TestRun_EndToEnd(t *testing.T) {
	f := newFixture(t, false)
	f.fs.AddFile("song_data/A/S1.json", songS1)
	f.fs.AddFile("log_data/2018/11/events.json", eventHome+"\n"+eventNextSong+"\n")

	summary, err := f.run(t)
	require.NoError(t, err)

	assert.Equal(t, []sparketl.Song{{SongID: "S1", Title: "T", ArtistID: "A1", Year: 2000, Duration: 180.5}}, f.store.Songs())
	require.Len(t, f.store.Artists(), 1)
	artist := f.store.Artists()[0]
	assert.Equal(t, "N", artist.Name)
	require.NotNil(t, artist.Location)
	assert.Equal(t, "L", *artist.Location)

	times := f.store.Times()
	require.Len(t, times, 1)
	assert.True(t, times[0].StartTime.Equal(time.UnixMilli(1000)))

	assert.Equal(t, []sparketl.User{{UserID: "U1", FirstName: "F", LastName: "La", Gender: "M", Level: "free"}}, f.store.Users())

	plays := f.store.SongPlays()
	require.Len(t, plays, 1)
	require.NotNil(t, plays[0].SongID)
	assert.Equal(t, "S1", *plays[0].SongID)
	assert.Equal(t, "A1", *plays[0].ArtistID)
	assert.Equal(t, int64(7), plays[0].SessionID)
	assert.True(t, plays[0].StartTime.Equal(times[0].StartTime))

	assert.Equal(t, 2, f.store.Commits())
	assert.NotEqual(t, uuid.Nil, summary.RunID)
	require.Len(t, summary.Passes, 2)

	songs := summary.Passes[0]
	assert.Equal(t, sparketl.PassSongs, songs.Pass)
	assert.Equal(t, 1, songs.FilesFound)
	assert.Equal(t, 1, songs.FilesProcessed)
	assert.Equal(t, 1, songs.Songs)
	assert.Equal(t, 1, songs.Artists)

	logs := summary.Passes[1]
	assert.Equal(t, sparketl.PassLogs, logs.Pass)
	assert.Equal(t, 1, logs.SkippedEvents)
	assert.Equal(t, 1, logs.SongPlays)
	assert.Equal(t, 1, logs.LookupHits)
	assert.Zero(t, logs.LookupMisses)

	assert.Equal(t,
		"INF 1 files found in /data/song_data\n"+
			"INF 1/1 files processed.\n"+
			"INF 1 files found in /data/log_data\n"+
			"INF 1/1 files processed.\n",
		f.out.String())
}

func TestRun_LookupMissLeavesNullKeys(t *testing.T) {
	f := newFixture(t, false)
	f.fs.AddFile("song_data/S1.json", songS1)
	f.fs.AddFile("log_data/events.json", eventUnknown)

	summary, err := f.run(t)
	require.NoError(t, err)

	plays := f.store.SongPlays()
	require.Len(t, plays, 1)
	assert.Nil(t, plays[0].SongID)
	assert.Nil(t, plays[0].ArtistID)
	assert.Equal(t, 1, summary.Passes[1].LookupMisses)
}

func TestRun_RerunDuplicatesSongPlays(t *testing.T) {
	f := newFixture(t, false)
	f.fs.AddFile("song_data/S1.json", songS1)
	f.fs.AddFile("log_data/events.json", eventNextSong)

	_, err := f.run(t)
	require.NoError(t, err)
	_, err = f.run(t)
	require.NoError(t, err)

	assert.Len(t, f.store.Songs(), 1)
	assert.Len(t, f.store.Artists(), 1)
	assert.Len(t, f.store.Times(), 1)
	assert.Len(t, f.store.Users(), 1)
	assert.Len(t, f.store.SongPlays(), 2, "songplays are not deduplicated across runs")
}

func TestRun_UserKeepsLastLevel(t *testing.T) {
	f := newFixture(t, false)
	f.config.Passes = []sparketl.Pass{sparketl.PassLogs}
	f.fs.AddFile("log_data/a.json", eventNextSong+"\n"+eventUpgrade)

	_, err := f.run(t)
	require.NoError(t, err)

	users := f.store.Users()
	require.Len(t, users, 1)
	assert.Equal(t, "paid", users[0].Level)
	assert.Len(t, f.store.SongPlays(), 2)
	assert.Equal(t, "free", f.store.SongPlays()[0].Level)
}

func TestRun_StopsAtFirstBadFile(t *testing.T) {
	f := newFixture(t, false)
	f.config.Passes = []sparketl.Pass{sparketl.PassLogs}
	f.fs.AddFile("log_data/1.json", eventNextSong)
	f.fs.AddFile("log_data/2.json", eventUnknown+"\n{not json\n")
	f.fs.AddFile("log_data/3.json", eventUpgrade)

	summary, err := f.run(t)
	require.Error(t, err)
	assert.ErrorIs(t, err, sparketl.ErrParse)

	var perr *sparketl.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "/data/log_data/2.json", perr.Path)
	assert.Equal(t, 2, perr.Line)

	require.Len(t, summary.Passes, 1)
	assert.Equal(t, 3, summary.Passes[0].FilesFound)
	assert.Equal(t, 1, summary.Passes[0].FilesProcessed)

	assert.Len(t, f.store.SongPlays(), 1, "only the first file is committed")
	assert.Equal(t, 1, f.store.Commits())
	assert.Contains(t, f.out.String(), "INF 1/3 files processed.\n")
	assert.NotContains(t, f.out.String(), "2/3")
}

func TestRun_LoadRejectionRollsBackFile(t *testing.T) {
	f := newFixture(t, false)
	f.config.Passes = []sparketl.Pass{sparketl.PassLogs}
	f.fs.AddFile("log_data/1.json", eventNextSong)
	f.fs.AddFile("log_data/2.json", eventUpgrade+"\n"+eventUnknown)

	rejected := errors.New("user_id rejected")
	f.store.SetInsertHook(func(table string, values []any) error {
		if table == "songplays" && values[1] == "U2" {
			return rejected
		}
		return nil
	})

	_, err := f.run(t)
	require.ErrorIs(t, err, rejected)

	assert.Equal(t, 1, f.store.Commits())
	assert.Equal(t, 1, f.store.Rollbacks())
	assert.Len(t, f.store.SongPlays(), 1)
	assert.Equal(t, "free", f.store.Users()[0].Level, "rolled back file leaves users untouched")
}

func TestRun_CatalogPassRunsBeforeLogs(t *testing.T) {
	f := newFixture(t, false)
	f.fs.AddFile("log_data/a.json", eventNextSong)
	f.fs.AddFile("song_data/z/S1.json", songS1)

	_, err := f.run(t)
	require.NoError(t, err)

	plays := f.store.SongPlays()
	require.Len(t, plays, 1)
	require.NotNil(t, plays[0].SongID)
}

func TestRun_MissingRootIsFilesystemError(t *testing.T) {
	f := newFixture(t, false)
	f.config.SongDataPath = "/data/nope"

	summary, err := f.run(t)
	require.Error(t, err)
	assert.ErrorIs(t, err, sparketl.ErrFilesystem)
	assert.Equal(t, sparketl.ExitFilesystemError, sparketl.ExitCodeForError(err))
	require.Len(t, summary.Passes, 1)
	assert.Zero(t, f.store.Commits())
}

func TestRun_UnreadableFileIsFilesystemError(t *testing.T) {
	f := newFixture(t, false)
	f.fs.AddFile("song_data/S1.json", songS1)
	f.fs.FailOpen("song_data/S1.json", errors.New("permission denied"))

	_, err := f.run(t)
	assert.ErrorIs(t, err, sparketl.ErrFilesystem)
}

func TestRun_MultiRecordCatalogFileLoadsFirst(t *testing.T) {
	f := newFixture(t, true)
	f.config.Passes = []sparketl.Pass{sparketl.PassSongs}
	f.fs.AddFile("song_data/S1.json", songS1+"\n"+songS2)

	_, err := f.run(t)
	require.NoError(t, err)

	songs := f.store.Songs()
	require.Len(t, songs, 1)
	assert.Equal(t, "S1", songs[0].SongID)
	assert.Contains(t, f.out.String(), "DBG S1.json: 2 records, only the first is loaded\n")
}

func TestRun_EmptyCatalogFileFails(t *testing.T) {
	f := newFixture(t, false)
	f.config.Passes = []sparketl.Pass{sparketl.PassSongs}
	f.fs.AddFile("song_data/empty.json", "\n\n")

	_, err := f.run(t)
	require.ErrorIs(t, err, sparketl.ErrParse)
	assert.Equal(t, 1, f.store.Rollbacks(), "the file tx is opened and rolled back")
}

func TestRun_AmbiguousLookup(t *testing.T) {
	f := newFixture(t, false)
	f.fs.AddFile("song_data/S1.json", songS1)
	f.fs.AddFile("song_data/S2.json", songS2)
	f.fs.AddFile("log_data/a.json", eventNextSong)

	t.Run("lowest song_id wins", func(t *testing.T) {
		_, err := f.run(t)
		require.NoError(t, err)
		plays := f.store.SongPlays()
		require.Len(t, plays, 1)
		assert.Equal(t, "S1", *plays[0].SongID)
	})

	t.Run("strict mode fails", func(t *testing.T) {
		f.config.StrictLookup = true
		f.config.Passes = []sparketl.Pass{sparketl.PassLogs}
		_, err := f.run(t)
		assert.ErrorIs(t, err, sparketl.ErrAmbiguousMatch)
		assert.Equal(t, sparketl.ExitLoadError, sparketl.ExitCodeForError(err))
	})
}

func TestRun_LookupCache(t *testing.T) {
	f := newFixture(t, true)
	f.config.LookupCacheTTL = time.Minute
	f.fs.AddFile("song_data/S1.json", songS1)
	f.fs.AddFile("log_data/a.json", eventNextSong+"\n"+eventUpgrade+"\n"+eventUnknown)

	summary, err := f.run(t)
	require.NoError(t, err)

	logs := summary.Passes[1]
	assert.Equal(t, 2, logs.LookupHits)
	assert.Equal(t, 1, logs.LookupMisses)
	assert.Contains(t, f.out.String(), "DBG Lookup cache: 1 hits, 2 misses, 0 evictions, 2 entries\n")
}

func TestRun_CancelledContext(t *testing.T) {
	f := newFixture(t, false)
	f.fs.AddFile("song_data/S1.json", songS1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.Run(ctx, f.store, f.config)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.store.Commits())
}

func TestRun_InvalidConfig(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.svc.Run(context.Background(), f.store, sparketl.LoadConfig{})
	assert.ErrorIs(t, err, sparketl.ErrInvalidConfig)

	_, err = f.svc.Run(context.Background(), nil, f.config)
	assert.ErrorIs(t, err, sparketl.ErrInvalidConfig)
}

func TestRun_KeepsGivenRunID(t *testing.T) {
	f := newFixture(t, false)
	id := uuid.New()
	f.config.RunID = id

	summary, err := f.run(t)
	require.NoError(t, err)
	assert.Equal(t, id, summary.RunID)
	assert.Equal(t, 0, summary.Passes[0].FilesFound)
}
