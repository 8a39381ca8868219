package store

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/vvka-141/sparketl/pkg/sparketl"
)

// InsertHook inspects every row before it is accepted. Returning an error
// rejects the row and fails the insert call.
type InsertHook func(table string, values []any) error

// MemoryStore keeps committed rows in memory. It is safe for concurrent use.
type MemoryStore struct {
	mu        sync.Mutex
	state     memoryState
	hook      InsertHook
	commits   int
	rollbacks int
}

// memoryState holds one consistent set of tables.
type memoryState struct {
	songs     []sparketl.Song
	artists   []sparketl.Artist
	users     []sparketl.User
	times     []sparketl.TimeRecord
	songPlays []sparketl.SongPlay
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// SetInsertHook installs a hook that can reject rows.
func (s *MemoryStore) SetInsertHook(hook InsertHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = hook
}

// Begin opens an isolated unit of work.
func (s *MemoryStore) Begin(_ context.Context) (sparketl.FileTx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &memoryTx{store: s, hook: s.hook}, nil
}

// Songs returns committed songs in insertion order.
func (s *MemoryStore) Songs() []sparketl.Song {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.songs)
}

// Artists returns committed artists in insertion order.
func (s *MemoryStore) Artists() []sparketl.Artist {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.artists)
}

// Users returns committed users in order of first appearance.
func (s *MemoryStore) Users() []sparketl.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.users)
}

// Times returns committed time rows in insertion order.
func (s *MemoryStore) Times() []sparketl.TimeRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.times)
}

// SongPlays returns committed songplays in insertion order.
func (s *MemoryStore) SongPlays() []sparketl.SongPlay {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.songPlays)
}

// Commits returns how many units of work were committed.
func (s *MemoryStore) Commits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits
}

// Rollbacks returns how many units of work were rolled back.
func (s *MemoryStore) Rollbacks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rollbacks
}

func (st *memoryState) addSong(song sparketl.Song) {
	if !slices.ContainsFunc(st.songs, func(s sparketl.Song) bool { return s.SongID == song.SongID }) {
		st.songs = append(st.songs, song)
	}
}

func (st *memoryState) addArtist(artist sparketl.Artist) {
	if !slices.ContainsFunc(st.artists, func(a sparketl.Artist) bool { return a.ArtistID == artist.ArtistID }) {
		st.artists = append(st.artists, artist)
	}
}

func (st *memoryState) upsertUser(user sparketl.User) {
	i := slices.IndexFunc(st.users, func(u sparketl.User) bool { return u.UserID == user.UserID })
	if i >= 0 {
		st.users[i] = user
		return
	}
	st.users = append(st.users, user)
}

func (st *memoryState) addTime(tr sparketl.TimeRecord) {
	if !slices.ContainsFunc(st.times, func(t sparketl.TimeRecord) bool { return t.StartTime.Equal(tr.StartTime) }) {
		st.times = append(st.times, tr)
	}
}

// catalog copies only the tables a song lookup reads.
func (st *memoryState) catalog() memoryState {
	return memoryState{
		songs:   slices.Clone(st.songs),
		artists: slices.Clone(st.artists),
	}
}

func (st *memoryState) findSongs(title, artistName string, duration float64, limit int) []sparketl.SongMatch {
	names := make(map[string]string, len(st.artists))
	for _, a := range st.artists {
		names[a.ArtistID] = a.Name
	}

	var matches []sparketl.SongMatch
	for _, s := range st.songs {
		name, ok := names[s.ArtistID]
		if ok && name == artistName && s.Title == title && s.Duration == duration {
			matches = append(matches, sparketl.SongMatch{SongID: s.SongID, ArtistID: s.ArtistID})
		}
	}
	slices.SortFunc(matches, func(a, b sparketl.SongMatch) int { return strings.Compare(a.SongID, b.SongID) })
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// memoryTx records operations and replays them onto the store on commit.
type memoryTx struct {
	store  *MemoryStore
	hook   InsertHook
	ops    []func(*memoryState)
	closed bool
}

func (t *memoryTx) check(table string, values []any) error {
	if t.closed {
		return errTxClosed
	}
	if t.hook != nil {
		return t.hook(table, values)
	}
	return nil
}

func (t *memoryTx) InsertSongs(_ context.Context, songs ...sparketl.Song) error {
	for _, s := range songs {
		if err := t.check("songs", s.Values()); err != nil {
			return err
		}
		t.ops = append(t.ops, func(st *memoryState) { st.addSong(s) })
	}
	return nil
}

func (t *memoryTx) InsertArtists(_ context.Context, artists ...sparketl.Artist) error {
	for _, a := range artists {
		if err := t.check("artists", a.Values()); err != nil {
			return err
		}
		t.ops = append(t.ops, func(st *memoryState) { st.addArtist(a) })
	}
	return nil
}

func (t *memoryTx) UpsertUsers(_ context.Context, users ...sparketl.User) error {
	for _, u := range users {
		if err := t.check("users", u.Values()); err != nil {
			return err
		}
		t.ops = append(t.ops, func(st *memoryState) { st.upsertUser(u) })
	}
	return nil
}

func (t *memoryTx) InsertTimes(_ context.Context, times ...sparketl.TimeRecord) error {
	for _, tr := range times {
		if err := t.check("time", tr.Values()); err != nil {
			return err
		}
		t.ops = append(t.ops, func(st *memoryState) { st.addTime(tr) })
	}
	return nil
}

func (t *memoryTx) InsertSongPlays(_ context.Context, plays ...sparketl.SongPlay) error {
	for _, p := range plays {
		if err := t.check("songplays", p.Values()); err != nil {
			return err
		}
		t.ops = append(t.ops, func(st *memoryState) { st.songPlays = append(st.songPlays, p) })
	}
	return nil
}

// FindSongs sees committed rows plus this transaction's own pending rows.
func (t *memoryTx) FindSongs(_ context.Context, title, artistName string, duration float64, limit int) ([]sparketl.SongMatch, error) {
	if t.closed {
		return nil, errTxClosed
	}
	t.store.mu.Lock()
	view := t.store.state.catalog()
	t.store.mu.Unlock()

	for _, op := range t.ops {
		op(&view)
	}
	return view.findSongs(title, artistName, duration, limit), nil
}

func (t *memoryTx) Commit(_ context.Context) error {
	if t.closed {
		return errTxClosed
	}
	t.closed = true

	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, op := range t.ops {
		op(&t.store.state)
	}
	t.store.commits++
	t.ops = nil
	return nil
}

func (t *memoryTx) Rollback(_ context.Context) error {
	if t.closed {
		return nil
	}
	t.closed = true
	t.ops = nil

	t.store.mu.Lock()
	t.store.rollbacks++
	t.store.mu.Unlock()
	return nil
}

var (
	_ sparketl.Store  = (*MemoryStore)(nil)
	_ sparketl.FileTx = (*memoryTx)(nil)
)
