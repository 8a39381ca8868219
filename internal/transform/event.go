package transform

import (
	"context"
	"fmt"

	"github.com/vvka-141/sparketl/pkg/sparketl"
)

// Event record keys.
const (
	keyPage      = "page"
	keyTS        = "ts"
	keyUserID    = "userId"
	keyFirstName = "firstName"
	keyLastName  = "lastName"
	keyGender    = "gender"
	keyLevel     = "level"
	keySong      = "song"
	keyArtist    = "artist"
	keyLength    = "length"
	keySessionID = "sessionId"
	keyLocation  = "location"
	keyUserAgent = "userAgent"
)

// EventRows holds every row derived from one NextSong event.
type EventRows struct {
	User     sparketl.User
	Time     sparketl.TimeRecord
	SongPlay sparketl.SongPlay

	// Matched reports whether the lookup found a catalog song.
	Matched bool
}

// EventTransformer turns NextSong events into user, time and songplay rows.
type EventTransformer struct {
	resolver sparketl.LookupResolver
}

// NewEventTransformer creates an EventTransformer.
// Panics if resolver is nil.
func NewEventTransformer(resolver sparketl.LookupResolver) *EventTransformer {
	if resolver == nil {
		panic("resolver cannot be nil")
	}
	return &EventTransformer{resolver: resolver}
}

// IsNextSong reports whether rec is a song play. Only page is required here;
// other fields are read once the record is known to be a NextSong.
func IsNextSong(rec sparketl.Record) (bool, error) {
	page, err := rec.String(keyPage)
	if err != nil {
		return false, err
	}
	return page == sparketl.NextSongPage, nil
}

// Transform maps one event record. It returns nil rows without error for
// events that are not song plays. q is the querier the resolver runs
// against, normally the open per-file transaction.
func (t *EventTransformer) Transform(ctx context.Context, q sparketl.SongQuerier, rec sparketl.Record) (*EventRows, error) {
	ok, err := IsNextSong(rec)
	if err != nil || !ok {
		return nil, err
	}

	ts, err := rec.Int64(keyTS)
	if err != nil {
		return nil, err
	}
	timeRow := DecomposeTime(ts)

	user, err := extractUser(rec)
	if err != nil {
		return nil, err
	}

	title, err := rec.String(keySong)
	if err != nil {
		return nil, err
	}
	artistName, err := rec.String(keyArtist)
	if err != nil {
		return nil, err
	}
	length, err := rec.Float64(keyLength)
	if err != nil {
		return nil, err
	}
	sessionID, err := rec.Int64(keySessionID)
	if err != nil {
		return nil, err
	}
	location, err := rec.String(keyLocation)
	if err != nil {
		return nil, err
	}
	userAgent, err := rec.String(keyUserAgent)
	if err != nil {
		return nil, err
	}

	match, err := t.resolver.Resolve(ctx, q, title, artistName, length)
	if err != nil {
		return nil, fmt.Errorf("%s:%d: song lookup: %w", rec.Path, rec.Line, err)
	}

	play := sparketl.SongPlay{
		StartTime: timeRow.StartTime,
		UserID:    user.UserID,
		Level:     user.Level,
		SessionID: sessionID,
		Location:  location,
		UserAgent: userAgent,
	}
	if match != nil {
		songID, artistID := match.SongID, match.ArtistID
		play.SongID = &songID
		play.ArtistID = &artistID
	}

	return &EventRows{
		User:     user,
		Time:     timeRow,
		SongPlay: play,
		Matched:  match != nil,
	}, nil
}

func extractUser(rec sparketl.Record) (sparketl.User, error) {
	var (
		u   sparketl.User
		err error
	)
	if u.UserID, err = rec.String(keyUserID); err != nil {
		return sparketl.User{}, err
	}
	if u.FirstName, err = rec.String(keyFirstName); err != nil {
		return sparketl.User{}, err
	}
	if u.LastName, err = rec.String(keyLastName); err != nil {
		return sparketl.User{}, err
	}
	if u.Gender, err = rec.String(keyGender); err != nil {
		return sparketl.User{}, err
	}
	if u.Level, err = rec.String(keyLevel); err != nil {
		return sparketl.User{}, err
	}
	return u, nil
}
