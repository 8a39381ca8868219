package transform

import (
	"github.com/vvka-141/sparketl/pkg/sparketl"
)

// Catalog record keys.
const (
	keySongID          = "song_id"
	keyTitle           = "title"
	keyArtistID        = "artist_id"
	keyYear            = "year"
	keyDuration        = "duration"
	keyArtistName      = "artist_name"
	keyArtistLocation  = "artist_location"
	keyArtistLatitude  = "artist_latitude"
	keyArtistLongitude = "artist_longitude"
)

// TransformCatalog extracts the Song and Artist described by one catalog record.
// Only type coercion is applied; constraint checks are left to the store.
func TransformCatalog(rec sparketl.Record) (sparketl.Song, sparketl.Artist, error) {
	var (
		song   sparketl.Song
		artist sparketl.Artist
		err    error
	)

	if song.SongID, err = rec.String(keySongID); err != nil {
		return sparketl.Song{}, sparketl.Artist{}, err
	}
	if song.Title, err = rec.String(keyTitle); err != nil {
		return sparketl.Song{}, sparketl.Artist{}, err
	}
	if song.ArtistID, err = rec.String(keyArtistID); err != nil {
		return sparketl.Song{}, sparketl.Artist{}, err
	}
	year, err := rec.Int64(keyYear)
	if err != nil {
		return sparketl.Song{}, sparketl.Artist{}, err
	}
	song.Year = int(year)
	if song.Duration, err = rec.Float64(keyDuration); err != nil {
		return sparketl.Song{}, sparketl.Artist{}, err
	}

	artist.ArtistID = song.ArtistID
	if artist.Name, err = rec.String(keyArtistName); err != nil {
		return sparketl.Song{}, sparketl.Artist{}, err
	}
	if artist.Location, err = rec.NullableString(keyArtistLocation); err != nil {
		return sparketl.Song{}, sparketl.Artist{}, err
	}
	if artist.Latitude, err = rec.NullableFloat64(keyArtistLatitude); err != nil {
		return sparketl.Song{}, sparketl.Artist{}, err
	}
	if artist.Longitude, err = rec.NullableFloat64(keyArtistLongitude); err != nil {
		return sparketl.Song{}, sparketl.Artist{}, err
	}

	return song, artist, nil
}
