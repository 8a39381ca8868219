// Package transform maps decoded records onto the star-schema rows.
//
// Catalog records become a Song and its Artist. Event records are filtered to
// NextSong plays and become a User, a TimeRecord and a SongPlay, with the song
// and artist keys resolved through a sparketl.LookupResolver.
package transform
