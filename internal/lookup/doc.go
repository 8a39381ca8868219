// Package lookup resolves an event's (title, artist, duration) to catalog keys.
//
// StoreResolver asks the store for at most two matches ordered by song_id and
// keeps the lowest one, or fails in strict mode when the match is ambiguous.
// CachingResolver wraps any resolver with a bounded TTL cache that also
// remembers misses.
package lookup
