package lookup

import (
	"context"
	"fmt"

	"github.com/vvka-141/sparketl/pkg/sparketl"
)

// probeLimit is enough rows to tell a unique match from an ambiguous one.
const probeLimit = 2

// StoreResolver looks songs up through the store's SongQuerier.
type StoreResolver struct {
	strict bool
}

// NewStoreResolver creates a resolver. When strict is true, a lookup that
// matches more than one song fails with sparketl.ErrAmbiguousMatch.
func NewStoreResolver(strict bool) *StoreResolver {
	return &StoreResolver{strict: strict}
}

// Resolve returns the match with the lowest song_id, or nil when the catalog
// has no song with this title, artist name and duration.
func (r *StoreResolver) Resolve(ctx context.Context, q sparketl.SongQuerier, title, artistName string, duration float64) (*sparketl.SongMatch, error) {
	matches, err := q.FindSongs(ctx, title, artistName, duration, probeLimit)
	if err != nil {
		return nil, err
	}
	switch {
	case len(matches) == 0:
		return nil, nil
	case len(matches) > 1 && r.strict:
		return nil, fmt.Errorf("%w: %q by %q (%.5f) matches %s and %s",
			sparketl.ErrAmbiguousMatch, title, artistName, duration, matches[0].SongID, matches[1].SongID)
	}
	match := matches[0]
	return &match, nil
}

var _ sparketl.LookupResolver = (*StoreResolver)(nil)
