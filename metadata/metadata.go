package metadata

import (
	"context"

	"github.com/felipemarinho97/torrent-aggregator/logging"
	"github.com/felipemarinho97/torrent-aggregator/requester"
)

const (
	NameMetacritic     = "metacritic"
	NameRottenTomatoes = "rottentomatoes"
	NameTMDB           = "tmdb"
)

// Source resolves a title to a page on some metadata site and extracts a
// record from it. A Source that cannot find the title returns an empty URL
// and no error.
type Source interface {
	Name() string
	ResolveURL(ctx context.Context, title string, year int) (string, error)
	FetchInfo(ctx context.Context, url string) (any, error)
	// Empty is the record returned when nothing could be extracted. Every
	// field is present.
	Empty() any
}

// probeFirst returns the first candidate answering 200, or "" when none does.
// Candidates after the first hit are not probed.
func probeFirst(ctx context.Context, s *requester.Session, source string, candidates []string) string {
	for _, u := range candidates {
		if ctx.Err() != nil {
			return ""
		}
		if s.Probe(ctx, u) {
			return u
		}
	}
	logging.Debug().Str("source", source).Strs("candidates", candidates).Msg("No candidate URL resolved")
	return ""
}
