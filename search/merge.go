package search

import (
	"slices"

	"github.com/felipemarinho97/torrent-aggregator/schema"
)

// Dedup merges movies sharing a case-folded title and year. The first
// occurrence keeps its scalar fields and later torrents are appended to it.
// Output order follows first appearance. Dedup(Dedup(x)) == Dedup(x).
func Dedup(movies []schema.Movie) []schema.Movie {
	out := make([]schema.Movie, 0, len(movies))
	index := make(map[string]int, len(movies))
	for _, m := range movies {
		key := m.DedupKey()
		if i, ok := index[key]; ok {
			out[i] = out[i].WithTorrents(m.Torrents...)
			continue
		}
		index[key] = len(out)
		out = append(out, m.WithTorrents())
	}
	return out
}

// SortBySeeds orders movies by their best seed count, highest first. Ties
// keep their input order.
func SortBySeeds(movies []schema.Movie) []schema.Movie {
	out := slices.Clone(movies)
	slices.SortStableFunc(out, func(a, b schema.Movie) int {
		return b.MaxSeeds() - a.MaxSeeds()
	})
	return out
}
