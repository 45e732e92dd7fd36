package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/felipemarinho97/torrent-aggregator/cache"
	"github.com/felipemarinho97/torrent-aggregator/indexers"
	"github.com/felipemarinho97/torrent-aggregator/logging"
	"github.com/felipemarinho97/torrent-aggregator/metadata"
	"github.com/felipemarinho97/torrent-aggregator/monitoring"
	"github.com/felipemarinho97/torrent-aggregator/schema"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultLimit             = 50
	DefaultEnrichConcurrency = 4
)

// Searcher fans a query out to the selected indexers and merges what they
// return into one ranked list.
type Searcher struct {
	indexers          map[string]indexers.Indexer
	cache             cache.Cache
	metadata          *metadata.Manager
	metrics           *monitoring.Metrics
	enrichConcurrency int
}

type Option func(*Searcher)

func WithCache(c cache.Cache) Option {
	return func(s *Searcher) { s.cache = c }
}

func WithMetadata(m *metadata.Manager) Option {
	return func(s *Searcher) { s.metadata = m }
}

func WithMetrics(m *monitoring.Metrics) Option {
	return func(s *Searcher) { s.metrics = m }
}

// WithEnrichConcurrency bounds how many movies are enriched at once.
func WithEnrichConcurrency(n int) Option {
	return func(s *Searcher) {
		if n > 0 {
			s.enrichConcurrency = n
		}
	}
}

type searchOptions struct {
	enrich  bool
	sources []string
}

type SearchOption func(*searchOptions)

// WithEnrichment attaches metadata to every result. Without names all
// metadata sources are queried.
func WithEnrichment(names ...string) SearchOption {
	return func(o *searchOptions) {
		o.enrich = true
		o.sources = names
	}
}

func New(ixs []indexers.Indexer, opts ...Option) *Searcher {
	s := &Searcher{
		indexers:          make(map[string]indexers.Indexer, len(ixs)),
		cache:             cache.Nop{},
		enrichConcurrency: DefaultEnrichConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, ix := range ixs {
		if s.metrics != nil {
			ix = indexers.Instrument(ix, s.metrics)
		}
		s.indexers[ix.Source().ID] = ix
	}
	if s.cache == nil {
		s.cache = cache.Nop{}
	}
	return s
}

// Sources lists the sources that have an indexer, in registry order.
func (s *Searcher) Sources() []schema.Source {
	var out []schema.Source
	for _, src := range schema.Sources() {
		if _, ok := s.indexers[src.ID]; ok {
			out = append(out, src)
		}
	}
	return out
}

// Resolve maps a selector to indexers. A selector is a source display name,
// a category name, or empty/All for every registered indexer.
func (s *Searcher) Resolve(selector string) ([]indexers.Indexer, error) {
	if selector == "" || selector == schema.CategoryAll {
		var out []indexers.Indexer
		for _, src := range s.Sources() {
			out = append(out, s.indexers[src.ID])
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("%w: no indexers registered", schema.ErrUnsupportedSource)
		}
		return out, nil
	}

	if src, err := schema.SourceByName(selector); err == nil {
		ix, ok := s.indexers[src.ID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", schema.ErrUnsupportedSource, selector)
		}
		return []indexers.Indexer{ix}, nil
	}

	sources, ok := schema.SourcesInCategory(selector)
	if !ok {
		return nil, fmt.Errorf("%w: %q", schema.ErrSourceNotFound, selector)
	}
	var out []indexers.Indexer
	for _, src := range sources {
		if ix, ok := s.indexers[src.ID]; ok {
			out = append(out, ix)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no indexer for category %s", schema.ErrUnsupportedSource, selector)
	}
	return out, nil
}

func (s *Searcher) Search(ctx context.Context, query, selector string, limit int, opts ...SearchOption) ([]schema.Movie, error) {
	var o searchOptions
	for _, opt := range opts {
		opt(&o)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	id := uuid.NewString()
	targets, err := s.Resolve(selector)
	if err != nil {
		return nil, err
	}

	s.cache.Clear(ctx)

	logging.Info().Str("search_id", id).Str("query", query).Str("selector", selector).
		Int("sources", len(targets)).Msg("Dispatching search")
	results, err := s.dispatch(ctx, id, targets, query, limit)
	if err != nil {
		logging.Warn().Err(err).Str("search_id", id).Msg("Search failed")
		return nil, err
	}

	logging.Debug().Str("search_id", id).Int("movies", len(results)).Msg("Merging results")
	movies := Dedup(results)

	logging.Debug().Str("search_id", id).Int("movies", len(movies)).Msg("Sorting results")
	movies = SortBySeeds(movies)
	if len(movies) > limit {
		movies = movies[:limit]
	}

	if o.enrich && s.metadata != nil && len(movies) > 0 {
		logging.Debug().Str("search_id", id).Strs("metadata", o.sources).Msg("Enriching results")
		movies = s.enrich(ctx, movies, o.sources)
	}

	logging.Info().Str("search_id", id).Int("results", len(movies)).Msg("Search done")
	return movies, nil
}

func (s *Searcher) dispatch(ctx context.Context, id string, targets []indexers.Indexer, query string, limit int) ([]schema.Movie, error) {
	if len(targets) == 1 {
		return targets[0].Search(ctx, query, limit)
	}

	perSource := make([][]schema.Movie, len(targets))
	errs := make([]error, len(targets))

	var g errgroup.Group
	g.SetLimit(len(targets))
	for i, ix := range targets {
		g.Go(func() error {
			movies, err := ix.Search(ctx, query, limit)
			if err != nil {
				logging.Warn().Err(err).Str("search_id", id).Str("source", ix.Source().Name).
					Msg("Source failed, continuing with the others")
				errs[i] = err
				return nil
			}
			perSource[i] = movies
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	var out []schema.Movie
	for i := range targets {
		if errs[i] != nil {
			failed++
			continue
		}
		out = append(out, perSource[i]...)
	}
	if failed == len(targets) {
		return nil, schema.MostSpecific(errs)
	}
	return out, nil
}

func (s *Searcher) enrich(ctx context.Context, movies []schema.Movie, names []string) []schema.Movie {
	out := make([]schema.Movie, len(movies))
	copy(out, movies)

	var g errgroup.Group
	g.SetLimit(s.enrichConcurrency)
	for i, m := range movies {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return nil
			}
			md := s.metadata.GetMetadata(ctx, m.Title, m.Year, names...)
			out[i] = m.WithMetadata(md)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// IsSelectorError reports whether err comes from an unusable selector
// rather than from the sources themselves.
func IsSelectorError(err error) bool {
	return errors.Is(err, schema.ErrSourceNotFound) || errors.Is(err, schema.ErrUnsupportedSource)
}
