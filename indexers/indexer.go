package indexers

import (
	"context"
	"errors"
	"time"

	"github.com/felipemarinho97/torrent-aggregator/logging"
	"github.com/felipemarinho97/torrent-aggregator/monitoring"
	"github.com/felipemarinho97/torrent-aggregator/requester"
	"github.com/felipemarinho97/torrent-aggregator/schema"
)

// Indexer searches one torrent source.
type Indexer interface {
	Source() schema.Source
	Search(ctx context.Context, query string, limit int) ([]schema.Movie, error)
}

// classify maps a request failure onto the search error taxonomy.
func classify(source string, err error) error {
	var searchErr *schema.SearchError
	if errors.As(err, &searchErr) {
		return err
	}
	switch {
	case requester.IsConnectionBlocked(err):
		return schema.NewConnectionBlockedError(source, err)
	case requester.StatusCode(err) != 0:
		return schema.NewAPIError(source, "unexpected response", err)
	default:
		return schema.NewSearchError(source, "request failed", err)
	}
}

// Instrument wraps an Indexer with request, error, result and duration metrics.
func Instrument(ix Indexer, m *monitoring.Metrics) Indexer {
	if m == nil {
		return ix
	}
	return &instrumented{Indexer: ix, metrics: m}
}

type instrumented struct {
	Indexer
	metrics *monitoring.Metrics
}

func (i *instrumented) Search(ctx context.Context, query string, limit int) ([]schema.Movie, error) {
	name := i.Source().ID
	start := time.Now()
	i.metrics.IndexerRequests.WithLabelValues(name).Inc()

	movies, err := i.Indexer.Search(ctx, query, limit)

	i.metrics.IndexerDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		i.metrics.IndexerErrors.WithLabelValues(name, schema.KindOf(err).String()).Inc()
		logging.Debug().Err(err).Str("indexer", name).Msg("Indexer search failed")
		return nil, err
	}
	i.metrics.IndexerResults.WithLabelValues(name).Add(float64(len(movies)))
	return movies, nil
}
