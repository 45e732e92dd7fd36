package metadata

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/felipemarinho97/torrent-aggregator/logging"
	"github.com/felipemarinho97/torrent-aggregator/monitoring"
	"github.com/felipemarinho97/torrent-aggregator/schema"
	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
)

// Manager queries several metadata sources for one title at a time.
type Manager struct {
	sources map[string]Source
	order   []string
	metrics *monitoring.Metrics
}

type ManagerOption func(*Manager)

func WithManagerMetrics(m *monitoring.Metrics) ManagerOption {
	return func(mg *Manager) {
		if m != nil {
			mg.metrics = m
		}
	}
}

func NewManager(sources []Source, opts ...ManagerOption) *Manager {
	m := &Manager{
		sources: make(map[string]Source, len(sources)),
		metrics: monitoring.NewMetrics(),
	}
	for _, s := range sources {
		if _, dup := m.sources[s.Name()]; dup {
			continue
		}
		m.sources[s.Name()] = s
		m.order = append(m.order, s.Name())
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Names lists the registered sources in registration order.
func (m *Manager) Names() []string {
	return append([]string(nil), m.order...)
}

// GetMetadata asks every named source (all of them when names is empty) about
// title concurrently. Each requested, known source gets an entry; failures are
// reported inside the entry, never as a return value.
func (m *Manager) GetMetadata(ctx context.Context, title string, year int, names ...string) map[string]schema.MetadataResult {
	if len(names) == 0 {
		names = m.order
	}

	selected := make([]Source, 0, len(names))
	for _, name := range names {
		s, ok := m.sources[name]
		if !ok {
			logging.Warn().Str("source", name).Msg("Unknown metadata source requested")
			continue
		}
		selected = append(selected, s)
	}

	results := make(map[string]schema.MetadataResult, len(selected))
	if len(selected) == 0 {
		return results
	}

	var mu sync.Mutex
	p := pool.New().WithMaxGoroutines(len(selected))
	for _, s := range selected {
		p.Go(func() {
			res := m.query(ctx, s, title, year)
			mu.Lock()
			results[s.Name()] = res
			mu.Unlock()
		})
	}
	p.Wait()

	return results
}

func (m *Manager) query(ctx context.Context, s Source, title string, year int) (res schema.MetadataResult) {
	start := time.Now()
	defer func() {
		m.metrics.MetadataDuration.WithLabelValues(s.Name()).Observe(time.Since(start).Seconds())
		if res.Error != "" {
			m.metrics.MetadataErrors.WithLabelValues(s.Name()).Inc()
		}
	}()

	var pc panics.Catcher
	pc.Try(func() {
		res = lookup(ctx, s, title, year)
	})
	if r := pc.Recovered(); r != nil {
		logging.Error().Str("source", s.Name()).Str("panic", fmt.Sprint(r.Value)).Msg("Metadata source panicked")
		res = schema.MetadataResult{Info: s.Empty(), Error: fmt.Sprintf("panic: %v", r.Value)}
	}
	return res
}

func lookup(ctx context.Context, s Source, title string, year int) schema.MetadataResult {
	url, err := s.ResolveURL(ctx, title, year)
	if err != nil {
		logging.Warn().Err(err).Str("source", s.Name()).Str("title", title).Msg("Failed to resolve metadata URL")
		return schema.MetadataResult{Error: err.Error()}
	}
	if url == "" {
		return schema.MetadataResult{Info: s.Empty()}
	}

	info, err := s.FetchInfo(ctx, url)
	if err != nil {
		logging.Warn().Err(err).Str("source", s.Name()).Str("url", url).Msg("Failed to fetch metadata")
		return schema.MetadataResult{URL: url, Info: s.Empty(), Error: err.Error()}
	}
	return schema.MetadataResult{URL: url, Info: info}
}
