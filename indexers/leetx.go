package indexers

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/felipemarinho97/torrent-aggregator/logging"
	"github.com/felipemarinho97/torrent-aggregator/magnet"
	"github.com/felipemarinho97/torrent-aggregator/metadata"
	"github.com/felipemarinho97/torrent-aggregator/requester"
	"github.com/felipemarinho97/torrent-aggregator/schema"
	"golang.org/x/time/rate"
)

const (
	DefaultLeetxMaxPages  = 5
	DefaultLeetxPageDelay = time.Second
)

// ShowInfoProvider supplies catalog fields for a show name.
type ShowInfoProvider interface {
	ShowInfo(ctx context.Context, name string) metadata.ShowInfo
}

type LeetxOptions struct {
	BaseURL  string
	MaxPages int
	// PageDelay spaces page fetches. Zero means the default, negative disables it.
	PageDelay time.Duration
}

// Leetx scrapes 1337x search listings for TV releases and groups them into
// per-episode and per-season results.
type Leetx struct {
	source    schema.Source
	req       *requester.Requester
	shows     ShowInfoProvider
	maxPages  int
	pageDelay time.Duration
	now       func() time.Time
}

func NewLeetx(req *requester.Requester, shows ShowInfoProvider, opts LeetxOptions) *Leetx {
	source := schema.Leetx
	if opts.BaseURL != "" {
		source.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")
		source.SearchURL = source.BaseURL + "/search/%s/%d/"
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultLeetxMaxPages
	}
	if opts.PageDelay == 0 {
		opts.PageDelay = DefaultLeetxPageDelay
	}
	return &Leetx{
		source:    source,
		req:       req,
		shows:     shows,
		maxPages:  opts.MaxPages,
		pageDelay: opts.PageDelay,
		now:       time.Now,
	}
}

func (l *Leetx) Source() schema.Source { return l.source }

func (l *Leetx) pageURL(query string, page int) string {
	q := strings.ReplaceAll(url.PathEscape(query), "%20", "+")
	return fmt.Sprintf(l.source.SearchURL, q, page)
}

func (l *Leetx) Search(ctx context.Context, query string, limit int) ([]schema.Movie, error) {
	session := l.req.NewSession()
	limiter := rate.NewLimiter(rate.Inf, 1)
	if l.pageDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(l.pageDelay), 1)
	}

	groups := newShowGroups()
	total := 0

	for page := 1; page <= l.maxPages && total < limit; page++ {
		if err := limiter.Wait(ctx); err != nil {
			if page == 1 {
				return nil, classify(l.source.Name, err)
			}
			break
		}

		pageURL := l.pageURL(query, page)
		resp, err := session.Get(ctx, pageURL, nil)
		if err != nil {
			if page == 1 {
				return nil, classify(l.source.Name, err)
			}
			logging.Warn().Err(err).Int("page", page).Msg("Failed to fetch 1337x page, keeping partial results")
			break
		}
		doc, err := resp.Document()
		if err != nil {
			if page == 1 {
				return nil, schema.NewAPIError(l.source.Name, "malformed page", err)
			}
			break
		}

		rows := doc.Find("table.table-list tbody tr")
		if rows.Length() == 0 {
			break
		}
		rows.EachWithBreak(func(_ int, row *goquery.Selection) bool {
			rel, torrent, ok := l.parseRow(ctx, session, row)
			if ok {
				groups.add(rel, torrent)
				total++
			}
			return total < limit
		})

		if !hasNextPage(doc) {
			logging.Debug().Int("page", page).Msg("No more 1337x pages")
			break
		}
	}

	return groups.movies(ctx, l.shows), nil
}

func (l *Leetx) parseRow(ctx context.Context, session *requester.Session, row *goquery.Selection) (Release, schema.Torrent, bool) {
	link := row.Find("td.name a:nth-of-type(2)").First()
	raw := text(link)
	href, _ := link.Attr("href")
	if raw == "" || href == "" {
		return Release{}, schema.Torrent{}, false
	}

	rel, ok := ParseRelease(raw)
	if !ok {
		logging.Debug().Str("release", raw).Msg("Skipping unparseable release")
		return Release{}, schema.Torrent{}, false
	}

	detailURL, err := l.resolve(href)
	if err != nil {
		logging.Debug().Err(err).Str("href", href).Msg("Skipping row with invalid link")
		return Release{}, schema.Torrent{}, false
	}
	resp, err := session.Get(ctx, detailURL, nil)
	if err != nil {
		logging.Warn().Err(err).Str("url", detailURL).Msg("Failed to fetch torrent page")
		return Release{}, schema.Torrent{}, false
	}
	doc, err := resp.Document()
	if err != nil {
		return Release{}, schema.Torrent{}, false
	}
	magnetURI, _ := doc.Find(`a[href^="magnet:"]`).First().Attr("href")
	handle, err := magnet.Parse(magnetURI)
	if err != nil {
		logging.Debug().Err(err).Str("url", detailURL).Msg("Skipping torrent without a valid magnet")
		return Release{}, schema.Torrent{}, false
	}

	return rel, schema.Torrent{
		Quality:      rel.Quality,
		Type:         "tv",
		URL:          handle.URI,
		Size:         ownText(row.Find("td.size").First()),
		Seeds:        atoi(text(row.Find("td.seeds").First())),
		Peers:        atoi(text(row.Find("td.leeches").First())),
		DateUploaded: normalizeDate(text(row.Find("td.coll-date").First()), l.now()),
		VideoCodec:   rel.Codec,
	}, true
}

func (l *Leetx) resolve(href string) (string, error) {
	base, err := url.Parse(l.source.BaseURL + "/")
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

func hasNextPage(doc *goquery.Document) bool {
	next := false
	doc.Find("div.pagination a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		label := strings.ToLower(text(a))
		next = label == ">>" || strings.Contains(label, "next")
		return !next
	})
	return next
}

type episodeKey struct {
	season  int
	episode int
}

type showGroup struct {
	name     string
	seasons  []int
	episodes map[int][]int
	torrents map[episodeKey][]schema.Torrent
}

// showGroups keeps releases grouped by show, season and episode in the order
// they were first seen.
type showGroups struct {
	order []string
	shows map[string]*showGroup
}

func newShowGroups() *showGroups {
	return &showGroups{shows: map[string]*showGroup{}}
}

func (g *showGroups) add(rel Release, t schema.Torrent) {
	show, ok := g.shows[rel.Title]
	if !ok {
		show = &showGroup{
			name:     rel.Title,
			episodes: map[int][]int{},
			torrents: map[episodeKey][]schema.Torrent{},
		}
		g.shows[rel.Title] = show
		g.order = append(g.order, rel.Title)
	}

	if _, ok := show.episodes[rel.Season]; !ok {
		show.seasons = append(show.seasons, rel.Season)
		show.episodes[rel.Season] = nil
	}
	key := episodeKey{season: rel.Season, episode: rel.Episode}
	if _, ok := show.torrents[key]; !ok && rel.Episode != 0 {
		show.episodes[rel.Season] = append(show.episodes[rel.Season], rel.Episode)
	}
	show.torrents[key] = append(show.torrents[key], t)
}

// movies materialises the groups. Each season yields its pack first, then
// its episodes. Catalog fields are looked up once per show.
func (g *showGroups) movies(ctx context.Context, shows ShowInfoProvider) []schema.Movie {
	var out []schema.Movie
	for _, name := range g.order {
		show := g.shows[name]
		info := metadata.FallbackShowInfo()
		if shows != nil {
			info = shows.ShowInfo(ctx, name)
		}

		for _, season := range show.seasons {
			if pack, ok := show.torrents[episodeKey{season: season}]; ok {
				out = append(out, newShowMovie(fmt.Sprintf("%s Season %d (Complete)", name, season), pack, info))
			}
			for _, ep := range show.episodes[season] {
				out = append(out, newShowMovie(
					fmt.Sprintf("%s S%02dE%02d", name, season, ep),
					show.torrents[episodeKey{season: season, episode: ep}],
					info,
				))
			}
		}
	}
	if out == nil {
		out = []schema.Movie{}
	}
	return out
}

func newShowMovie(title string, torrents []schema.Torrent, info metadata.ShowInfo) schema.Movie {
	return schema.Movie{
		Title:                   title,
		Torrents:                slices.Clone(torrents),
		PosterURL:               info.PosterURL,
		Rating:                  info.Rating,
		Genres:                  slices.Clone(info.Genres),
		DescriptionFull:         info.Description,
		Year:                    info.Year,
		Language:                info.Language,
		Runtime:                 info.Runtime,
		IMDBCode:                info.IMDBCode,
		Cast:                    slices.Clone(info.Cast),
		YTTrailerCode:           info.YTTrailerCode,
		BackgroundImageOriginal: info.BackgroundImageOriginal,
	}
}
