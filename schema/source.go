package schema

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// Access tells how a source is queried.
type Access int

const (
	AccessAPI Access = iota
	AccessScrape
)

func (a Access) String() string {
	if a == AccessAPI {
		return "api"
	}
	return "scrape"
}

const (
	CategoryMovies   = "Movies"
	CategoryTVSeries = "TV Series"
	CategoryAll      = "All"
)

// Categories lists the categories in the order they are offered.
var Categories = []string{CategoryMovies, CategoryTVSeries, CategoryAll}

var (
	ErrSourceNotFound    = errors.New("source not found")
	ErrUnsupportedSource = errors.New("unsupported source")
)

// Source describes a torrent provider.
type Source struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Category  string            `json:"category"`
	APIURL    string            `json:"api_url,omitempty"`
	BaseURL   string            `json:"base_url,omitempty"`
	SearchURL string            `json:"search_url,omitempty"`
	Params    map[string]string `json:"params,omitempty"`
	Access    Access            `json:"-"`
}

var (
	YTS = Source{
		ID:       "yts",
		Name:     "YTS.mx",
		Category: CategoryMovies,
		APIURL:   "https://yts.mx/api/v2/list_movies.json",
		Params:   map[string]string{"with_rt_ratings": "true"},
		Access:   AccessAPI,
	}
	Leetx = Source{
		ID:        "leetx",
		Name:      "1337x",
		Category:  CategoryAll,
		BaseURL:   "https://1337x.to",
		SearchURL: "https://1337x.to/search/%s/%d/",
		Access:    AccessScrape,
	}
	RARBG = Source{
		ID:       "rarbg",
		Name:     "RARBG",
		Category: CategoryAll,
		APIURL:   "https://torrentapi.org/pubapi_v2.php",
		Params:   map[string]string{"mode": "search", "ranked": "0"},
		Access:   AccessAPI,
	}
	TorrentGalaxy = Source{
		ID:        "torrentgalaxy",
		Name:      "TorrentGalaxy",
		Category:  CategoryAll,
		SearchURL: "https://torrentgalaxy.to/torrents.php?search=%s#results",
		Access:    AccessScrape,
	}
	EZTVx = Source{
		ID:        "eztvx",
		Name:      "EZTVx",
		Category:  CategoryTVSeries,
		SearchURL: "https://eztvx.to/search/%s",
		Access:    AccessScrape,
	}
	EXT = Source{
		ID:        "ext",
		Name:      "EXT",
		Category:  CategoryAll,
		SearchURL: "https://ext.to/search/?q=%s",
		Access:    AccessScrape,
	}
	OxTorrent = Source{
		ID:        "oxtorrent",
		Name:      "OxTorrent",
		Category:  CategoryAll,
		SearchURL: "https://www.oxtorrent.co/recherche/%s",
		Access:    AccessScrape,
	}
	ThePirateBay = Source{
		ID:        "thepiratebay",
		Name:      "The Pirate Bay",
		Category:  CategoryAll,
		SearchURL: "https://thepiratebay.org/search.php?q=%s&all=on&search=Pirate+Search&page=0&orderby=",
		Access:    AccessScrape,
	}
	LimeTorrents = Source{
		ID:        "limetorrents",
		Name:      "LimeTorrents",
		Category:  CategoryAll,
		SearchURL: "https://www.limetorrents.lol/search/all/%s/",
		Access:    AccessScrape,
	}
	TorrentDownloads = Source{
		ID:        "torrentdownloads",
		Name:      "TorrentDownloads",
		Category:  CategoryAll,
		SearchURL: "https://www.torrentdownloads.pro/search/?search=%s",
		Access:    AccessScrape,
	}
	Torlock = Source{
		ID:        "torlock",
		Name:      "Torlock",
		Category:  CategoryAll,
		SearchURL: "https://www.torlock.com/?qq=1&q=%s",
		Access:    AccessScrape,
	}
)

var registry = []Source{
	YTS, Leetx, RARBG, TorrentGalaxy, EZTVx, EXT,
	OxTorrent, ThePirateBay, LimeTorrents, TorrentDownloads, Torlock,
}

// preferred order inside each category, remaining sources follow in registry order
var categoryOrder = map[string][]string{
	CategoryMovies:   {YTS.ID},
	CategoryTVSeries: {Leetx.ID, EZTVx.ID},
	CategoryAll: {
		Leetx.ID, RARBG.ID, TorrentGalaxy.ID, EXT.ID, OxTorrent.ID,
		ThePirateBay.ID, LimeTorrents.ID, TorrentDownloads.ID, Torlock.ID,
	},
}

func (s Source) clone() Source {
	s.Params = maps.Clone(s.Params)
	return s
}

// Sources returns every known source in enumeration order.
func Sources() []Source {
	out := make([]Source, 0, len(registry))
	for _, s := range registry {
		out = append(out, s.clone())
	}
	return out
}

// SourceByName looks a source up by its exact display name.
func SourceByName(name string) (Source, error) {
	for _, s := range registry {
		if s.Name == name {
			return s.clone(), nil
		}
	}
	return Source{}, fmt.Errorf("%w: %q", ErrSourceNotFound, name)
}

func sourceByID(id string) (Source, bool) {
	for _, s := range registry {
		if s.ID == id {
			return s, true
		}
	}
	return Source{}, false
}

// CategoryGroup is the list of sources offered for one category.
type CategoryGroup struct {
	Category string   `json:"category"`
	Sources  []Source `json:"sources"`
}

// SourcesByCategory groups the registry by category. Prioritised sources come
// first, then the rest of the category in enumeration order. Sources of the
// catch-all category are offered in every other category too.
func SourcesByCategory() []CategoryGroup {
	groups := make([]CategoryGroup, 0, len(Categories))
	for _, category := range Categories {
		var ids []string
		add := func(id string) {
			if !slices.Contains(ids, id) {
				ids = append(ids, id)
			}
		}

		for _, id := range categoryOrder[category] {
			add(id)
		}
		for _, s := range registry {
			if s.Category == category {
				add(s.ID)
			}
		}
		if category != CategoryAll {
			for _, s := range registry {
				if s.Category == CategoryAll {
					add(s.ID)
				}
			}
		}

		group := CategoryGroup{Category: category}
		for _, id := range ids {
			if s, ok := sourceByID(id); ok {
				group.Sources = append(group.Sources, s.clone())
			}
		}
		groups = append(groups, group)
	}
	return groups
}

// SourcesInCategory returns the offered list for a single category.
func SourcesInCategory(category string) ([]Source, bool) {
	for _, g := range SourcesByCategory() {
		if g.Category == category {
			return g.Sources, true
		}
	}
	return nil, false
}
