package metadata

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/felipemarinho97/torrent-aggregator/cache"
	"github.com/felipemarinho97/torrent-aggregator/logging"
	"github.com/felipemarinho97/torrent-aggregator/requester"
	"github.com/hbollon/go-edlib"
)

const (
	DefaultTMDBURL  = "https://api.themoviedb.org/3"
	tmdbSiteURL     = "https://www.themoviedb.org"
	tmdbImageURL    = "https://image.tmdb.org/t/p"
	tmdbCacheTTL    = time.Hour
	tmdbTopCredits  = 5
	tmdbLanguage    = "en-US"
	noDescription   = "No description available"
	unknownLanguage = "unknown"
)

var (
	ErrTMDBDisabled = errors.New("tmdb: no api key configured")
	ErrTMDBNotFound = errors.New("tmdb: no matching show")

	tmdbURLRegex = regexp.MustCompile(`/tv/(\d+)`)
)

type TVResult struct {
	ID               int     `json:"id"`
	Name             string  `json:"name"`
	OriginalName     string  `json:"original_name"`
	Overview         string  `json:"overview"`
	FirstAirDate     string  `json:"first_air_date"`
	OriginalLanguage string  `json:"original_language"`
	PosterPath       string  `json:"poster_path"`
	BackdropPath     string  `json:"backdrop_path"`
	VoteAverage      float64 `json:"vote_average"`
}

type named struct {
	Name string `json:"name"`
}

type TVDetails struct {
	ID              int     `json:"id"`
	Name            string  `json:"name"`
	Overview        string  `json:"overview"`
	FirstAirDate    string  `json:"first_air_date"`
	Status          string  `json:"status"`
	VoteAverage     float64 `json:"vote_average"`
	EpisodeRunTime  []int   `json:"episode_run_time"`
	NumberOfSeasons int     `json:"number_of_seasons"`
	Genres          []named `json:"genres"`
	Networks        []named `json:"networks"`
	Credits         struct {
		Cast []struct {
			Name      string `json:"name"`
			Character string `json:"character"`
		} `json:"cast"`
		Crew []struct {
			Name string `json:"name"`
			Job  string `json:"job"`
		} `json:"crew"`
	} `json:"credits"`
	Videos struct {
		Results []struct {
			Key  string `json:"key"`
			Site string `json:"site"`
			Type string `json:"type"`
		} `json:"results"`
	} `json:"videos"`
	ExternalIDs struct {
		IMDBID string `json:"imdb_id"`
	} `json:"external_ids"`
}

type Credit struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// TMDBInfo is the record exposed through the metadata manager.
type TMDBInfo struct {
	Overview        string   `json:"overview"`
	FirstAirDate    string   `json:"first_air_date"`
	VoteAverage     float64  `json:"vote_average"`
	Genres          []string `json:"genres"`
	EpisodeRuntime  int      `json:"episode_runtime"`
	NumberOfSeasons int      `json:"number_of_seasons"`
	Status          string   `json:"status"`
	Cast            []Credit `json:"cast"`
	Crew            []Credit `json:"crew"`
	Networks        []string `json:"networks"`
}

// ShowInfo holds the catalog fields copied onto every result of a show.
type ShowInfo struct {
	PosterURL               string
	Rating                  float64
	Genres                  []string
	Description             string
	Year                    int
	Language                string
	Runtime                 int
	IMDBCode                string
	Cast                    []string
	YTTrailerCode           string
	BackgroundImageOriginal string
}

// FallbackShowInfo is used when a show cannot be found on TMDB.
func FallbackShowInfo() ShowInfo {
	return ShowInfo{
		Genres:      []string{},
		Description: noDescription,
		Language:    unknownLanguage,
		Cast:        []string{},
	}
}

type TMDB struct {
	apiKey  string
	baseURL string
	req     *requester.Requester
	cache   cache.Cache
}

func NewTMDB(apiKey, baseURL string, req *requester.Requester) *TMDB {
	if baseURL == "" {
		baseURL = DefaultTMDBURL
	}
	return &TMDB{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		req:     req,
		cache:   cache.NewMemory(tmdbCacheTTL, cache.WithMetrics(nil, "tmdb")),
	}
}

func (t *TMDB) Enabled() bool {
	return t != nil && t.apiKey != ""
}

func (t *TMDB) Name() string { return NameTMDB }

func (t *TMDB) Empty() any {
	return TMDBInfo{
		Genres:   []string{},
		Cast:     []Credit{},
		Crew:     []Credit{},
		Networks: []string{},
	}
}

func hashKey(prefix, s string) string {
	sum := sha1.Sum([]byte(s))
	return prefix + hex.EncodeToString(sum[:])
}

func (t *TMDB) get(ctx context.Context, path string, params map[string]string, out any) error {
	if !t.Enabled() {
		return ErrTMDBDisabled
	}
	params["api_key"] = t.apiKey
	params["language"] = tmdbLanguage

	resp, err := t.req.NewSession().Get(ctx, t.baseURL+path, params)
	if err != nil {
		return fmt.Errorf("tmdb request %s: %w", path, err)
	}
	if err := resp.JSON(out); err != nil {
		return fmt.Errorf("failed to decode tmdb response: %w", err)
	}
	return nil
}

// SearchTV returns the result of /search/tv closest to title.
func (t *TMDB) SearchTV(ctx context.Context, title string) (*TVResult, error) {
	key := hashKey("search-", strings.ToLower(title))
	if hit, ok := cache.GetJSON[TVResult](ctx, t.cache, key); ok {
		return &hit, nil
	}

	var page struct {
		Results []TVResult `json:"results"`
	}
	if err := t.get(ctx, "/search/tv", map[string]string{"query": title}, &page); err != nil {
		return nil, err
	}
	if len(page.Results) == 0 {
		return nil, ErrTMDBNotFound
	}

	best := bestMatch(title, page.Results)
	cache.SetJSON(ctx, t.cache, key, best)
	return &best, nil
}

func bestMatch(title string, results []TVResult) TVResult {
	q := strings.ToLower(title)
	best, bestScore := results[0], float32(-1)
	for _, r := range results {
		score := max(
			edlib.JaccardSimilarity(q, strings.ToLower(r.Name), 2),
			edlib.JaccardSimilarity(q, strings.ToLower(r.OriginalName), 2),
		)
		if score > bestScore {
			best, bestScore = r, score
		}
	}
	return best
}

// TVDetails fetches /tv/{id} with credits, videos and external ids appended.
func (t *TMDB) TVDetails(ctx context.Context, id int) (*TVDetails, error) {
	key := hashKey("details-", strconv.Itoa(id))
	if hit, ok := cache.GetJSON[TVDetails](ctx, t.cache, key); ok {
		return &hit, nil
	}

	var details TVDetails
	params := map[string]string{"append_to_response": "credits,videos,external_ids"}
	if err := t.get(ctx, fmt.Sprintf("/tv/%d", id), params, &details); err != nil {
		return nil, err
	}
	cache.SetJSON(ctx, t.cache, key, details)
	return &details, nil
}

func (t *TMDB) ResolveURL(ctx context.Context, title string, _ int) (string, error) {
	show, err := t.SearchTV(ctx, cleanShowName(title))
	if errors.Is(err, ErrTMDBNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/tv/%d", tmdbSiteURL, show.ID), nil
}

func (t *TMDB) FetchInfo(ctx context.Context, url string) (any, error) {
	m := tmdbURLRegex.FindStringSubmatch(url)
	if m == nil {
		return nil, fmt.Errorf("not a tmdb show url: %s", url)
	}
	id, _ := strconv.Atoi(m[1])

	details, err := t.TVDetails(ctx, id)
	if err != nil {
		return nil, err
	}

	info := t.Empty().(TMDBInfo)
	info.Overview = details.Overview
	info.FirstAirDate = details.FirstAirDate
	info.VoteAverage = details.VoteAverage
	info.NumberOfSeasons = details.NumberOfSeasons
	info.Status = details.Status
	if len(details.EpisodeRunTime) > 0 {
		info.EpisodeRuntime = details.EpisodeRunTime[0]
	}
	for _, g := range details.Genres {
		info.Genres = append(info.Genres, g.Name)
	}
	for _, n := range details.Networks {
		info.Networks = append(info.Networks, n.Name)
	}
	for i, c := range details.Credits.Cast {
		if i == tmdbTopCredits {
			break
		}
		info.Cast = append(info.Cast, Credit{Name: c.Name, Role: c.Character})
	}
	for i, c := range details.Credits.Crew {
		if i == tmdbTopCredits {
			break
		}
		info.Crew = append(info.Crew, Credit{Name: c.Name, Role: c.Job})
	}
	return info, nil
}

// ShowInfo looks name up and flattens the best match into catalog fields.
// Any failure yields FallbackShowInfo.
func (t *TMDB) ShowInfo(ctx context.Context, name string) ShowInfo {
	if !t.Enabled() {
		return FallbackShowInfo()
	}

	show, err := t.SearchTV(ctx, cleanShowName(name))
	if err != nil {
		logging.Debug().Err(err).Str("show", name).Msg("TMDB lookup failed, using fallback")
		return FallbackShowInfo()
	}

	info := FallbackShowInfo()
	if show.PosterPath != "" {
		info.PosterURL = tmdbImageURL + "/w500" + show.PosterPath
	}
	if show.BackdropPath != "" {
		info.BackgroundImageOriginal = tmdbImageURL + "/original" + show.BackdropPath
	}
	info.Rating = show.VoteAverage
	if show.Overview != "" {
		info.Description = show.Overview
	}
	if show.OriginalLanguage != "" {
		info.Language = show.OriginalLanguage
	}
	if len(show.FirstAirDate) >= 4 {
		info.Year, _ = strconv.Atoi(show.FirstAirDate[:4])
	}

	details, err := t.TVDetails(ctx, show.ID)
	if err != nil {
		logging.Debug().Err(err).Int("tmdb_id", show.ID).Msg("TMDB details failed")
		return info
	}
	for _, g := range details.Genres {
		info.Genres = append(info.Genres, g.Name)
	}
	if len(details.EpisodeRunTime) > 0 {
		info.Runtime = details.EpisodeRunTime[0]
	}
	info.IMDBCode = details.ExternalIDs.IMDBID
	for i, c := range details.Credits.Cast {
		if i == tmdbTopCredits {
			break
		}
		info.Cast = append(info.Cast, c.Name)
	}
	for _, v := range details.Videos.Results {
		if v.Type == "Trailer" {
			info.YTTrailerCode = v.Key
			break
		}
	}
	return info
}

// cleanShowName drops parentheticals and season markers before a lookup.
func cleanShowName(name string) string {
	s := parentheticalRegex.ReplaceAllString(name, "")
	s = seasonTailRegex.ReplaceAllString(strings.TrimSpace(s), "")
	return strings.TrimSpace(s)
}
