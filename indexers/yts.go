package indexers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/felipemarinho97/torrent-aggregator/logging"
	"github.com/felipemarinho97/torrent-aggregator/requester"
	"github.com/felipemarinho97/torrent-aggregator/schema"
)

type ytsTorrent struct {
	URL          string `json:"url"`
	Hash         string `json:"hash"`
	Quality      string `json:"quality"`
	Type         string `json:"type"`
	VideoCodec   string `json:"video_codec"`
	Size         string `json:"size"`
	Seeds        int    `json:"seeds"`
	Peers        int    `json:"peers"`
	DateUploaded string `json:"date_uploaded"`
}

type ytsMovie struct {
	Title                   string       `json:"title"`
	Year                    int          `json:"year"`
	Rating                  float64      `json:"rating"`
	Runtime                 int          `json:"runtime"`
	Genres                  []string     `json:"genres"`
	DescriptionFull         string       `json:"description_full"`
	Language                string       `json:"language"`
	LargeCoverImage         string       `json:"large_cover_image"`
	BackgroundImageOriginal string       `json:"background_image_original"`
	IMDBCode                string       `json:"imdb_code"`
	YTTrailerCode           string       `json:"yt_trailer_code"`
	DownloadCount           int          `json:"download_count"`
	Cast                    []ytsCast    `json:"cast"`
	Torrents                []ytsTorrent `json:"torrents"`
}

type ytsCast struct {
	Name string `json:"name"`
}

type ytsResponse struct {
	Status        string `json:"status"`
	StatusMessage string `json:"status_message"`
	Data          struct {
		MovieCount int        `json:"movie_count"`
		Movies     []ytsMovie `json:"movies"`
	} `json:"data"`
}

// YTS queries the YTS list_movies JSON API.
type YTS struct {
	source schema.Source
	req    *requester.Requester
	now    func() time.Time
}

func NewYTS(req *requester.Requester, apiURL string) *YTS {
	source := schema.YTS
	if apiURL != "" {
		source.APIURL = apiURL
	}
	return &YTS{source: source, req: req, now: time.Now}
}

func (y *YTS) Source() schema.Source { return y.source }

func (y *YTS) Search(ctx context.Context, query string, limit int) ([]schema.Movie, error) {
	params := make(map[string]string, len(y.source.Params)+2)
	for k, v := range y.source.Params {
		params[k] = v
	}
	params["query_term"] = query
	params["limit"] = strconv.Itoa(limit)

	logging.Debug().Str("query", query).Str("url", y.source.APIURL).Msg("Searching YTS")
	resp, err := y.req.NewSession().Get(ctx, y.source.APIURL, params)
	if err != nil {
		return nil, classify(y.source.Name, err)
	}

	var body ytsResponse
	if err := resp.JSON(&body); err != nil {
		return nil, schema.NewAPIError(y.source.Name, "malformed response", err)
	}
	if body.Status != "" && body.Status != "ok" {
		return nil, schema.NewAPIError(y.source.Name, "api returned an error", errors.New(body.StatusMessage))
	}

	movies := make([]schema.Movie, 0, len(body.Data.Movies))
	for _, m := range body.Data.Movies {
		movies = append(movies, y.toMovie(m))
	}
	return movies, nil
}

func (y *YTS) toMovie(m ytsMovie) schema.Movie {
	torrents := make([]schema.Torrent, 0, len(m.Torrents))
	for _, t := range m.Torrents {
		torrents = append(torrents, schema.Torrent{
			Quality:      t.Quality,
			Type:         orDefault(t.Type, unknown),
			URL:          t.URL,
			Size:         t.Size,
			Seeds:        t.Seeds,
			Peers:        t.Peers,
			DateUploaded: normalizeDate(t.DateUploaded, y.now()),
			VideoCodec:   orDefault(t.VideoCodec, unknown),
		})
	}

	cast := make([]string, 0, len(m.Cast))
	for _, c := range m.Cast {
		cast = append(cast, c.Name)
	}
	genres := m.Genres
	if genres == nil {
		genres = []string{}
	}

	return schema.Movie{
		Title:                   m.Title,
		Torrents:                torrents,
		PosterURL:               m.LargeCoverImage,
		Rating:                  m.Rating,
		Genres:                  genres,
		DescriptionFull:         orDefault(m.DescriptionFull, noDescription),
		Year:                    m.Year,
		Language:                orDefault(m.Language, "N/A"),
		Runtime:                 m.Runtime,
		IMDBCode:                m.IMDBCode,
		Cast:                    cast,
		DownloadCount:           m.DownloadCount,
		YTTrailerCode:           m.YTTrailerCode,
		BackgroundImageOriginal: m.BackgroundImageOriginal,
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
