package schema

import (
	"fmt"

	"golang.org/x/text/cases"
)

// Torrent is a single downloadable release of a Movie.
type Torrent struct {
	Quality      string `json:"quality"`
	Type         string `json:"type"`
	URL          string `json:"url"`
	Size         string `json:"size"`
	Seeds        int    `json:"seeds"`
	Peers        int    `json:"peers"`
	DateUploaded string `json:"date_uploaded"`
	VideoCodec   string `json:"video_codec"`
}

// MetadataResult is what one metadata source produced for a Movie.
// Info holds the source's own record and is opaque to the search core.
type MetadataResult struct {
	URL   string `json:"url,omitempty"`
	Info  any    `json:"info,omitempty"`
	Error string `json:"error,omitempty"`
}

// Movie is the unit of a search result. Values are never mutated after
// construction; use the With* methods to derive new ones.
type Movie struct {
	Title                   string                    `json:"title"`
	Torrents                []Torrent                 `json:"torrents"`
	PosterURL               string                    `json:"large_cover_image"`
	Rating                  float64                   `json:"rating"`
	Genres                  []string                  `json:"genres"`
	DescriptionFull         string                    `json:"description_full"`
	Year                    int                       `json:"year"`
	Language                string                    `json:"language"`
	Runtime                 int                       `json:"runtime"`
	IMDBCode                string                    `json:"imdb_code"`
	Cast                    []string                  `json:"cast"`
	DownloadCount           int                       `json:"download_count"`
	YTTrailerCode           string                    `json:"yt_trailer_code"`
	BackgroundImageOriginal string                    `json:"background_image_original"`
	Metadata                map[string]MetadataResult `json:"metadata,omitempty"`
}

var folder = cases.Fold()

// DedupKey identifies the same logical title across sources.
func (m Movie) DedupKey() string {
	return fmt.Sprintf("%s|%d", folder.String(m.Title), m.Year)
}

// MaxSeeds returns the best seed count among the torrents, 0 when there are none.
func (m Movie) MaxSeeds() int {
	best := 0
	for _, t := range m.Torrents {
		if t.Seeds > best {
			best = t.Seeds
		}
	}
	return best
}

// WithMetadata returns a copy of m carrying the given metadata.
func (m Movie) WithMetadata(metadata map[string]MetadataResult) Movie {
	out := m
	out.Metadata = make(map[string]MetadataResult, len(metadata))
	for k, v := range metadata {
		out.Metadata[k] = v
	}
	return out
}

// WithTorrents returns a copy of m whose torrent list is m.Torrents followed
// by extra. The returned slice never shares storage with m.
func (m Movie) WithTorrents(extra ...Torrent) Movie {
	out := m
	out.Torrents = make([]Torrent, 0, len(m.Torrents)+len(extra))
	out.Torrents = append(out.Torrents, m.Torrents...)
	out.Torrents = append(out.Torrents, extra...)
	return out
}
