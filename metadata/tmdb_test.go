package metadata

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tmdbSearchBody = `{"results":[
	{"id":1,"name":"The Office Hours","original_name":"The Office Hours","overview":"Talk show"},
	{"id":2316,"name":"The Office","original_name":"The Office","overview":"Mockumentary.","first_air_date":"2005-03-24","original_language":"en","poster_path":"/poster.jpg","backdrop_path":"/backdrop.jpg","vote_average":8.6}
]}`

const tmdbDetailsBody = `{
	"id":2316,"name":"The Office","overview":"Mockumentary.","first_air_date":"2005-03-24","status":"Ended",
	"vote_average":8.6,"episode_run_time":[22,30],"number_of_seasons":9,
	"genres":[{"name":"Comedy"}],"networks":[{"name":"NBC"}],
	"credits":{"cast":[{"name":"Steve Carell","character":"Michael Scott"},{"name":"a"},{"name":"b"},{"name":"c"},{"name":"d"},{"name":"e"}],
	           "crew":[{"name":"Greg Daniels","job":"Executive Producer"}]},
	"videos":{"results":[{"key":"teaser1","type":"Teaser"},{"key":"trailer1","type":"Trailer"}]},
	"external_ids":{"imdb_id":"tt0386676"}
}`

func newTMDBServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/search/tv", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "key", r.URL.Query().Get("api_key"))
		if r.URL.Query().Get("query") == "Nothing" {
			fmt.Fprint(w, `{"results":[]}`)
			return
		}
		fmt.Fprint(w, tmdbSearchBody)
	})
	mux.HandleFunc("/tv/2316", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "credits,videos,external_ids", r.URL.Query().Get("append_to_response"))
		fmt.Fprint(w, tmdbDetailsBody)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestTMDB_SearchTVPicksClosestName(t *testing.T) {
	srv, calls := newTMDBServer(t)
	tmdb := NewTMDB("key", srv.URL, newTestRequester())

	show, err := tmdb.SearchTV(context.Background(), "The Office")
	require.NoError(t, err)
	assert.Equal(t, 2316, show.ID)

	// served from the in-memory cache
	_, err = tmdb.SearchTV(context.Background(), "the office")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTMDB_NotFound(t *testing.T) {
	srv, _ := newTMDBServer(t)
	tmdb := NewTMDB("key", srv.URL, newTestRequester())

	_, err := tmdb.SearchTV(context.Background(), "Nothing")
	assert.ErrorIs(t, err, ErrTMDBNotFound)

	url, err := tmdb.ResolveURL(context.Background(), "Nothing", 0)
	require.NoError(t, err)
	assert.Empty(t, url)
}

func TestTMDB_ShowInfo(t *testing.T) {
	srv, _ := newTMDBServer(t)
	tmdb := NewTMDB("key", srv.URL, newTestRequester())

	info := tmdb.ShowInfo(context.Background(), "The Office (US) Season 2")
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/poster.jpg", info.PosterURL)
	assert.Equal(t, "https://image.tmdb.org/t/p/original/backdrop.jpg", info.BackgroundImageOriginal)
	assert.Equal(t, 8.6, info.Rating)
	assert.Equal(t, "Mockumentary.", info.Description)
	assert.Equal(t, 2005, info.Year)
	assert.Equal(t, "en", info.Language)
	assert.Equal(t, 22, info.Runtime)
	assert.Equal(t, "tt0386676", info.IMDBCode)
	assert.Equal(t, []string{"Comedy"}, info.Genres)
	assert.Equal(t, []string{"Steve Carell", "a", "b", "c", "d"}, info.Cast)
	assert.Equal(t, "trailer1", info.YTTrailerCode)
}

func TestTMDB_Disabled(t *testing.T) {
	tmdb := NewTMDB("", "", newTestRequester())
	assert.False(t, tmdb.Enabled())
	assert.Equal(t, FallbackShowInfo(), tmdb.ShowInfo(context.Background(), "The Office"))

	_, err := tmdb.ResolveURL(context.Background(), "The Office", 2005)
	assert.ErrorIs(t, err, ErrTMDBDisabled)
}

func TestTMDB_AsMetadataSource(t *testing.T) {
	srv, _ := newTMDBServer(t)
	tmdb := NewTMDB("key", srv.URL, newTestRequester())
	ctx := context.Background()

	url, err := tmdb.ResolveURL(ctx, "The Office", 2005)
	require.NoError(t, err)
	assert.Equal(t, "https://www.themoviedb.org/tv/2316", url)

	raw, err := tmdb.FetchInfo(ctx, url)
	require.NoError(t, err)
	info := raw.(TMDBInfo)
	assert.Equal(t, "Ended", info.Status)
	assert.Equal(t, 9, info.NumberOfSeasons)
	assert.Equal(t, 22, info.EpisodeRuntime)
	assert.Equal(t, []string{"NBC"}, info.Networks)
	assert.Len(t, info.Cast, 5)
	assert.Equal(t, Credit{Name: "Steve Carell", Role: "Michael Scott"}, info.Cast[0])
	assert.Equal(t, []Credit{{Name: "Greg Daniels", Role: "Executive Producer"}}, info.Crew)

	_, err = tmdb.FetchInfo(ctx, "https://example.com/movie/1")
	assert.Error(t, err)
}
