package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/felipemarinho97/torrent-aggregator/requester"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRequester() *requester.Requester {
	return requester.New(requester.Options{
		FastTimeout:  time.Second,
		SlowTimeout:  time.Second,
		ProbeTimeout: time.Second,
		Attempts:     1,
		BackoffBase:  time.Millisecond,
	}, nil)
}

// probeRecorder answers HEAD requests with 200 for the paths in ok and
// records every probed path.
type probeRecorder struct {
	mu     sync.Mutex
	ok     map[string]bool
	probed []string
}

func (p *probeRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead {
		p.mu.Lock()
		p.probed = append(p.probed, r.URL.Path)
		p.mu.Unlock()
	}
	if !p.ok[r.URL.Path] {
		w.WriteHeader(http.StatusNotFound)
	}
}

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestSlugs(t *testing.T) {
	tests := []struct {
		title      string
		hyphen     string
		underscore string
	}{
		{"Inception", "inception", "inception"},
		{"The Office Season 2 (Complete)", "the-office", "the_office_season_2_complete"},
		{"Breaking Bad S05E14", "breaking-bad", "breaking_bad_s05e14"},
		{"Blade Runner (Final Cut) 1982", "blade-runner", "blade_runner_final_cut_1982"},
		{"Mission: Impossible - Fallout", "mission-impossible-fallout", "mission_impossible_-_fallout"},
		{"Amélie", "amelie", "amelie"},
		{"Toy Story 2", "toy-story-2", "toy_story_2"},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.hyphen, hyphenSlug(tt.title))
			assert.Equal(t, tt.underscore, underscoreSlug(tt.title))
		})
	}
}

func TestMetacritic_ProbeOrder(t *testing.T) {
	rec := &probeRecorder{ok: map[string]bool{"/movie/inception-2010/": true, "/tv/inception-2010/": true}}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	mc := NewMetacritic(newTestRequester(), srv.URL)
	url, err := mc.ResolveURL(context.Background(), "Inception", 2010)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/movie/inception-2010/", url)
	assert.Equal(t, []string{"/movie/inception/", "/tv/inception/", "/movie/inception-2010/"}, rec.probed)
}

func TestMetacritic_NoCandidateResolves(t *testing.T) {
	rec := &probeRecorder{}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	url, err := NewMetacritic(newTestRequester(), srv.URL).ResolveURL(context.Background(), "Nothing Here", 1999)
	require.NoError(t, err)
	assert.Empty(t, url)
	assert.Len(t, rec.probed, 4)
}

const metacriticPage = `<html><body>
<h1> Inception </h1>
<span class="c-productDetails_description">A thief who steals corporate secrets.</span>
<div class="c-productDetails_staff_directors"><a>Christopher Nolan</a></div>
<div class="c-productDetails_staff_writers"><a>Christopher Nolan,</a><a>Jonathan Nolan</a></div>
<div class="c-globalPersonCard"><h3 class="c-globalPersonCard_name">Leonardo DiCaprio</h3><h4 class="c-globalPersonCard_role">Cobb</h4></div>
<div class="c-globalPersonCard"><h3 class="c-globalPersonCard_name">No Role</h3></div>
<div class="c-reviewsOverview_overviewDetails">
  <div class="c-siteReviewScore c-siteReviewScore_green"><span>74</span></div>
  <span class="c-ScoreCard_scoreSentiment">Generally Favorable</span>
</div>
<div class="c-reviewsSection_carouselContainer-user">
  <div class="c-siteReviewScore c-siteReviewScore_user"><span>tbd</span></div>
  <span class="c-ScoreCard_scoreSentiment">No user score yet</span>
</div>
<ul class="c-genreList"><li><span class="c-globalButton_label">Action</span></li><li><span class="c-globalButton_label">Sci-Fi</span></li></ul>
</body></html>`

func TestMetacritic_FetchInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, metacriticPage)
	}))
	defer srv.Close()

	raw, err := NewMetacritic(newTestRequester(), srv.URL).FetchInfo(context.Background(), srv.URL+"/movie/inception/")
	require.NoError(t, err)
	info := raw.(MetacriticInfo)

	assert.Equal(t, "Inception", info.Title)
	assert.Equal(t, "A thief who steals corporate secrets.", info.Description)
	assert.Equal(t, "Christopher Nolan", info.Director)
	assert.Empty(t, info.Directors)
	assert.Equal(t, []string{"Christopher Nolan", "Jonathan Nolan"}, info.Writers)
	assert.Equal(t, []CastMember{{Name: "Leonardo DiCaprio", Role: "Cobb"}}, info.Cast)
	assert.Equal(t, &Score{Score: "74", Sentiment: "Generally Favorable"}, info.Metascore)
	assert.Equal(t, &Score{Score: "tbd", Sentiment: "No user score yet"}, info.UserScore)
	assert.Equal(t, []string{"Action", "Sci-Fi"}, info.Genres)
}

func TestMetacritic_SeveralDirectors(t *testing.T) {
	doc := mustDoc(t, `<html><body><div class="c-productDetails_staff_directors"><a>Lana Wachowski</a><a>Lilly Wachowski</a></div></body></html>`)
	info := parseMetacritic(doc)
	assert.Empty(t, info.Director)
	assert.Equal(t, []string{"Lana Wachowski", "Lilly Wachowski"}, info.Directors)
	assert.Nil(t, info.Metascore)
}

const rottenPage = `<html><body>
<score-board tomatometerscore="87" audiencescore="91"></score-board>
<rt-text data-qa="critics-consensus">Smart and innovative.</rt-text>
<media-review-card-critic><rt-text data-qa="review-text">Dazzling.</rt-text><rt-text context="label">A. Critic</rt-text><rt-text slot="publicationName">The Paper</rt-text></media-review-card-critic>
<media-review-card-critic><rt-text data-qa="review-text">Missing author</rt-text></media-review-card-critic>
%s
<media-review-card-audience><rt-text data-qa="review-text">Loved it</rt-text><rt-link slot="displayName">viewer1</rt-link><rt-text slot="originalScore">5/5</rt-text><rt-text slot="createDate">Jan 1, 2024</rt-text></media-review-card-audience>
<rt-text data-qa="synopsis-value"> Dom Cobb is a thief. </rt-text>
<div class="category-wrap"><rt-text class="key">Director</rt-text><rt-link>Christopher Nolan</rt-link></div>
<div class="category-wrap"><rt-text class="key">Cast</rt-text><rt-link>Leonardo DiCaprio</rt-link><rt-link>Elliot Page</rt-link></div>
<div><rt-text>Genre:</rt-text> Sci-Fi, Action</div>
<div><rt-text>Runtime:</rt-text> 2h 28m</div>
</body></html>`

func TestRottenTomatoes_FetchInfo(t *testing.T) {
	var extra string
	for i := 0; i < 6; i++ {
		extra += fmt.Sprintf(`<media-review-card-critic><rt-text data-qa="review-text">r%d</rt-text><rt-text context="label">c%d</rt-text></media-review-card-critic>`, i, i)
	}
	doc := mustDoc(t, fmt.Sprintf(rottenPage, extra))
	info := parseRottenTomatoes(doc)

	assert.Equal(t, "87%", info.TomatometerScore)
	assert.Equal(t, "91%", info.PopcornmeterScore)
	assert.Equal(t, "Smart and innovative.", info.CriticsConsensus)
	require.Len(t, info.CriticReviews, 5)
	assert.Equal(t, CriticReview{Text: "Dazzling.", Critic: "A. Critic", Publication: "The Paper"}, info.CriticReviews[0])
	assert.Equal(t, "r3", info.CriticReviews[4].Text)
	assert.Equal(t, []AudienceReview{{Text: "Loved it", Reviewer: "viewer1", Rating: "5/5", Date: "Jan 1, 2024"}}, info.AudienceReviews)
	assert.Equal(t, "Dom Cobb is a thief.", info.Description)
	assert.Equal(t, []string{"Christopher Nolan"}, info.Director)
	assert.Equal(t, []string{"Leonardo DiCaprio", "Elliot Page"}, info.Cast)
	assert.Equal(t, []string{"Sci-Fi", "Action"}, info.Genre)
	assert.Equal(t, "2h 28m", info.Runtime)
	assert.Empty(t, info.Rating)
	assert.Equal(t, []string{}, info.Producer)
}

func TestRottenTomatoes_ProbeOrder(t *testing.T) {
	rec := &probeRecorder{ok: map[string]bool{"/tv/the_office": true}}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	url, err := NewRottenTomatoes(newTestRequester(), srv.URL).ResolveURL(context.Background(), "The Office", 2005)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/tv/the_office", url)
	assert.Equal(t, []string{"/m/the_office_2005", "/m/the_office", "/tv/the_office_2005", "/tv/the_office"}, rec.probed)
}

func TestEmptyRecordsKeepEveryKey(t *testing.T) {
	tests := []struct {
		source Source
		keys   []string
	}{
		{NewMetacritic(nil, ""), []string{"title", "description", "director", "directors", "writers", "cast", "metascore", "user_score", "genres"}},
		{NewRottenTomatoes(nil, ""), []string{"tomatometer_score", "popcornmeter_score", "critics_consensus", "critic_reviews", "audience_reviews", "rating", "genre", "description", "director", "producer", "screenwriter", "cast", "runtime", "release_date"}},
		{NewTMDB("", "", nil), []string{"overview", "first_air_date", "vote_average", "genres", "episode_runtime", "number_of_seasons", "status", "cast", "crew", "networks"}},
	}
	for _, tt := range tests {
		t.Run(tt.source.Name(), func(t *testing.T) {
			data, err := json.Marshal(tt.source.Empty())
			require.NoError(t, err)

			var got map[string]any
			require.NoError(t, json.Unmarshal(data, &got))
			assert.Len(t, got, len(tt.keys))
			for _, k := range tt.keys {
				assert.Contains(t, got, k)
			}
		})
	}
}
