package metadata

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/felipemarinho97/torrent-aggregator/requester"
)

const DefaultMetacriticURL = "https://www.metacritic.com"

type Score struct {
	Score     string `json:"score"`
	Sentiment string `json:"sentiment"`
}

type CastMember struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// MetacriticInfo mirrors a Metacritic product page. User scores keep the
// site's "tbd" marker as is.
type MetacriticInfo struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Director    string       `json:"director"`
	Directors   []string     `json:"directors"`
	Writers     []string     `json:"writers"`
	Cast        []CastMember `json:"cast"`
	Metascore   *Score       `json:"metascore"`
	UserScore   *Score       `json:"user_score"`
	Genres      []string     `json:"genres"`
}

type Metacritic struct {
	req     *requester.Requester
	baseURL string
}

func NewMetacritic(req *requester.Requester, baseURL string) *Metacritic {
	if baseURL == "" {
		baseURL = DefaultMetacriticURL
	}
	return &Metacritic{req: req, baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (m *Metacritic) Name() string { return NameMetacritic }

func (m *Metacritic) Empty() any { return emptyMetacritic() }

func emptyMetacritic() MetacriticInfo {
	return MetacriticInfo{
		Directors: []string{},
		Writers:   []string{},
		Cast:      []CastMember{},
		Genres:    []string{},
	}
}

func (m *Metacritic) candidates(title string, year int) []string {
	slug := hyphenSlug(title)
	if slug == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("%s/movie/%s/", m.baseURL, slug),
		fmt.Sprintf("%s/tv/%s/", m.baseURL, slug),
		fmt.Sprintf("%s/movie/%s-%d/", m.baseURL, slug, year),
		fmt.Sprintf("%s/tv/%s-%d/", m.baseURL, slug, year),
	}
}

func (m *Metacritic) ResolveURL(ctx context.Context, title string, year int) (string, error) {
	return probeFirst(ctx, m.req.NewSession(), m.Name(), m.candidates(title, year)), nil
}

func (m *Metacritic) FetchInfo(ctx context.Context, url string) (any, error) {
	resp, err := m.req.NewSession().Get(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metacritic page: %w", err)
	}
	doc, err := resp.Document()
	if err != nil {
		return nil, fmt.Errorf("failed to parse metacritic page: %w", err)
	}
	return parseMetacritic(doc), nil
}

func parseMetacritic(doc *goquery.Document) MetacriticInfo {
	info := emptyMetacritic()

	info.Title = text(doc.Find("h1").First())
	info.Description = text(doc.Find("span.c-productDetails_description").First())

	directors := texts(doc.Find("div.c-productDetails_staff_directors a"))
	switch len(directors) {
	case 0:
	case 1:
		info.Director = directors[0]
	default:
		info.Directors = directors
	}

	doc.Find("div.c-productDetails_staff_writers a").Each(func(_ int, s *goquery.Selection) {
		info.Writers = append(info.Writers, strings.TrimRight(text(s), ","))
	})

	doc.Find("div.c-globalPersonCard").Each(func(_ int, card *goquery.Selection) {
		name := card.Find("h3.c-globalPersonCard_name").First()
		role := card.Find("h4.c-globalPersonCard_role").First()
		if name.Length() == 0 || role.Length() == 0 {
			return
		}
		info.Cast = append(info.Cast, CastMember{Name: text(name), Role: text(role)})
	})

	overview := doc.Find("div.c-reviewsOverview_overviewDetails").First()
	info.Metascore = score(overview,
		"div.c-siteReviewScore_green, div.c-siteReviewScore_yellow, div.c-siteReviewScore_red")

	users := doc.Find("div.c-reviewsSection_carouselContainer-user").First()
	info.UserScore = score(users, "div.c-siteReviewScore_user")

	info.Genres = append(info.Genres, texts(doc.Find("ul.c-genreList span.c-globalButton_label"))...)

	return info
}

// score reads a score badge and its sentiment label inside section.
func score(section *goquery.Selection, badge string) *Score {
	if section.Length() == 0 {
		return nil
	}
	value := section.Find(badge).First().Find("span").First()
	sentiment := section.Find("span.c-ScoreCard_scoreSentiment").First()
	if value.Length() == 0 || sentiment.Length() == 0 {
		return nil
	}
	return &Score{Score: text(value), Sentiment: text(sentiment)}
}

func text(s *goquery.Selection) string {
	return strings.TrimSpace(s.Text())
}

func texts(s *goquery.Selection) []string {
	out := []string{}
	s.Each(func(_ int, item *goquery.Selection) {
		out = append(out, text(item))
	})
	return out
}
