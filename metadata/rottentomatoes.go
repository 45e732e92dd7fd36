package metadata

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/felipemarinho97/torrent-aggregator/requester"
)

const (
	DefaultRottenTomatoesURL = "https://www.rottentomatoes.com"
	maxReviews               = 5
)

type CriticReview struct {
	Text        string `json:"text"`
	Critic      string `json:"critic"`
	Publication string `json:"publication"`
}

type AudienceReview struct {
	Text     string `json:"text"`
	Reviewer string `json:"reviewer"`
	Rating   string `json:"rating"`
	Date     string `json:"date"`
}

type RottenTomatoesInfo struct {
	TomatometerScore  string           `json:"tomatometer_score"`
	PopcornmeterScore string           `json:"popcornmeter_score"`
	CriticsConsensus  string           `json:"critics_consensus"`
	CriticReviews     []CriticReview   `json:"critic_reviews"`
	AudienceReviews   []AudienceReview `json:"audience_reviews"`
	Rating            string           `json:"rating"`
	Genre             []string         `json:"genre"`
	Description       string           `json:"description"`
	Director          []string         `json:"director"`
	Producer          []string         `json:"producer"`
	Screenwriter      []string         `json:"screenwriter"`
	Cast              []string         `json:"cast"`
	Runtime           string           `json:"runtime"`
	ReleaseDate       string           `json:"release_date"`
}

type RottenTomatoes struct {
	req     *requester.Requester
	baseURL string
}

func NewRottenTomatoes(req *requester.Requester, baseURL string) *RottenTomatoes {
	if baseURL == "" {
		baseURL = DefaultRottenTomatoesURL
	}
	return &RottenTomatoes{req: req, baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (rt *RottenTomatoes) Name() string { return NameRottenTomatoes }

func (rt *RottenTomatoes) Empty() any { return emptyRottenTomatoes() }

func emptyRottenTomatoes() RottenTomatoesInfo {
	return RottenTomatoesInfo{
		CriticReviews:   []CriticReview{},
		AudienceReviews: []AudienceReview{},
		Genre:           []string{},
		Director:        []string{},
		Producer:        []string{},
		Screenwriter:    []string{},
		Cast:            []string{},
	}
}

func (rt *RottenTomatoes) candidates(title string, year int) []string {
	slug := underscoreSlug(title)
	if slug == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("%s/m/%s_%d", rt.baseURL, slug, year),
		fmt.Sprintf("%s/m/%s", rt.baseURL, slug),
		fmt.Sprintf("%s/tv/%s_%d", rt.baseURL, slug, year),
		fmt.Sprintf("%s/tv/%s", rt.baseURL, slug),
	}
}

func (rt *RottenTomatoes) ResolveURL(ctx context.Context, title string, year int) (string, error) {
	return probeFirst(ctx, rt.req.NewSession(), rt.Name(), rt.candidates(title, year)), nil
}

func (rt *RottenTomatoes) FetchInfo(ctx context.Context, url string) (any, error) {
	resp, err := rt.req.NewSession().Get(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rotten tomatoes page: %w", err)
	}
	doc, err := resp.Document()
	if err != nil {
		return nil, fmt.Errorf("failed to parse rotten tomatoes page: %w", err)
	}
	return parseRottenTomatoes(doc), nil
}

// labelled fields rendered as "<rt-text>Label:</rt-text> value"
var rtLabels = []string{"Rating:", "Genre:", "Runtime:", "Release Date:"}

func parseRottenTomatoes(doc *goquery.Document) RottenTomatoesInfo {
	info := emptyRottenTomatoes()

	board := doc.Find("score-board").First()
	if v, ok := board.Attr("tomatometerscore"); ok && v != "" {
		info.TomatometerScore = v + "%"
	}
	if v, ok := board.Attr("audiencescore"); ok && v != "" {
		info.PopcornmeterScore = v + "%"
	}

	info.CriticsConsensus = text(doc.Find(`rt-text[data-qa="critics-consensus"]`).First())

	doc.Find("media-review-card-critic").EachWithBreak(func(_ int, card *goquery.Selection) bool {
		body := card.Find(`rt-text[data-qa="review-text"]`).First()
		critic := card.Find(`rt-text[context="label"]`).First()
		if body.Length() == 0 || critic.Length() == 0 {
			return true
		}
		info.CriticReviews = append(info.CriticReviews, CriticReview{
			Text:        text(body),
			Critic:      text(critic),
			Publication: text(card.Find(`rt-text[slot="publicationName"]`).First()),
		})
		return len(info.CriticReviews) < maxReviews
	})

	doc.Find("media-review-card-audience").EachWithBreak(func(_ int, card *goquery.Selection) bool {
		body := card.Find(`rt-text[data-qa="review-text"]`).First()
		reviewer := card.Find(`rt-link[slot="displayName"]`).First()
		if body.Length() == 0 || reviewer.Length() == 0 {
			return true
		}
		info.AudienceReviews = append(info.AudienceReviews, AudienceReview{
			Text:     text(body),
			Reviewer: text(reviewer),
			Rating:   text(card.Find(`rt-text[slot="originalScore"]`).First()),
			Date:     text(card.Find(`rt-text[slot="createDate"]`).First()),
		})
		return len(info.AudienceReviews) < maxReviews
	})

	info.Description = text(doc.Find(`rt-text[data-qa="synopsis-value"]`).First())

	doc.Find("div.category-wrap").Each(func(_ int, item *goquery.Selection) {
		label := item.Find("rt-text.key").First()
		if label.Length() == 0 {
			return
		}
		values := texts(item.Find("rt-link"))
		switch strings.ToLower(text(label)) {
		case "director":
			info.Director = values
		case "producer":
			info.Producer = values
		case "screenwriter":
			info.Screenwriter = values
		case "cast":
			info.Cast = values
		}
	})

	for _, label := range rtLabels {
		value, ok := labelledValue(doc, label)
		if !ok {
			continue
		}
		switch label {
		case "Rating:":
			info.Rating = value
		case "Genre:":
			for _, g := range strings.Split(value, ",") {
				if g = strings.TrimSpace(g); g != "" {
					info.Genre = append(info.Genre, g)
				}
			}
		case "Runtime:":
			info.Runtime = value
		case "Release Date:":
			info.ReleaseDate = value
		}
	}

	return info
}

// labelledValue finds the rt-text holding label and returns its parent's text
// without the label.
func labelledValue(doc *goquery.Document, label string) (string, bool) {
	elem := doc.Find("rt-text").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(s.Text(), label)
	}).First()
	if elem.Length() == 0 {
		return "", false
	}
	return strings.TrimSpace(strings.Replace(elem.Parent().Text(), label, "", 1)), true
}
