package indexers

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const (
	dateLayout    = "2006-01-02"
	noDescription = "No description available"
	unknown       = "unknown"
)

type datePattern struct {
	regex  *regexp.Regexp
	layout string
}

var datePatterns = []datePattern{
	{regexp.MustCompile(`\d{4}-\d{2}-\d{2}`), "2006-01-02"},
	{regexp.MustCompile(`\d{2}/\d{2}/\d{4}`), "01/02/2006"},
	// 1337x listing dates: "Mar. 4th '24"
	{regexp.MustCompile(`[A-Z][a-z]{2}\. \d{1,2}'\d{2}`), "Jan. 2'06"},
}

var (
	ordinalSuffixRegex = regexp.MustCompile(`(\d)(st|nd|rd|th)\s*'`)
	clockRegex         = regexp.MustCompile(`(?i)^\d{1,2}(:\d{2})?\s*(am|pm)$`)
)

// normalizeDate turns the date formats seen on indexers into YYYY-MM-DD.
// Listings from today only show a time of day; those map to now. Anything
// unrecognised is returned trimmed.
func normalizeDate(raw string, now time.Time) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if clockRegex.MatchString(raw) {
		return now.Format(dateLayout)
	}

	s := ordinalSuffixRegex.ReplaceAllString(raw, "$1'")
	for _, p := range datePatterns {
		match := p.regex.FindString(s)
		if match == "" {
			continue
		}
		if date, err := time.Parse(p.layout, match); err == nil {
			return date.Format(dateLayout)
		}
	}
	return raw
}

func text(s *goquery.Selection) string {
	return strings.TrimSpace(s.Text())
}

// ownText returns the text nodes directly under s, ignoring child elements.
func ownText(s *goquery.Selection) string {
	var b strings.Builder
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		if n := c.Get(0); n != nil && n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
	})
	return strings.TrimSpace(b.String())
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
	if err != nil {
		return 0
	}
	return n
}
