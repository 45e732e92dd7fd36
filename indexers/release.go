package indexers

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/felipemarinho97/torrent-aggregator/utils"
)

// Release is the structured form of a TV release name. Episode is 0 for
// season packs.
type Release struct {
	Title   string
	Season  int
	Episode int
	Quality string
	Codec   string
}

type episodePattern struct {
	regex *regexp.Regexp
	// season used when the pattern only captures an episode
	season int
}

var episodePatterns = []episodePattern{
	{regex: regexp.MustCompile(`(?i)S(\d{1,2})E(\d{1,2})`)},
	{regex: regexp.MustCompile(`(?i)[.\s](\d{1,2})x(\d{1,2})[.\s]`)},
	{regex: regexp.MustCompile(`(?i)Season\s*(\d{1,2})\s*Episode\s*(\d{1,2})`)},
	{regex: regexp.MustCompile(`(?i)[.\s]E(\d{1,2})[.\s]`), season: 1},
}

var seasonPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Season\s*(\d{1,2})`),
	regexp.MustCompile(`(?i)S(\d{1,2})[.\s]*Complete`),
	regexp.MustCompile(`(?i)Complete[.\s]*S(\d{1,2})`),
}

var qualities = []string{"2160p", "1080p", "720p", "480p", "HDTV"}

var codecs = []struct{ tag, codec string }{
	{"x264", "x264"},
	{"x265", "x265"},
	{"HEVC", "HEVC"},
	{"XviD", "XviD"},
	{"H264", "H264"},
	{"H.264", "H264"},
}

var (
	parenYearRegex      = regexp.MustCompile(`\(\d{4}\)`)
	standaloneYearRegex = regexp.MustCompile(`\s\d{4}(\s|$)`)
	trailingSepRegex    = regexp.MustCompile(`[.\-\s]*$`)
)

// ParseRelease extracts show, season, episode, quality and codec from a
// release name like "The.Office.US.S02E01.720p.HDTV.x264". It reports false
// when no season marker is found or nothing is left for the title.
func ParseRelease(raw string) (Release, bool) {
	rel := Release{Quality: unknown, Codec: unknown}

	end := -1
	for _, p := range episodePatterns {
		m := p.regex.FindStringSubmatchIndex(raw)
		if m == nil {
			continue
		}
		if p.season != 0 {
			rel.Season = p.season
			rel.Episode, _ = strconv.Atoi(raw[m[2]:m[3]])
		} else {
			rel.Season, _ = strconv.Atoi(raw[m[2]:m[3]])
			rel.Episode, _ = strconv.Atoi(raw[m[4]:m[5]])
		}
		end = m[0]
		break
	}
	if end < 0 {
		for _, re := range seasonPatterns {
			m := re.FindStringSubmatchIndex(raw)
			if m == nil {
				continue
			}
			rel.Season, _ = strconv.Atoi(raw[m[2]:m[3]])
			end = m[0]
			break
		}
	}
	if end < 0 {
		return Release{}, false
	}

	rel.Title = cleanTitle(raw[:end])
	if rel.Title == "" {
		return Release{}, false
	}

	for _, q := range qualities {
		if strings.Contains(raw, q) {
			rel.Quality = q
			break
		}
	}
	for _, c := range codecs {
		if strings.Contains(raw, c.tag) {
			rel.Codec = c.codec
			break
		}
	}
	return rel, true
}

func cleanTitle(s string) string {
	s = utils.RemoveKnownWebsites(s)
	s = strings.ReplaceAll(s, ".", " ")
	s = parenYearRegex.ReplaceAllString(s, "")
	s = standaloneYearRegex.ReplaceAllString(s, " ")
	s = trailingSepRegex.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}
