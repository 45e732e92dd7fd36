package utils

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

var commonTLDs = []string{
	"com",
	"net",
	"org",
	"info",
	"co",
	"io",
	"xyz",
	"me",
	"tv",
	"cc",
	"mx",
	"lt",
	"re",
	"se",
	"to",
	"unblockit",
}

// Tags that indexers and uploaders stamp on release names.
var knownSiteTags = []string{
	"1337x",
	"1337xx",
	"eztv",
	"eztvx",
	"ettv",
	"rartv",
	"rarbg",
	"tgx",
	"torrentgalaxy",
	"yts",
	"yify",
	"limetorrents",
	"torlock",
	"torrentdownloads",
	"glodls",
	"oxtorrent",
	"thepiratebay",
}

var websitePatterns = []string{
	// [eztv] or (www.1337x.to) or {TGx}
	`[\[\(\{]\s*(?:www\.)?(?:%[1]s)(?:\.(?:%[2]s))?\s*[\]\)\}]`,
	// bare domains like www.torrentgalaxy.to
	`\b(?:www\.)?(?:%[1]s)\.(?:%[2]s)\b`,
}

var regexesOnce sync.Once
var regexes []*regexp.Regexp

func getRegexes() []*regexp.Regexp {
	regexesOnce.Do(func() {
		tags := make([]string, len(knownSiteTags))
		for i, t := range knownSiteTags {
			tags[i] = regexp.QuoteMeta(t)
		}
		names := strings.Join(tags, "|")
		tlds := strings.Join(commonTLDs, "|")

		for _, pattern := range websitePatterns {
			regexes = append(regexes, regexp.MustCompile("(?i)"+fmt.Sprintf(pattern, names, tlds)))
		}
	})
	return regexes
}

// RemoveKnownWebsites strips indexer tags and domains such as "[eztv]",
// "[TGx]" or "www.1337x.to" from a release name.
func RemoveKnownWebsites(title string) string {
	regexes := getRegexes()
	for _, re := range regexes {
		title = re.ReplaceAllString(title, "")
	}
	title = strings.TrimSpace(title)
	return title
}
