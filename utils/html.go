package utils

import (
	"encoding/json"
	"regexp"
)

const SpoofedUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var (
	doctypeRegex  = regexp.MustCompile(`(?i)<!doctype\s+html`)
	htmlPairRegex = regexp.MustCompile(`(?is)<html[\s>].*</html\s*>`)
	bodyPairRegex = regexp.MustCompile(`(?is)<body[\s>].*</body\s*>`)
)

// IsValidHTML reports whether s looks like a full HTML document rather than a
// fragment, an error blob or a truncated response.
func IsValidHTML(s string) bool {
	if s == "" {
		return false
	}
	return doctypeRegex.MatchString(s) || htmlPairRegex.MatchString(s) || bodyPairRegex.MatchString(s)
}

// IsCacheable reports whether a response body is worth keeping: a complete
// HTML page or a JSON document.
func IsCacheable(body []byte) bool {
	if len(body) == 0 {
		return false
	}
	return json.Valid(body) || IsValidHTML(string(body))
}
