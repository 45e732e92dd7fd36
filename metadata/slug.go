package metadata

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	seasonTailRegex    = regexp.MustCompile(`(?i)\b(Season|S)\s*\d+.*$`)
	parentheticalRegex = regexp.MustCompile(`\([^)]*\)`)
	trailingYearRegex  = regexp.MustCompile(`\s+\d{4}$`)
	nonSlugRegex       = regexp.MustCompile(`[^a-z0-9_\s-]`)
	spacesRegex        = regexp.MustCompile(`\s+`)
	hyphensRegex       = regexp.MustCompile(`-{2,}`)
)

// fold lowercases s and strips diacritics, so "Amélie" becomes "amelie".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// hyphenSlug builds "the-office" style slugs.
func hyphenSlug(title string) string {
	s := seasonTailRegex.ReplaceAllString(title, "")
	s = parentheticalRegex.ReplaceAllString(s, "")
	s = trailingYearRegex.ReplaceAllString(strings.TrimSpace(s), "")
	s = nonSlugRegex.ReplaceAllString(fold(s), "")
	s = spacesRegex.ReplaceAllString(strings.TrimSpace(s), "-")
	return strings.Trim(hyphensRegex.ReplaceAllString(s, "-"), "-")
}

// underscoreSlug builds "the_office" style slugs.
func underscoreSlug(title string) string {
	s := nonSlugRegex.ReplaceAllString(fold(title), "")
	return spacesRegex.ReplaceAllString(strings.TrimSpace(s), "_")
}
