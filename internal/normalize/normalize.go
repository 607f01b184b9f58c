// Package normalize prepares issue and comment text for classification.
package normalize

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// MaxContentLength bounds normalized content, in characters.
	MaxContentLength = 5000

	FeatureRequestMarker = "### Describe the feature"
	ReproductionMarker   = "### Reproduction"
	LogsMarker           = "### Logs"

	starterLink = "https://stackblitz.com/github/nuxt/starter"
)

var (
	htmlComment  = regexp.MustCompile(`(?s)<!--.*?-->`)
	languageCode = regexp.MustCompile(`^[a-z]{2}$`)
)

// Content strips template noise from txt and bounds its length.
//
// Steps run in an order that makes Content idempotent: combining marks are
// dropped first, then the starter link (until none is left), then HTML
// comments (each replaced with a space so removal never joins new markers).
// When a template marker is present only that section is kept.
func Content(txt string) string {
	text := stripDiacritics(txt)
	for strings.Contains(text, starterLink) {
		text = strings.ReplaceAll(text, starterLink, "")
	}
	text = htmlComment.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)

	text = templateSection(text)

	return strings.TrimSpace(truncate(text, MaxContentLength))
}

func templateSection(text string) string {
	if start := strings.Index(text, FeatureRequestMarker); start != -1 {
		return strings.TrimSpace(text[start:])
	}

	start := strings.Index(text, ReproductionMarker)
	if start == -1 {
		return text
	}
	section := text[start:]
	if end := strings.Index(section[len(ReproductionMarker):], LogsMarker); end != -1 {
		section = section[:len(ReproductionMarker)+end]
	}
	return strings.TrimSpace(section)
}

// stripDiacritics decomposes text (NFD) and drops the combining diacritical
// marks block, so "café" and "cafe" compare equal.
func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.Predicate(isCombiningDiacritic)))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func isCombiningDiacritic(r rune) bool {
	return r >= 0x0300 && r <= 0x036F
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// Language reduces a classifier language tag to a lower-case ISO 639-1 code.
// Region suffixes are dropped ("pt-BR" becomes "pt"); anything else falls back to "en".
func Language(lang string) string {
	if lang == "" {
		return "en"
	}
	code, _, _ := strings.Cut(strings.ToLower(lang), "-")
	if !languageCode.MatchString(code) {
		return "en"
	}
	return code
}

// IsEnglish reports whether a normalized language code is English.
func IsEnglish(lang string) bool {
	return Language(lang) == "en"
}
