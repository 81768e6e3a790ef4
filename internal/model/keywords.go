package model

import (
	"crypto/sha1" //nolint:gosec // content key, not a security boundary
	"encoding/hex"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var lower = cases.Lower(language.Und)

// NormalizeKeyword folds a keyword to its cache form: NFKC, trimmed, lower-cased.
// Full-width letters and digits fold to their ASCII forms.
func NormalizeKeyword(kw string) string {
	return lower.String(strings.TrimSpace(norm.NFKC.String(kw)))
}

// NormalizeKeywords normalizes, drops empties and dedupes, keeping first-seen order.
func NormalizeKeywords(keywords []string) []string {
	seen := make(map[string]bool, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		n := NormalizeKeyword(kw)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// ParseKeywordList splits free text on commas, semicolons (ASCII and full-width)
// and whitespace.
func ParseKeywordList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		switch r {
		case ',', '，', ';', '；', '、':
			return true
		}
		return unicode.IsSpace(r)
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// KeywordSetHash returns the SHA-1 hex digest of city and the normalized, sorted
// keyword set. Input order, case and surrounding whitespace do not change it.
func KeywordSetHash(city string, keywords []string) string {
	set := NormalizeKeywords(keywords)
	slices.Sort(set)

	h := sha1.New() //nolint:gosec
	h.Write([]byte(strings.TrimSpace(city)))
	for _, kw := range set {
		h.Write([]byte{'|'})
		h.Write([]byte(kw))
	}
	return hex.EncodeToString(h.Sum(nil))
}
