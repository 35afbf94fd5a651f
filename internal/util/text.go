package util

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	whitespace   = regexp.MustCompile(`\s+`)
	linkPattern  = regexp.MustCompile(`https?://|www\.|\.[a-z]{2,}`)
	urlPattern   = regexp.MustCompile(`https?://\S+`)
	mentionOrTag = regexp.MustCompile(`[@#]\w+`)
	nonHandle    = regexp.MustCompile(`[^a-z0-9_]`)
)

// NormalizeWhitespace trims and collapses whitespace to single spaces.
func NormalizeWhitespace(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// Fold lower-cases s and strips combining marks, so "Gdańsk" and "gdansk" compare equal.
func Fold(s string) string {
	// transformers carry state; build one per call
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// ContainsAnyCaseInsensitive returns true if text contains any of the needles (case-insensitive).
func ContainsAnyCaseInsensitive(text string, needles []string) bool {
	lt := Fold(text)
	for _, n := range needles {
		if strings.Contains(lt, Fold(n)) {
			return true
		}
	}
	return false
}

// MatchedKeywords returns the needles found in text, in needle order.
func MatchedKeywords(text string, needles []string) []string {
	lt := Fold(text)
	out := make([]string, 0)
	for _, n := range needles {
		if strings.Contains(lt, Fold(n)) {
			out = append(out, n)
		}
	}
	return out
}

// HasLink reports whether s looks like it carries a URL or a bare domain.
func HasLink(s string) bool {
	return linkPattern.MatchString(s)
}

// CleanText drops URLs, mentions and hashtags and collapses whitespace.
func CleanText(s string) string {
	s = urlPattern.ReplaceAllString(s, "")
	s = mentionOrTag.ReplaceAllString(s, "")
	return NormalizeWhitespace(s)
}

// SanitizeUsername strips a leading @, lower-cases, and keeps [a-z0-9_].
func SanitizeUsername(s string) string {
	s = strings.ToLower(strings.TrimLeft(strings.TrimSpace(s), "@"))
	return nonHandle.ReplaceAllString(s, "")
}

// Tokenize splits on spaces and punctuation.
func Tokenize(s string) []string {
	s = Fold(s)
	repl := strings.NewReplacer(
		",", " ", ".", " ", "!", " ", "?", " ", ":", " ", ";", " ",
		"\n", " ", "\t", " ", "\r", " ", "(", " ", ")", " ", "[", " ", "]", " ",
		"\"", " ", "…", " ",
	)
	s = repl.Replace(s)
	return strings.Fields(s)
}
