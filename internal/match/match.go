// Package match decides whether two bibliographic titles denote the same work.
package match

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/text/unicode/norm"
)

// DefaultThreshold is the similarity ratio required for a non-exact match.
const DefaultThreshold = 0.9

// Result is the outcome of comparing a query title against a candidate.
type Result int

const (
	NoMatch Result = iota
	Similar
	Exact
)

func (r Result) String() string {
	switch r {
	case Exact:
		return "exact"
	case Similar:
		return "similar"
	default:
		return "no_match"
	}
}

// dashReplacer removes hyphen and dash variants before normalization.
var dashReplacer = strings.NewReplacer(
	"-", "",
	"–", "", // en dash
	"—", "", // em dash
	"−", "", // minus sign
	"‑", "", // non-breaking hyphen
	"‐", "", // hyphen
)

// stopWords are ignored by the keyword coverage check.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true,
	"of": true, "in": true, "on": true, "at": true, "to": true, "for": true,
	"from": true, "by": true, "with": true, "into": true, "via": true,
	"and": true, "or": true, "as": true, "is": true, "are": true,
	"its": true, "their": true, "this": true, "that": true,
	"model": true, "models": true, "based": true, "using": true,
	"analysis": true, "study": true, "approach": true, "method": true,
}

// Normalize prepares a title for comparison: dashes stripped, NFKC, only
// letters/digits/spaces kept, lowercased, whitespace collapsed.
func Normalize(s string) string {
	s = dashReplacer.Replace(s)
	s = norm.NFKC.String(s)
	return keepWordRunes(s)
}

func keepWordRunes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsSpace(r) || unicode.Is(unicode.Zs, r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Ratio returns the longest-matching-blocks similarity of two strings,
// compared rune by rune. Two empty strings have ratio 1.
func Ratio(a, b string) float64 {
	if a == b {
		return 1
	}
	m := difflib.NewMatcher(splitRunes(a), splitRunes(b))
	return m.Ratio()
}

func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// Keywords returns the distinguishing words of a normalized title.
func Keywords(normalized string) []string {
	var words []string
	for _, w := range strings.Fields(normalized) {
		if !stopWords[w] {
			words = append(words, w)
		}
	}
	return words
}

// covers reports whether every keyword of query appears in candidate.
func covers(query, candidate string) bool {
	have := make(map[string]bool)
	for _, w := range strings.Fields(candidate) {
		have[w] = true
	}
	for _, w := range Keywords(query) {
		if !have[w] {
			return false
		}
	}
	return true
}

// Classify compares two titles. Equal normalized forms are Exact regardless
// of threshold; otherwise the ratio must reach threshold and every query
// keyword must appear in the candidate for Similar.
func Classify(query, candidate string, threshold float64) Result {
	q, c := Normalize(query), Normalize(candidate)
	if q == "" || c == "" {
		return NoMatch
	}
	if q == c {
		return Exact
	}
	if Ratio(q, c) < threshold {
		return NoMatch
	}
	if !covers(q, c) {
		return NoMatch
	}
	return Similar
}

// IsMatch reports whether candidate denotes the same work as query.
func IsMatch(query, candidate string, threshold float64) bool {
	return Classify(query, candidate, threshold) != NoMatch
}

var standaloneNumber = regexp.MustCompile(`\b\d+\b`)

// RemedialNormalize is the looser normalization used for full reference
// text comparisons: it also drops standalone numbers (pages, volumes, years).
func RemedialNormalize(s string) string {
	s = norm.NFKC.String(s)
	s = dashReplacer.Replace(s)
	s = standaloneNumber.ReplaceAllString(s, "")
	return keepWordRunes(s)
}

// ContainedIn reports whether a result title and a raw reference text share
// containment after remedial normalization, in either direction.
func ContainedIn(refText, title string) bool {
	r, t := RemedialNormalize(refText), RemedialNormalize(title)
	if r == "" || t == "" {
		return false
	}
	return strings.Contains(r, t) || strings.Contains(t, r)
}

// HasCJK reports whether s contains a CJK unified ideograph.
func HasCJK(s string) bool {
	for _, r := range s {
		if r >= 0x4e00 && r <= 0x9fff {
			return true
		}
	}
	return false
}
