// Package refine repairs imperfect reference-parser output before matching.
//
// Refine is pure and total: it never fails, never mutates its input, and is
// idempotent on its own output.
package refine

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/cwz-bot/reference-check/internal/reference"
)

const (
	// MinTitleLen is the shortest title (in runes) accepted without recovery.
	MinTitleLen = 10

	// minBackupLen is the length a publisher/journal value must exceed to be
	// treated as a misclassified title.
	minBackupLen = 15

	// minYearTitleLen is the length a year-anchored candidate must exceed.
	minYearTitleLen = 5

	// maxQueryLen bounds the raw-text fallback query.
	maxQueryLen = 200
)

// noiseChars are stripped from both ends of identifier and title fields.
const noiseChars = " \t\r\n,.;)]}>"

// editionPattern splits "(2nd ed.) Routledge" into edition and publisher.
var editionPattern = regexp.MustCompile(`(?i)^([(\[]?.*?(?:ed\.|edition|edn)[)\]]?)\s*[:.,]?\s*(.+)$`)

// Refine returns a cleaned copy of p.
func Refine(p reference.Parsed) reference.Parsed {
	p = p.EnsureText()

	p.DOI = trimNoise(p.DOI)
	p.URL = trimNoise(p.URL)
	p.Title = trimNoise(p.Title)
	p.Date = trimNoise(p.Date)

	// A DOI field sometimes carries a resolver prefix
	if p.DOI != "" {
		if doi := FindDOI(p.DOI); doi != "" {
			p.DOI = doi
		}
	}

	// DOI hidden inside the URL
	if p.DOI == "" && p.URL != "" {
		if doi := FindDOI(p.URL); doi != "" {
			p.DOI = doi
			if IsDOIResolverURL(p.URL) {
				p.URL = ""
			}
		}
	}

	p = splitEdition(p)

	if p.Authors != "" {
		p.Authors = reference.FormatNames(p.Authors)
	}
	if p.Editor != "" {
		p.Editor = reference.FormatNames(p.Editor)
	}

	if title, ok := recoverTitle(p); ok {
		p.Title = title
	}

	return p
}

// QueryText returns the title, or a truncated copy of the raw text when no
// title survived refinement.
func QueryText(p reference.Parsed) string {
	if p.Title != "" {
		return p.Title
	}
	return truncateRunes(strings.TrimSpace(p.Text), maxQueryLen)
}

func splitEdition(p reference.Parsed) reference.Parsed {
	if p.Edition == "" || p.Publisher != "" {
		return p
	}
	m := editionPattern.FindStringSubmatch(p.Edition)
	if m == nil {
		return p
	}
	publisher := strings.Trim(m[2], " .,")
	if publisher == "" {
		return p
	}
	p.Edition = strings.TrimSpace(m[1])
	p.Publisher = publisher
	return p
}

func trimNoise(s string) string {
	return strings.Trim(s, noiseChars)
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func truncateRunes(s string, max int) string {
	if runeLen(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
