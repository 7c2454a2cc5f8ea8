package refine

import (
	"regexp"
	"strings"

	"github.com/cwz-bot/reference-check/internal/reference"
)

var (
	// abbrevTitlePattern matches "AIOS: LLM Agent Operating System" style
	// titles: a short upper-case label starting with a letter, a colon, then
	// text up to a stop token. "33: 1877-1901" is volume and pages.
	abbrevTitlePattern = regexp.MustCompile(`(?:^|[^A-Za-z])([A-Z][A-Z0-9\- ]{1,11}):\s*([^,\[\]().]+?)\s*(?:[,\[\]().]|Available|https?://|$)`)

	// yearPattern finds the first plausible publication year.
	yearPattern = regexp.MustCompile(`\b(1[5-9]\d{2}|20\d{2})\b`)

	// yearTailLead strips what usually follows a year: "a). ", ", ", ") "
	yearTailLead = regexp.MustCompile(`^[a-z]?[)\]]?[.,:;]?\s*`)

	// titleTailNoise cuts trailing repository and access notes.
	titleTailNoise = regexp.MustCompile(`(?i)\s*\b(arxiv|available)\b.*$`)
)

// recoverTitle applies the title recovery rules in priority order and
// returns the first candidate that succeeds.
func recoverTitle(p reference.Parsed) (string, bool) {
	if runeLen(p.Title) >= MinTitleLen {
		return "", false
	}

	for _, rule := range []func(reference.Parsed) string{
		titleFromAbbreviation,
		titleFromBackupFields,
		titleFromYearAnchor,
	} {
		if title := rule(p); title != "" {
			return title, true
		}
	}
	return "", false
}

func titleFromAbbreviation(p reference.Parsed) string {
	m := abbrevTitlePattern.FindStringSubmatch(p.Text)
	if m == nil {
		return ""
	}
	label := strings.TrimSpace(m[1])
	rest := trimNoise(m[2])
	if label == "" || rest == "" {
		return ""
	}
	return label + ": " + rest
}

func titleFromBackupFields(p reference.Parsed) string {
	for _, candidate := range []string{p.Publisher, p.ContainerTitle, p.Journal} {
		candidate = trimNoise(candidate)
		if runeLen(candidate) > minBackupLen {
			return candidate
		}
	}
	return ""
}

func titleFromYearAnchor(p reference.Parsed) string {
	loc := yearPattern.FindStringIndex(p.Text)
	if loc == nil {
		return ""
	}
	rest := p.Text[loc[1]:]
	rest = yearTailLead.ReplaceAllString(rest, "")
	rest = titleTailNoise.ReplaceAllString(rest, "")
	rest = trimNoise(rest)
	if runeLen(rest) <= minYearTitleLen {
		return ""
	}
	return rest
}
