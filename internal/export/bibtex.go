// Package export writes checked references as CSV, Markdown, and BibTeX.
package export

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/cwz-bot/reference-check/internal/reference"
)

var yearPattern = regexp.MustCompile(`\b(1[5-9]\d{2}|20\d{2})\b`)

// ToBibTeX converts a checked reference to a BibTeX entry. Verified
// references carry the confirming link in the url field.
func ToBibTeX(r reference.Record) string {
	p := r.Parsed
	entryType := determineEntryType(p)
	var b strings.Builder

	fmt.Fprintf(&b, "@%s{%s,\n", entryType, citationKey(r))

	if p.Authors != "" {
		fmt.Fprintf(&b, "  author = {%s},\n", formatAuthors(p.Authors))
	}

	title := p.Title
	if title == "" {
		title = r.Title
	}
	if title != "" {
		fmt.Fprintf(&b, "  title = {%s},\n", escapeLatex(title))
	}

	if venue := venueOf(p); venue != "" {
		fieldName := "journal"
		switch entryType {
		case "inproceedings":
			fieldName = "booktitle"
		case "book", "phdthesis", "misc":
			fieldName = "howpublished"
		}
		fmt.Fprintf(&b, "  %s = {%s},\n", fieldName, escapeLatex(venue))
	}

	if p.Publisher != "" && entryType == "book" {
		fmt.Fprintf(&b, "  publisher = {%s},\n", escapeLatex(p.Publisher))
	}

	if year := yearOf(p.Date); year != "" {
		fmt.Fprintf(&b, "  year = {%s},\n", year)
	}

	if p.DOI != "" {
		fmt.Fprintf(&b, "  doi = {%s},\n", p.DOI)
	}

	if r.Verified() {
		if link := r.FirstLink(); strings.HasPrefix(link, "http") {
			fmt.Fprintf(&b, "  url = {%s},\n", link)
		}
	} else if p.URL != "" {
		fmt.Fprintf(&b, "  url = {%s},\n", p.URL)
	}

	fmt.Fprintf(&b, "  note = {%s},\n", escapeLatex(string(r.Outcome())))
	b.WriteString("}\n")

	return b.String()
}

// ToBibTeXList converts multiple records to BibTeX format.
func ToBibTeXList(records []reference.Record) string {
	var entries []string
	for _, r := range records {
		entries = append(entries, ToBibTeX(r))
	}
	return strings.Join(entries, "\n")
}

// citationKey builds "<Family><Year>-<ID>", falling back to "ref<ID>".
func citationKey(r reference.Record) string {
	family := r.Parsed.FirstAuthor()
	if i := strings.IndexAny(family, " ,"); i > 0 {
		family = family[:i]
	}
	var b strings.Builder
	for _, c := range family {
		if c < unicode.MaxASCII && (unicode.IsLetter(c) || unicode.IsDigit(c)) {
			b.WriteRune(c)
		}
	}
	year := yearOf(r.Parsed.Date)
	if b.Len() == 0 || year == "" {
		return fmt.Sprintf("ref%d", r.ID)
	}
	return fmt.Sprintf("%s%s-%d", b.String(), year, r.ID)
}

func venueOf(p reference.Parsed) string {
	if p.ContainerTitle != "" {
		return p.ContainerTitle
	}
	return p.Journal
}

func yearOf(date string) string {
	return yearPattern.FindString(date)
}

// determineEntryType returns the BibTeX entry type for a reference.
func determineEntryType(p reference.Parsed) string {
	switch strings.ToLower(p.Type) {
	case "book":
		return "book"
	case "thesis":
		return "phdthesis"
	case "paper-conference":
		return "inproceedings"
	case "webpage", "post-weblog":
		return "misc"
	}

	venue := strings.ToLower(venueOf(p))

	// Preprints
	if strings.Contains(venue, "arxiv") ||
		strings.Contains(venue, "biorxiv") ||
		strings.Contains(venue, "medrxiv") {
		return "article"
	}

	// Conference proceedings
	if strings.Contains(venue, "proceedings") ||
		strings.Contains(venue, "conference") ||
		strings.Contains(venue, "workshop") ||
		strings.Contains(venue, "symposium") {
		return "inproceedings"
	}

	if strings.Contains(venue, "論文") || strings.Contains(venue, "thesis") || strings.Contains(venue, "dissertation") {
		return "phdthesis"
	}

	if venue == "" && p.URL != "" {
		return "misc"
	}
	return "article"
}

// formatAuthors turns "Family, Given; Family, Given" into BibTeX's
// "Family, Given and Family, Given".
func formatAuthors(authors string) string {
	var formatted []string
	for _, a := range strings.Split(authors, ";") {
		if a = strings.TrimSpace(a); a != "" {
			formatted = append(formatted, escapeLatex(a))
		}
	}
	return strings.Join(formatted, " and ")
}

// escapeLatex escapes special LaTeX characters.
func escapeLatex(s string) string {
	replacer := strings.NewReplacer(
		"&", `\&`,
		"%", `\%`,
		"$", `\$`,
		"#", `\#`,
		"_", `\_`,
		"{", `\{`,
		"}", `\}`,
		"~", `\textasciitilde{}`,
		"^", `\textasciicircum{}`,
	)
	return replacer.Replace(s)
}
