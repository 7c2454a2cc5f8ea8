// Package reference defines the core domain types for checked references.
package reference

import "strings"

// Parsed is a single reference as produced by the external parser, after
// decoding into explicit fields. Empty strings mean the field is absent.
type Parsed struct {
	// Original reference string (always non-empty after EnsureText)
	Text string `json:"text"`

	Title   string `json:"title,omitempty"`
	Authors string `json:"authors,omitempty"` // "Family, Given; Family, Given"
	Editor  string `json:"editor,omitempty"`
	Date    string `json:"date,omitempty"`

	// Identifiers
	DOI string `json:"doi,omitempty"`
	URL string `json:"url,omitempty"`

	// Publication details
	Edition        string `json:"edition,omitempty"`
	Publisher      string `json:"publisher,omitempty"`
	Location       string `json:"location,omitempty"`
	Journal        string `json:"journal,omitempty"`
	ContainerTitle string `json:"container-title,omitempty"`
	Genre          string `json:"genre,omitempty"`
	Note           string `json:"note,omitempty"`
	Type           string `json:"type,omitempty"`
}

// EnsureText fills Text from the other fields when the parser omitted it.
// The returned value always has a non-empty Text.
func (p Parsed) EnsureText() Parsed {
	if strings.TrimSpace(p.Text) != "" {
		return p
	}

	var parts []string
	for _, s := range []string{p.Authors, p.Date, p.Title, p.ContainerTitle, p.Journal, p.Publisher, p.DOI, p.URL} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		p.Text = "(empty reference)"
		return p
	}
	p.Text = strings.Join(parts, ". ")
	return p
}

// Source returns the venue description used for display: container title or
// journal, then publisher (with location), then genre and note.
func (p Parsed) Source() string {
	var parts []string
	switch {
	case p.ContainerTitle != "":
		parts = append(parts, p.ContainerTitle)
	case p.Journal != "":
		parts = append(parts, p.Journal)
	}
	if p.Publisher != "" {
		pub := p.Publisher
		if p.Location != "" {
			pub = p.Location + ": " + pub
		}
		parts = append(parts, pub)
	}
	if p.Genre != "" {
		parts = append(parts, p.Genre)
	}
	if p.Note != "" {
		parts = append(parts, p.Note)
	}
	if len(parts) == 0 && p.URL != "" {
		parts = append(parts, "Web Source")
	}
	return strings.Join(parts, ", ")
}

// FirstAuthor returns the family name of the first listed author, or "" when
// the author field does not look like a name list.
func (p Parsed) FirstAuthor() string {
	first, _, _ := strings.Cut(p.Authors, ";")
	family, _, _ := strings.Cut(first, ",")
	family = strings.TrimSpace(family)
	if len(strings.Fields(family)) > 3 {
		return ""
	}
	return family
}
