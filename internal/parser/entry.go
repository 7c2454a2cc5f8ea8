// Package parser turns raw reference text into structured references, either
// by running an external parser or by reading its saved JSON output.
package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cwz-bot/reference-check/internal/reference"
)

// Field is a parser value that may arrive as a string, a number, or an array
// of either. AnyStyle emits every field as an array.
type Field []string

func (f *Field) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		*f = nil
		return nil
	}

	// Try string first
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = Field{s}
		return nil
	}

	// Try number
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = Field{n.String()}
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("cannot unmarshal %s into Field", string(data))
	}
	out := make(Field, 0, len(items))
	for _, item := range items {
		var inner Field
		if err := inner.UnmarshalJSON(item); err != nil {
			// Objects inside a scalar field carry nothing usable
			continue
		}
		out = append(out, inner...)
	}
	*f = out
	return nil
}

// Join returns all values separated by spaces.
func (f Field) Join() string {
	var parts []string
	for _, s := range f {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// First returns the first non-empty value.
func (f Field) First() string {
	for _, s := range f {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// Entry is one reference as emitted by a parser: AnyStyle JSON, CSL-JSON, or
// the flat form written by this tool.
type Entry struct {
	Text           Field           `json:"text"`
	Title          Field           `json:"title"`
	Author         json.RawMessage `json:"author"`
	Authors        json.RawMessage `json:"authors"`
	Editor         json.RawMessage `json:"editor"`
	Date           Field           `json:"date"`
	Year           Field           `json:"year"`
	DOI            Field           `json:"doi"`
	URL            Field           `json:"url"`
	Edition        Field           `json:"edition"`
	Publisher      Field           `json:"publisher"`
	Location       Field           `json:"location"`
	Journal        Field           `json:"journal"`
	ContainerTitle Field           `json:"container-title"`
	Genre          Field           `json:"genre"`
	Note           Field           `json:"note"`
	Type           Field           `json:"type"`
}

// Parsed converts the entry into a reference. The text may still be empty;
// callers pair it with the input line or call EnsureText.
func (e Entry) Parsed() reference.Parsed {
	p := reference.Parsed{
		Text:           e.Text.Join(),
		Title:          e.Title.Join(),
		Authors:        names(e.Author),
		Editor:         names(e.Editor),
		Date:           e.Date.First(),
		DOI:            e.DOI.First(),
		URL:            e.URL.First(),
		Edition:        e.Edition.Join(),
		Publisher:      e.Publisher.Join(),
		Location:       e.Location.Join(),
		Journal:        e.Journal.Join(),
		ContainerTitle: e.ContainerTitle.Join(),
		Genre:          e.Genre.Join(),
		Note:           e.Note.Join(),
		Type:           e.Type.First(),
	}
	if p.Authors == "" {
		p.Authors = names(e.Authors)
	}
	if p.Date == "" {
		p.Date = e.Year.First()
	}
	return p
}

// names renders a name field that may be a plain string or a list of CSL
// name objects. Undecodable values degrade to their raw text.
func names(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return reference.FormatNameList(v)
}

// DecodeEntries decodes a JSON array of entries.
func DecodeEntries(data []byte) ([]reference.Parsed, error) {
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decoding parser output: %w", err)
	}
	refs := make([]reference.Parsed, len(entries))
	for i, e := range entries {
		refs[i] = e.Parsed()
	}
	return refs, nil
}
