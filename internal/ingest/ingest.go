// Package ingest pulls the reference section out of a paper.
package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"code.sajari.com/docconv/v2"
	"github.com/ledongthuc/pdf"
)

// ErrUnsupportedFormat is returned for file types that cannot be read.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// SectionKeywords mark the start of a reference list.
var SectionKeywords = []string{
	"references", "reference", "bibliography",
	"參考文獻", "参考文献", "參考資料", "参考资料",
}

// ExtractParagraphs returns the non-blank paragraphs of a document. PDFs
// yield one paragraph per text line.
func ExtractParagraphs(path string) ([]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return pdfLines(path)
	case ".docx":
		return docxParagraphs(path)
	case ".txt", ".md", "":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return nonBlank(string(data)), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func pdfLines(path string) ([]string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	var out []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Unreadable pages are skipped
			continue
		}
		out = append(out, nonBlank(text)...)
	}
	return out, nil
}

func docxParagraphs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	body, _, err := docconv.ConvertDocx(f)
	if err != nil {
		return nil, fmt.Errorf("reading docx: %w", err)
	}
	return nonBlank(body), nil
}

func nonBlank(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// ReferenceSection returns the paragraphs from the first one mentioning a
// section keyword onward, heading included. It returns nil when no
// paragraph matches.
func ReferenceSection(paragraphs []string) []string {
	for i, p := range paragraphs {
		norm := alnumLower(p)
		for _, kw := range SectionKeywords {
			if strings.Contains(norm, alnumLower(kw)) {
				return paragraphs[i:]
			}
		}
	}
	return nil
}

// Entries drops a leading heading line from a reference section.
func Entries(section []string) []string {
	if len(section) == 0 {
		return nil
	}
	if isHeading(section[0]) {
		return section[1:]
	}
	return section
}

// HeadingIndex returns the index of the first paragraph consisting of a
// section keyword alone, or -1.
func HeadingIndex(paragraphs []string) int {
	for i, p := range paragraphs {
		if isHeading(p) {
			return i
		}
	}
	return -1
}

func isHeading(p string) bool {
	norm := alnumLower(p)
	for _, kw := range SectionKeywords {
		if norm == alnumLower(kw) {
			return true
		}
	}
	return false
}

func alnumLower(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
