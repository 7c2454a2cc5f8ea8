package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/cwz-bot/reference-check/internal/reference"
)

var cellReplacer = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ")

// WriteMarkdown writes a summary followed by one table row per record.
func WriteMarkdown(w io.Writer, records []reference.Record) error {
	s := Summarize(records)

	var b strings.Builder
	b.WriteString("# Reference check report\n\n")
	fmt.Fprintf(&b, "- Total: %d\n", s.Total)
	fmt.Fprintf(&b, "- Verified: %d (%.1f%%)\n", s.Verified, s.VerifiedPercent())
	fmt.Fprintf(&b, "- Link failed: %d\n", s.LinkFailed)
	fmt.Fprintf(&b, "- Suggested: %d\n", s.Suggested)
	fmt.Fprintf(&b, "- Not found: %d\n", s.NotFound)
	if s.Failed > 0 {
		fmt.Fprintf(&b, "- Errors: %d\n", s.Failed)
	}

	if len(s.ByStep) > 0 {
		b.WriteString("\n## By step\n\n| Step | Count |\n|---|---|\n")
		for _, sc := range s.ByStep {
			fmt.Fprintf(&b, "| %s | %d |\n", cell(sc.Step), sc.Count)
		}
	}

	b.WriteString("\n## References\n\n| # | Status | Title | Link |\n|---|---|---|---|\n")
	for _, r := range records {
		link := linkFor(r)
		if link == "" && r.Suggestion != "" {
			link = "suggested: " + r.Suggestion
		}
		title := r.Title
		if title == "" {
			title = r.Text
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %s |\n", r.ID, cell(r.StatusLabel()), cell(title), cell(link))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func cell(s string) string {
	return cellReplacer.Replace(strings.TrimSpace(s))
}
