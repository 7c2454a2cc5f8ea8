package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/cwz-bot/reference-check/internal/export"
	"github.com/cwz-bot/reference-check/internal/reference"
)

// Column widths for the human table.
const (
	TitleMaxWidth  = 60
	StatusMaxWidth = 26
	LinkMaxWidth   = 60
)

// Output formats accepted by --format.
const (
	FormatJSON     = "json"
	FormatTable    = "table"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatBibTeX   = "bibtex"
)

var outputFormats = []string{FormatJSON, FormatTable, FormatCSV, FormatMarkdown, FormatBibTeX}

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v any) error {
	return writeJSON(os.Stdout, v)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is a generic response for commands that return status.
type StatusResponse struct {
	Status string `json:"status"`
	Count  int    `json:"count,omitempty"`
	Path   string `json:"path,omitempty"`
}

// CheckResponse is the JSON output of the check command.
type CheckResponse struct {
	Summary export.Summary     `json:"summary"`
	Records []reference.Record `json:"records"`
}

// resolveFormat picks the output format: an explicit flag, else table for
// --human and JSON otherwise.
func resolveFormat(flag string) (string, error) {
	if flag == "" {
		if humanOutput {
			return FormatTable, nil
		}
		return FormatJSON, nil
	}
	f := strings.ToLower(flag)
	if f == "md" {
		f = FormatMarkdown
	}
	for _, valid := range outputFormats {
		if f == valid {
			return f, nil
		}
	}
	return "", fmt.Errorf("invalid format %q (valid: %s)", flag, strings.Join(outputFormats, ", "))
}

// writeRecords renders records in the given format.
func writeRecords(w io.Writer, format string, records []reference.Record) error {
	switch format {
	case FormatCSV:
		return export.WriteCSV(w, records)
	case FormatMarkdown:
		return export.WriteMarkdown(w, records)
	case FormatBibTeX:
		_, err := io.WriteString(w, export.ToBibTeXList(records))
		return err
	case FormatTable:
		_, err := io.WriteString(w, recordsTable(records)+"\n"+summaryLine(export.Summarize(records))+"\n")
		return err
	default:
		if records == nil {
			records = []reference.Record{}
		}
		return writeJSON(w, CheckResponse{Summary: export.Summarize(records), Records: records})
	}
}

// recordsTable renders one row per record.
func recordsTable(records []reference.Record) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"#", "Status", "Title", "Link"})
	for _, r := range records {
		title := r.Title
		if title == "" {
			title = r.Text
		}
		link := r.FirstLink()
		switch {
		case r.LinkFailed():
			link = "(dead) " + link
		case !r.Verified() && r.Suggestion != "":
			link = "(suggested) " + r.Suggestion
		case !r.Verified():
			link = ""
		}
		tw.AppendRow(table.Row{r.ID, r.StatusLabel(), truncateString(title, TitleMaxWidth), link})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, WidthMax: StatusMaxWidth},
		{Number: 3, WidthMax: TitleMaxWidth},
		{Number: 4, WidthMax: LinkMaxWidth},
	})
	return tw.Render()
}

func summaryLine(s export.Summary) string {
	return fmt.Sprintf("%d references: %d verified (%.1f%%), %d dead links, %d suggested, %d not found, %d errors",
		s.Total, s.Verified, s.VerifiedPercent(), s.LinkFailed, s.Suggested, s.NotFound, s.Failed)
}

// truncateString shortens s to max runes, adding "..." when cut.
func truncateString(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
