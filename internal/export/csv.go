package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/cwz-bot/reference-check/internal/reference"
)

// CSVHeader lists the columns written by WriteCSV.
var CSVHeader = []string{"id", "status", "title", "text", "link"}

// WriteCSV writes one row per record, preceded by a UTF-8 byte order mark so
// spreadsheet tools detect the encoding. Only verified records get a link.
func WriteCSV(w io.Writer, records []reference.Record) error {
	if _, err := io.WriteString(w, "\ufeff"); err != nil {
		return fmt.Errorf("writing CSV: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("writing CSV: %w", err)
	}
	for _, r := range records {
		row := []string{
			strconv.Itoa(r.ID),
			r.StatusLabel(),
			r.Title,
			r.Text,
			linkFor(r),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing CSV: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func linkFor(r reference.Record) string {
	if !r.Verified() {
		return ""
	}
	return r.FirstLink()
}
