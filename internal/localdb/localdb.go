// Package localdb loads a local CSV catalogue of titles and answers fuzzy
// title lookups against one of its columns.
package localdb

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cwz-bot/reference-check/internal/match"
)

// DefaultColumn is the title column of the bundled thesis catalogue.
const DefaultColumn = "論文名稱"

// DefaultThreshold is the similarity a row must reach to count as a match.
const DefaultThreshold = 0.85

// ErrNoColumn is returned when the requested column is not in the header.
var ErrNoColumn = errors.New("column not found")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is a CSV file held in memory. The first row is the header.
type Table struct {
	Header []string
	Rows   [][]string
}

// Load reads the CSV file at path.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening local table: %w", err)
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return t, nil
}

// Read parses CSV from r, tolerating a UTF-8 byte-order mark and ragged rows.
func Read(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}
	if len(rows) == 0 {
		return &Table{}, nil
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}
	return &Table{Header: header, Rows: rows[1:]}, nil
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Column returns the index of the named column.
func (t *Table) Column(name string) (int, bool) {
	name = strings.TrimSpace(name)
	for i, h := range t.Header {
		if h == name {
			return i, true
		}
	}
	return -1, false
}

// Row returns row i as a header-keyed map.
func (t *Table) Row(i int) map[string]string {
	row := make(map[string]string, len(t.Header))
	for j, h := range t.Header {
		if j < len(t.Rows[i]) {
			row[h] = t.Rows[i][j]
		}
	}
	return row
}

// Index is a read-only lookup structure over one column. It is safe for
// concurrent use.
type Index struct {
	table  *Table
	column string
	norm   []string       // normalized cell per row
	exact  map[string]int // normalized cell -> first row
}

// Index prepares column for lookups.
func (t *Table) Index(column string) (*Index, error) {
	col, ok := t.Column(column)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoColumn, column)
	}

	ix := &Index{
		table:  t,
		column: t.Header[col],
		norm:   make([]string, len(t.Rows)),
		exact:  make(map[string]int),
	}
	for i, row := range t.Rows {
		if col >= len(row) {
			continue
		}
		n := match.Normalize(row[col])
		ix.norm[i] = n
		if _, seen := ix.exact[n]; !seen && n != "" {
			ix.exact[n] = i
		}
	}
	return ix, nil
}

// Match is a successful lookup.
type Match struct {
	Title string
	Score float64
	Row   map[string]string
}

// Lookup returns the best row whose title scores at least threshold.
func (ix *Index) Lookup(query string, threshold float64) (Match, bool) {
	q := match.Normalize(query)
	if q == "" {
		return Match{}, false
	}

	if i, ok := ix.exact[q]; ok {
		return ix.matchAt(i, 1.0), true
	}

	best, bestScore := -1, 0.0
	for i, n := range ix.norm {
		if n == "" {
			continue
		}
		if score := match.Ratio(q, n); score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 || bestScore < threshold {
		return Match{}, false
	}
	return ix.matchAt(best, bestScore), true
}

func (ix *Index) matchAt(i int, score float64) Match {
	row := ix.table.Row(i)
	return Match{Title: row[ix.column], Score: score, Row: row}
}
