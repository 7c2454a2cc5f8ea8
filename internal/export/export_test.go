package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cwz-bot/reference-check/internal/reference"
)

func sampleRecords() []reference.Record {
	return []reference.Record{
		{
			ID:    1,
			Title: "Retrieval-Augmented Generation for Large Language Models: A Survey",
			Text:  "Gao, Y. (2023). Retrieval-Augmented Generation for Large Language Models: A Survey.",
			Parsed: reference.Parsed{
				Authors: "Gao, Y.; Xiong, Yun",
				Date:    "2023",
				Title:   "Retrieval-Augmented Generation for Large Language Models: A Survey",
				Journal: "arXiv preprint",
			},
			Sources: map[string]string{reference.SourceCrossref: "https://doi.org/10.48550/arXiv.2312.10997"},
			FoundAt: reference.StepCrossref,
		},
		{
			ID:      2,
			Title:   "Dead page",
			Text:    "Someone. (2020). Dead page. https://example.com/gone",
			Parsed:  reference.Parsed{URL: "https://example.com/gone"},
			Sources: map[string]string{reference.SourceWebsite: "https://example.com/gone"},
			FoundAt: reference.StepLinkFailed,
		},
		{
			ID:         3,
			Title:      "Vague | title",
			Text:       "Vague, multi\nline text",
			Sources:    map[string]string{},
			Suggestion: "https://scholar.example/hit",
		},
		{
			ID:      4,
			Text:    "broken",
			Sources: map[string]string{},
			Err:     "panic: boom",
		},
		{
			ID:      5,
			Title:   "Another crossref hit",
			Text:    "x",
			Sources: map[string]string{reference.SourceCrossref: "https://doi.org/10.1/y"},
			FoundAt: reference.StepCrossref,
		},
		{
			ID:      6,
			Title:   "Unknown",
			Text:    "y",
			Sources: map[string]string{},
		},
	}
}

func TestSummarize(t *testing.T) {
	got := Summarize(sampleRecords())
	want := Summary{
		Total:      6,
		Verified:   2,
		LinkFailed: 1,
		Suggested:  1,
		NotFound:   1,
		Failed:     1,
		ByStep: []StepCount{
			{Step: reference.StepCrossref, Count: 2},
			{Step: reference.StepLinkFailed, Count: 1},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Summarize() mismatch (-want +got):\n%s", diff)
	}
	if p := got.VerifiedPercent(); p < 33.3 || p > 33.4 {
		t.Errorf("VerifiedPercent() = %v, want ~33.3", p)
	}
	if p := Summarize(nil).VerifiedPercent(); p != 0 {
		t.Errorf("empty VerifiedPercent() = %v, want 0", p)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleRecords()); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	data := buf.String()
	if !strings.HasPrefix(data, "\ufeff") {
		t.Fatal("CSV does not start with a byte order mark")
	}

	rows, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(data, "\ufeff"))).ReadAll()
	if err != nil {
		t.Fatalf("reading CSV back: %v", err)
	}
	if len(rows) != 7 {
		t.Fatalf("rows = %d, want 7", len(rows))
	}
	if diff := cmp.Diff(CSVHeader, rows[0]); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}

	tests := []struct {
		row    int
		status string
		link   string
	}{
		{1, reference.StepCrossref, "https://doi.org/10.48550/arXiv.2312.10997"},
		{2, reference.StepLinkFailed, ""},
		{3, "Not Found", ""},
		{4, "Error", ""},
	}
	for _, tt := range tests {
		if rows[tt.row][1] != tt.status {
			t.Errorf("row %d status = %q, want %q", tt.row, rows[tt.row][1], tt.status)
		}
		if rows[tt.row][4] != tt.link {
			t.Errorf("row %d link = %q, want %q", tt.row, rows[tt.row][4], tt.link)
		}
	}
	if rows[3][3] != "Vague, multi\nline text" {
		t.Errorf("row 3 text = %q, want newline preserved", rows[3][3])
	}
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMarkdown(&buf, sampleRecords()); err != nil {
		t.Fatalf("WriteMarkdown() error = %v", err)
	}
	got := buf.String()

	for _, want := range []string{
		"- Total: 6",
		"- Verified: 2 (33.3%)",
		"- Errors: 1",
		"| 1. Crossref (Search) | 2 |",
		`| 3 | Not Found | Vague \| title | suggested: https://scholar.example/hit |`,
		"| 4 | Error | broken |  |",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("WriteMarkdown() missing %q in:\n%s", want, got)
		}
	}
	if strings.Contains(got, "| 2 | 6. Website (Link Failed) | Dead page | https://") {
		t.Error("dead link rendered as a verified link")
	}
}

func TestToBibTeX_VerifiedArticle(t *testing.T) {
	got := ToBibTeX(sampleRecords()[0])

	for _, want := range []string{
		"@article{Gao2023-1,",
		"author = {Gao, Y. and Xiong, Yun}",
		"title = {Retrieval-Augmented Generation for Large Language Models: A Survey}",
		"journal = {arXiv preprint}",
		"year = {2023}",
		"url = {https://doi.org/10.48550/arXiv.2312.10997}",
		"note = {verified}",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("ToBibTeX() missing %q, got:\n%s", want, got)
		}
	}
}

func TestToBibTeX_Unverified(t *testing.T) {
	got := ToBibTeX(sampleRecords()[1])
	if !strings.HasPrefix(got, "@misc{ref2,") {
		t.Errorf("ToBibTeX() should start with @misc{ref2, got:\n%s", got)
	}
	if !strings.Contains(got, "url = {https://example.com/gone}") || !strings.Contains(got, "note = {link\\_failed}") {
		t.Errorf("ToBibTeX() = %s", got)
	}
	if strings.Contains(got, "author =") {
		t.Error("ToBibTeX() should omit missing authors")
	}
}

func TestDetermineEntryType(t *testing.T) {
	tests := []struct {
		p    reference.Parsed
		want string
	}{
		{reference.Parsed{Type: "book"}, "book"},
		{reference.Parsed{Type: "paper-conference"}, "inproceedings"},
		{reference.Parsed{Journal: "bioRxiv"}, "article"},
		{reference.Parsed{ContainerTitle: "Proceedings of ACL"}, "inproceedings"},
		{reference.Parsed{ContainerTitle: "國立臺灣大學碩士論文"}, "phdthesis"},
		{reference.Parsed{URL: "https://openai.com"}, "misc"},
		{reference.Parsed{}, "article"},
	}
	for _, tt := range tests {
		if got := determineEntryType(tt.p); got != tt.want {
			t.Errorf("determineEntryType(%+v) = %q, want %q", tt.p, got, tt.want)
		}
	}
}

func TestEscapeLatex(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"A & B", `A \& B`},
		{"50% of $x", `50\% of \$x`},
		{"a_b #1", `a\_b \#1`},
		{"{x}", `\{x\}`},
		{"~^", `\textasciitilde{}\textasciicircum{}`},
	}
	for _, tt := range tests {
		if got := escapeLatex(tt.input); got != tt.want {
			t.Errorf("escapeLatex(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestToBibTeXList(t *testing.T) {
	recs := sampleRecords()[:2]
	got := ToBibTeXList(recs)
	if strings.Count(got, "\n@") != 1 || !strings.HasPrefix(got, "@") {
		t.Errorf("ToBibTeXList() = %s", got)
	}
	if ToBibTeXList(nil) != "" {
		t.Error("ToBibTeXList(nil) should be empty")
	}
}
