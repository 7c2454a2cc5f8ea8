package reference

import "testing"

func TestFormatNames(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain string", "Gao, Y.", "Gao, Y."},
		{"empty", "", ""},
		{"json list", `[{"family":"Gao","given":"Y."},{"family":"Xiong","given":"Yun"}]`, "Gao, Y.; Xiong, Yun"},
		{"json object", `{"family":"Vaswani","given":"Ashish"}`, "Vaswani, Ashish"},
		{"single quoted", `[{'family': 'Gao', 'given': 'Y.'}]`, "Gao, Y."},
		{"mixed entries", `[{"family":"Gao"},"OpenAI"]`, "Gao; OpenAI"},
		{"literal name", `[{"literal":"World Health Organization"}]`, "World Health Organization"},
		{"malformed", `[{"family": "Gao"`, `[{"family": "Gao"`},
		{"serialized list inside a list", `["[1]"]`, "1"},
		{"nested lists", `[[{"family":"Gao"}],"OpenAI"]`, "Gao; OpenAI"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatNames(tt.input); got != tt.want {
				t.Errorf("FormatNames(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatNameList_Numbers(t *testing.T) {
	got := FormatNameList([]any{float64(42), map[string]any{"family": "Lee", "given": "K."}})
	if got != "42; Lee, K." {
		t.Errorf("FormatNameList() = %q, want %q", got, "42; Lee, K.")
	}
}

func TestFormatNames_Idempotent(t *testing.T) {
	for _, in := range []string{`["[1]"]`, `["[\"[2]\"]"]`, `[{"family":"[x]"}]`, "Gao, Y."} {
		once := FormatNames(in)
		if twice := FormatNames(once); twice != once {
			t.Errorf("FormatNames(%q) = %q, then %q", in, once, twice)
		}
	}
	if got := FormatNameList([]any{"[1]", "Lee, K."}); got != "1; Lee, K." {
		t.Errorf("FormatNameList() = %q, want %q", got, "1; Lee, K.")
	}
}

func TestEnsureText(t *testing.T) {
	p := Parsed{Title: "Attention Is All You Need", Date: "2017"}.EnsureText()
	if p.Text != "2017. Attention Is All You Need" {
		t.Errorf("Text = %q", p.Text)
	}

	p = Parsed{Text: "original"}.EnsureText()
	if p.Text != "original" {
		t.Errorf("Text = %q, want original", p.Text)
	}

	p = Parsed{}.EnsureText()
	if p.Text == "" {
		t.Error("Text should never be empty")
	}
}

func TestParsed_Source(t *testing.T) {
	p := Parsed{Journal: "Nature", Publisher: "Springer", Location: "London"}
	if got := p.Source(); got != "Nature, London: Springer" {
		t.Errorf("Source() = %q", got)
	}

	p = Parsed{URL: "https://example.com"}
	if got := p.Source(); got != "Web Source" {
		t.Errorf("Source() = %q, want Web Source", got)
	}
}

func TestRecord_Outcome(t *testing.T) {
	tests := []struct {
		name   string
		record Record
		want   Outcome
	}{
		{"verified", Record{FoundAt: StepCrossref}, OutcomeVerified},
		{"link failed", Record{FoundAt: StepLinkFailed}, OutcomeLinkFailed},
		{"suggested", Record{Suggestion: "https://scholar.google.com"}, OutcomeSuggested},
		{"not found", Record{}, OutcomeNotFound},
		{"failed", Record{Err: "panic"}, OutcomeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.record.Outcome(); got != tt.want {
				t.Errorf("Outcome() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRecord_StatusLabelAndLink(t *testing.T) {
	r := Record{FoundAt: StepOpenAlex, Sources: map[string]string{SourceOpenAlex: "https://doi.org/10.1/x"}}
	if r.StatusLabel() != StepOpenAlex {
		t.Errorf("StatusLabel() = %s", r.StatusLabel())
	}
	if r.FirstLink() != "https://doi.org/10.1/x" {
		t.Errorf("FirstLink() = %s", r.FirstLink())
	}

	var empty Record
	if empty.StatusLabel() != "Not Found" {
		t.Errorf("StatusLabel() = %s, want Not Found", empty.StatusLabel())
	}
	if empty.FirstLink() != "" {
		t.Errorf("FirstLink() = %s, want empty", empty.FirstLink())
	}
}

func TestParsed_FirstAuthor(t *testing.T) {
	tests := []struct {
		authors string
		want    string
	}{
		{"Gao, Y.; Xiong, Yun", "Gao"},
		{"van der Berg, J.", "van der Berg"},
		{"OpenAI", "OpenAI"},
		{"", ""},
		{"this is clearly not a list of names at all", ""},
	}
	for _, tt := range tests {
		if got := (Parsed{Authors: tt.authors}).FirstAuthor(); got != tt.want {
			t.Errorf("FirstAuthor(%q) = %q, want %q", tt.authors, got, tt.want)
		}
	}
}
