package cascade

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cwz-bot/reference-check/internal/reference"
	"github.com/cwz-bot/reference-check/internal/sources"
)

const (
	gaoText  = "Gao, Y. (2023). Retrieval-Augmented Generation for Large Language Models: A Survey. arXiv:2312.10997"
	gaoTitle = "Retrieval-Augmented Generation for Large Language Models: A Survey"
)

var (
	found   = sources.Result{URL: "https://found.example/1", Status: sources.StatusOK, Kind: sources.KindMatch}
	missing = sources.Result{Status: sources.StatusNoResults, Kind: sources.KindNoResult}
)

// fake is a scripted source that counts calls.
type fake struct {
	res       sources.Result
	calls     int
	panics    bool
	lastQuery string
	lastHint  string
}

func (f *fake) hit(query, hint string) sources.Result {
	f.calls++
	f.lastQuery, f.lastHint = query, hint
	if f.panics {
		panic("boom")
	}
	return f.res
}

type titleFake struct{ fake }

func (f *titleFake) Search(_ context.Context, title string) sources.Result {
	return f.hit(title, "")
}

type authorFake struct{ fake }

func (f *authorFake) Search(_ context.Context, title, author string) sources.Result {
	return f.hit(title, author)
}

type crossrefFake struct {
	doi    fake
	search fake
}

func (f *crossrefFake) ByDOI(_ context.Context, doi, title string) sources.Result {
	return f.doi.hit(doi, title)
}

func (f *crossrefFake) Search(_ context.Context, title, author string) sources.Result {
	return f.search.hit(title, author)
}

type scholarFake struct {
	title fake
	text  fake
}

func (f *scholarFake) ByTitle(_ context.Context, title string) sources.Result {
	return f.title.hit(title, "")
}

func (f *scholarFake) ByRefText(_ context.Context, text string) sources.Result {
	return f.text.hit(text, "")
}

type linkFake struct{ fake }

func (f *linkFake) Check(_ context.Context, u string) sources.Result {
	return f.hit(u, "")
}

type fakes struct {
	local    *titleFake
	crossref *crossrefFake
	scopus   *titleFake
	openalex *authorFake
	s2       *authorFake
	scholar  *scholarFake
	website  *linkFake
}

// newFakes returns sources that all report no result.
func newFakes() *fakes {
	return &fakes{
		local:    &titleFake{fake{res: missing}},
		crossref: &crossrefFake{doi: fake{res: missing}, search: fake{res: missing}},
		scopus:   &titleFake{fake{res: missing}},
		openalex: &authorFake{fake{res: missing}},
		s2:       &authorFake{fake{res: missing}},
		scholar:  &scholarFake{title: fake{res: missing}, text: fake{res: missing}},
		website:  &linkFake{fake{res: missing}},
	}
}

func (f *fakes) sources() Sources {
	return Sources{
		Local:           f.local,
		Crossref:        f.crossref,
		Scopus:          f.scopus,
		OpenAlex:        f.openalex,
		SemanticScholar: f.s2,
		Scholar:         f.scholar,
		Website:         f.website,
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newResolver(f *fakes, opts Options) *Resolver {
	opts.Logger = quietLogger()
	return New(f.sources(), opts)
}

func TestResolve_DOIShortCircuits(t *testing.T) {
	f := newFakes()
	f.crossref.doi.res = found
	f.crossref.search.res = found
	f.scopus.res = found
	f.openalex.res = found

	rec := newResolver(f, Options{}).Resolve(context.Background(), 1, reference.Parsed{
		Text:  gaoText,
		Title: gaoTitle,
		DOI:   "10.48550/arXiv.2312.10997",
	})

	if rec.FoundAt != reference.StepCrossrefDOI {
		t.Errorf("FoundAt = %q, want %q", rec.FoundAt, reference.StepCrossrefDOI)
	}
	if rec.Sources[reference.SourceCrossref] != found.URL {
		t.Errorf("Sources = %v", rec.Sources)
	}
	if f.crossref.doi.calls != 1 {
		t.Errorf("DOI lookups = %d, want 1", f.crossref.doi.calls)
	}
	if f.crossref.doi.lastHint != gaoTitle {
		t.Errorf("DOI lookup title = %q", f.crossref.doi.lastHint)
	}
	for name, calls := range map[string]int{
		"crossref search": f.crossref.search.calls,
		"scopus":          f.scopus.calls,
		"openalex":        f.openalex.calls,
		"s2":              f.s2.calls,
		"scholar":         f.scholar.title.calls,
		"website":         f.website.calls,
	} {
		if calls != 0 {
			t.Errorf("%s called %d times after DOI match", name, calls)
		}
	}
}

func TestResolve_EndToEndCrossrefSearch(t *testing.T) {
	f := newFakes()
	f.crossref.search.res = sources.Result{URL: "https://doi.org/10.48550/arXiv.2312.10997", Status: "OK", Kind: sources.KindMatch}

	rec := newResolver(f, Options{}).Resolve(context.Background(), 7, reference.Parsed{Text: gaoText})

	if rec.FoundAt != reference.StepCrossref {
		t.Errorf("FoundAt = %q, want %q", rec.FoundAt, reference.StepCrossref)
	}
	if got := rec.Sources[reference.SourceCrossref]; got != "https://doi.org/10.48550/arXiv.2312.10997" {
		t.Errorf("Sources[Crossref] = %q", got)
	}
	if rec.ID != 7 || rec.Title != gaoTitle {
		t.Errorf("record = id %d title %q", rec.ID, rec.Title)
	}
	if f.crossref.search.lastQuery != gaoTitle {
		t.Errorf("search query = %q, want recovered title", f.crossref.search.lastQuery)
	}
	if f.crossref.doi.calls != 0 {
		t.Error("DOI lookup ran without a DOI")
	}
	if f.local.calls != 0 {
		t.Error("local table consulted for a non-CJK title")
	}
	if !rec.Verified() {
		t.Error("Verified() = false")
	}
}

func TestResolve_EndToEndWithHTTPCrossref(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("query.bibliographic") != gaoTitle {
			t.Errorf("query.bibliographic = %q", r.URL.Query().Get("query.bibliographic"))
		}
		fmt.Fprintf(w, `{"message":{"items":[{"title":[%q],"URL":"https://doi.org/10.48550/arXiv.2312.10997"}]}}`, gaoTitle)
	}))
	defer srv.Close()

	cr := sources.NewCrossref(sources.WithBaseURL(srv.URL), sources.WithRateLimit(0))
	rec := New(Sources{Crossref: cr}, Options{Logger: quietLogger()}).
		Resolve(context.Background(), 1, reference.Parsed{Text: gaoText})

	if rec.FoundAt != reference.StepCrossref {
		t.Errorf("FoundAt = %q, want %q", rec.FoundAt, reference.StepCrossref)
	}
	if rec.Sources[reference.SourceCrossref] != "https://doi.org/10.48550/arXiv.2312.10997" {
		t.Errorf("Sources = %v", rec.Sources)
	}
}

func TestResolve_SuggestionIsNotVerified(t *testing.T) {
	f := newFakes()
	f.scholar.text.res = sources.Result{URL: "https://scholar.example/hit", Status: "OK", Kind: sources.KindSuggestion}

	rec := newResolver(f, Options{EnableRefTextFallback: true}).
		Resolve(context.Background(), 1, reference.Parsed{Text: gaoText})

	if rec.FoundAt != "" {
		t.Errorf("FoundAt = %q, want empty", rec.FoundAt)
	}
	if rec.Suggestion != "https://scholar.example/hit" {
		t.Errorf("Suggestion = %q", rec.Suggestion)
	}
	if len(rec.Sources) != 0 {
		t.Errorf("Sources = %v, want none", rec.Sources)
	}
	if rec.Outcome() != reference.OutcomeSuggested {
		t.Errorf("Outcome() = %q", rec.Outcome())
	}
	if f.scholar.text.lastQuery != gaoText {
		t.Errorf("fallback query = %q, want raw text", f.scholar.text.lastQuery)
	}
}

func TestResolve_FallbackDisabled(t *testing.T) {
	f := newFakes()
	f.scholar.text.res = sources.Result{URL: "https://scholar.example/hit", Kind: sources.KindSuggestion}

	rec := newResolver(f, Options{}).Resolve(context.Background(), 1, reference.Parsed{Text: gaoText})
	if f.scholar.text.calls != 0 || rec.Suggestion != "" {
		t.Errorf("fallback ran while disabled: calls=%d suggestion=%q", f.scholar.text.calls, rec.Suggestion)
	}
}

func TestResolve_SimilarIsVerified(t *testing.T) {
	f := newFakes()
	f.scholar.title.res = sources.Result{URL: "https://scholar.example/q", Status: "OK", Kind: sources.KindSimilar}

	rec := newResolver(f, Options{}).Resolve(context.Background(), 1, reference.Parsed{Text: gaoText})
	if rec.FoundAt != reference.StepScholar {
		t.Errorf("FoundAt = %q, want %q", rec.FoundAt, reference.StepScholar)
	}
}

func TestResolve_Website(t *testing.T) {
	tests := []struct {
		name       string
		res        sources.Result
		wantStep   string
		wantVerify bool
	}{
		{"alive", sources.Result{URL: "https://blog.example/post", Status: "OK", Kind: sources.KindMatch}, reference.StepWebsite, true},
		{"dead", sources.Result{Status: "Link Failed (404)", Kind: sources.KindNoResult}, reference.StepLinkFailed, false},
		{"error", sources.Result{Status: "Canceled", Kind: sources.KindError}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakes()
			f.website.res = tt.res

			rec := newResolver(f, Options{}).Resolve(context.Background(), 1, reference.Parsed{
				Text: "OpenAI. (2024). Hello GPT-4o. https://blog.example/post",
				URL:  "https://blog.example/post",
			})
			if rec.FoundAt != tt.wantStep {
				t.Errorf("FoundAt = %q, want %q", rec.FoundAt, tt.wantStep)
			}
			if rec.Verified() != tt.wantVerify {
				t.Errorf("Verified() = %v, want %v", rec.Verified(), tt.wantVerify)
			}
			if f.website.lastQuery != "https://blog.example/post" {
				t.Errorf("checked %q", f.website.lastQuery)
			}
		})
	}
}

func TestResolve_DOIURLNotLinkChecked(t *testing.T) {
	f := newFakes()
	rec := newResolver(f, Options{}).Resolve(context.Background(), 1, reference.Parsed{
		Text: gaoText,
		URL:  "https://doi.org/10.48550/arXiv.2312.10997",
	})
	if f.website.calls != 0 {
		t.Error("DOI resolver URL was link-checked")
	}
	if f.crossref.doi.lastQuery != "10.48550/arXiv.2312.10997" {
		t.Errorf("DOI lookup = %q, want promoted DOI", f.crossref.doi.lastQuery)
	}
	if rec.Outcome() != reference.OutcomeNotFound {
		t.Errorf("Outcome() = %q", rec.Outcome())
	}
}

func TestResolve_LocalOnlyForCJK(t *testing.T) {
	f := newFakes()
	f.local.res = sources.Result{Status: "Local match: 深度學習於醫學影像分割之研究 (score 1.00)", Kind: sources.KindMatch}

	rec := newResolver(f, Options{}).Resolve(context.Background(), 1, reference.Parsed{
		Text:  "王小明 (2023)。深度學習於醫學影像分割之研究。碩士論文。",
		Title: "深度學習於醫學影像分割之研究",
	})
	if rec.FoundAt != reference.StepLocal {
		t.Errorf("FoundAt = %q, want %q", rec.FoundAt, reference.StepLocal)
	}
	if !strings.Contains(rec.Sources[reference.SourceLocal], "Local match") {
		t.Errorf("Sources = %v", rec.Sources)
	}
	if f.crossref.search.calls != 0 {
		t.Error("Crossref consulted after a local match")
	}
}

func TestResolve_LocalSkippedWithoutTitle(t *testing.T) {
	f := newFakes()
	f.local.res = found
	text := "王小明。碩士論文。深度學習"

	rec := newResolver(f, Options{}).Resolve(context.Background(), 1, reference.Parsed{Text: text})
	if rec.Title != "" {
		t.Fatalf("Title = %q, want none recovered", rec.Title)
	}
	if f.local.calls != 0 {
		t.Error("local table consulted with raw text instead of a title")
	}
	if f.crossref.search.lastQuery != text {
		t.Errorf("search query = %q, want raw text", f.crossref.search.lastQuery)
	}
}

func TestResolve_PanicBecomesDiagnostic(t *testing.T) {
	f := newFakes()
	f.scopus.panics = true
	f.openalex.res = found

	rec := newResolver(f, Options{}).Resolve(context.Background(), 1, reference.Parsed{Text: gaoText})

	if rec.FoundAt != reference.StepOpenAlex {
		t.Errorf("FoundAt = %q, want cascade to continue past the panic", rec.FoundAt)
	}
	var sawPanic bool
	for _, d := range rec.Diagnostics {
		if d.Source == reference.SourceScopus && strings.Contains(d.Status, "panic") {
			sawPanic = true
		}
	}
	if !sawPanic {
		t.Errorf("Diagnostics = %v, want Scopus panic", rec.Diagnostics)
	}
}

func TestResolve_Disabled(t *testing.T) {
	f := newFakes()
	f.scopus.res = found

	rec := newResolver(f, Options{Disabled: map[string]bool{reference.SourceScopus: true}}).
		Resolve(context.Background(), 1, reference.Parsed{Text: gaoText})
	if f.scopus.calls != 0 {
		t.Error("disabled source was called")
	}
	if rec.FoundAt != "" {
		t.Errorf("FoundAt = %q", rec.FoundAt)
	}
}

func TestResolve_Canceled(t *testing.T) {
	f := newFakes()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := newResolver(f, Options{}).Resolve(ctx, 3, reference.Parsed{Text: gaoText})
	if rec.Err != "canceled" {
		t.Errorf("Err = %q, want canceled", rec.Err)
	}
	if f.crossref.search.calls != 0 {
		t.Error("source called after cancellation")
	}
	if rec.ID != 3 || rec.Text != gaoText {
		t.Errorf("record not well formed: %+v", rec)
	}
}

func TestResolve_NoKeysDegradesGracefully(t *testing.T) {
	// One body satisfies every search decoder with an empty result set
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"message":{"items":[]},"results":[],"data":[]}`)
	}))
	defer srv.Close()

	opts := []sources.Option{sources.WithBaseURL(srv.URL), sources.WithRateLimit(0)}
	r := New(Sources{
		Crossref:        sources.NewCrossref(opts...),
		Scopus:          sources.NewScopus(opts...),
		OpenAlex:        sources.NewOpenAlex(opts...),
		SemanticScholar: sources.NewSemanticScholar(opts...),
		Scholar:         sources.NewScholar(opts...),
	}, Options{EnableRefTextFallback: true, Logger: quietLogger()})

	rec := r.Resolve(context.Background(), 1, reference.Parsed{Text: gaoText})

	if rec.Outcome() != reference.OutcomeNotFound {
		t.Errorf("Outcome() = %q, want not_found", rec.Outcome())
	}
	noKey := map[string]bool{}
	for _, d := range rec.Diagnostics {
		if d.Status == sources.StatusNoAPIKey {
			noKey[d.Source] = true
		}
	}
	for _, src := range []string{reference.SourceScopus, reference.SourceScholar, reference.SourceScholarFallback} {
		if !noKey[src] {
			t.Errorf("%s did not report %q; diagnostics = %v", src, sources.StatusNoAPIKey, rec.Diagnostics)
		}
	}
}

func TestIsDirectLink(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://blog.example/post", true},
		{"HTTP://example.org", true},
		{"https://doi.org/10.1000/xyz", false},
		{"https://link.springer.com/article/10.1007/s11263-015-0816-y", false},
		{"ftp://example.org/file", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsDirectLink(tt.url); got != tt.want {
			t.Errorf("IsDirectLink(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}
