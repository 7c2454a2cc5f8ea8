// Package cascade resolves one reference by consulting bibliographic sources
// in priority order and stopping at the first confident match.
package cascade

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cwz-bot/reference-check/internal/match"
	"github.com/cwz-bot/reference-check/internal/reference"
	"github.com/cwz-bot/reference-check/internal/refine"
	"github.com/cwz-bot/reference-check/internal/sources"
)

// TitleSearcher looks a reference up by title alone.
type TitleSearcher interface {
	Search(ctx context.Context, title string) sources.Result
}

// AuthorSearcher looks a reference up by title, with the first author's
// family name as a fallback hint.
type AuthorSearcher interface {
	Search(ctx context.Context, title, author string) sources.Result
}

// DOISearcher resolves DOIs and also searches bibliographically.
type DOISearcher interface {
	ByDOI(ctx context.Context, doi, title string) sources.Result
	AuthorSearcher
}

// ScholarSearcher searches a full-text engine by title and by raw text.
type ScholarSearcher interface {
	ByTitle(ctx context.Context, title string) sources.Result
	ByRefText(ctx context.Context, text string) sources.Result
}

// LinkChecker reports whether a URL is reachable.
type LinkChecker interface {
	Check(ctx context.Context, rawURL string) sources.Result
}

// Sources are the services consulted. A nil source is never called.
type Sources struct {
	Local           TitleSearcher
	Crossref        DOISearcher
	Scopus          TitleSearcher
	OpenAlex        AuthorSearcher
	SemanticScholar AuthorSearcher
	Scholar         ScholarSearcher
	Website         LinkChecker
}

// Options controls which steps run. Similarity thresholds are configured on
// the individual sources.
type Options struct {
	// EnableRefTextFallback searches the raw reference text on Scholar when
	// every title search failed. Hits are kept as suggestions only.
	EnableRefTextFallback bool

	// Disabled lists source names (reference.Source*) to skip.
	Disabled map[string]bool

	Logger *slog.Logger
}

// Resolver runs the cascade. It holds no per-reference state and is safe for
// concurrent use when its sources are.
type Resolver struct {
	src  Sources
	opts Options
	log  *slog.Logger
}

// New creates a Resolver.
func New(src Sources, opts Options) *Resolver {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{src: src, opts: opts, log: log}
}

type stepKind int

const (
	stepVerify stepKind = iota
	stepSuggest
	stepLink
)

type step struct {
	label  string // reference.Step*, empty for the suggestion step
	source string // reference.Source*
	kind   stepKind
	run    func(ctx context.Context) sources.Result
}

// Resolve refines p and walks the cascade. It always returns a well-formed
// record; a canceled context stops the walk and sets Err.
func (r *Resolver) Resolve(ctx context.Context, id int, p reference.Parsed) reference.Record {
	p = refine.Refine(p)
	rec := reference.Record{
		ID:      id,
		Title:   p.Title,
		Text:    p.Text,
		Parsed:  p,
		Sources: make(map[string]string),
	}
	log := r.log.With("id", id)

	for _, s := range r.plan(p) {
		if ctx.Err() != nil {
			rec.Err = "canceled"
			log.Debug("resolution canceled", "before", s.source)
			return rec
		}

		res := r.try(ctx, s)
		rec.AddDiagnostic(s.source, res.Status)
		log.Debug("source consulted", "source", s.source, "kind", res.Kind.String(), "status", res.Status)

		switch s.kind {
		case stepSuggest:
			if res.Kind == sources.KindSuggestion && res.URL != "" {
				rec.Suggestion = res.URL
			}
		case stepLink:
			switch {
			case res.Found():
				rec.Sources[s.source] = res.Link()
				rec.FoundAt = s.label
				return rec
			case res.Kind == sources.KindNoResult:
				rec.Sources[s.source] = p.URL
				rec.FoundAt = reference.StepLinkFailed
				return rec
			}
		default:
			if res.Found() {
				rec.Sources[s.source] = res.Link()
				rec.FoundAt = s.label
				return rec
			}
		}
	}

	if ctx.Err() != nil {
		rec.Err = "canceled"
	}
	return rec
}

// plan lists the applicable steps for p in cascade order.
func (r *Resolver) plan(p reference.Parsed) []step {
	query := refine.QueryText(p)
	author := p.FirstAuthor()

	var steps []step
	add := func(enabled bool, label, source string, kind stepKind, run func(context.Context) sources.Result) {
		if enabled && !r.opts.Disabled[source] {
			steps = append(steps, step{label: label, source: source, kind: kind, run: run})
		}
	}

	add(r.src.Local != nil && match.HasCJK(p.Title), reference.StepLocal, reference.SourceLocal, stepVerify,
		func(ctx context.Context) sources.Result { return r.src.Local.Search(ctx, p.Title) })

	add(r.src.Crossref != nil && p.DOI != "", reference.StepCrossrefDOI, reference.SourceCrossref, stepVerify,
		func(ctx context.Context) sources.Result { return r.src.Crossref.ByDOI(ctx, p.DOI, p.Title) })

	add(r.src.Crossref != nil && query != "", reference.StepCrossref, reference.SourceCrossref, stepVerify,
		func(ctx context.Context) sources.Result { return r.src.Crossref.Search(ctx, query, author) })

	add(r.src.Scopus != nil && query != "", reference.StepScopus, reference.SourceScopus, stepVerify,
		func(ctx context.Context) sources.Result { return r.src.Scopus.Search(ctx, query) })

	add(r.src.OpenAlex != nil && query != "", reference.StepOpenAlex, reference.SourceOpenAlex, stepVerify,
		func(ctx context.Context) sources.Result { return r.src.OpenAlex.Search(ctx, query, author) })

	add(r.src.SemanticScholar != nil && query != "", reference.StepS2, reference.SourceS2, stepVerify,
		func(ctx context.Context) sources.Result { return r.src.SemanticScholar.Search(ctx, query, author) })

	add(r.src.Scholar != nil && query != "", reference.StepScholar, reference.SourceScholar, stepVerify,
		func(ctx context.Context) sources.Result { return r.src.Scholar.ByTitle(ctx, query) })

	add(r.src.Scholar != nil && r.opts.EnableRefTextFallback && p.Text != "", "", reference.SourceScholarFallback, stepSuggest,
		func(ctx context.Context) sources.Result { return r.src.Scholar.ByRefText(ctx, p.Text) })

	add(r.src.Website != nil && IsDirectLink(p.URL), reference.StepWebsite, reference.SourceWebsite, stepLink,
		func(ctx context.Context) sources.Result { return r.src.Website.Check(ctx, p.URL) })

	return steps
}

// try runs one step, converting a panic into an error result.
func (r *Resolver) try(ctx context.Context, s step) (res sources.Result) {
	defer func() {
		if v := recover(); v != nil {
			r.log.Error("source panicked", "source", s.source, "panic", v)
			res = sources.Result{Status: fmt.Sprintf("Error: panic: %v", v), Kind: sources.KindError}
		}
	}()
	return s.run(ctx)
}

// IsDirectLink reports whether u is a plain web link worth a liveness check:
// http(s), not a DOI resolver, and not carrying a DOI.
func IsDirectLink(u string) bool {
	lower := strings.ToLower(strings.TrimSpace(u))
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return false
	}
	return !refine.IsDOIResolverURL(u) && !refine.ContainsDOI(u)
}
