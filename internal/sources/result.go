// Package sources provides clients for the bibliographic services consulted
// when checking a reference.
//
// Every lookup returns a Result rather than an error: network failures,
// missing keys, and rejected candidates are all reported as a Kind plus a
// human-readable Status so the caller can move on to the next service.
package sources

// Status strings shared by the clients.
const (
	StatusOK            = "OK"
	StatusNoAPIKey      = "No API Key"
	StatusNoResults     = "No results"
	StatusBelowThresh   = "Match failed (Below Threshold)"
	StatusNoQuery       = "Skipped (nothing to search)"
	StatusNoLocalTable  = "Skipped (no local table)"
	StatusNotCJK        = "Skipped (title not CJK)"
	StatusNotEligible   = "Skipped (not a plain web link)"
	statusTitleMismatch = "Match failed (DOI title mismatch)"
)

// Kind classifies a lookup outcome.
type Kind int

const (
	KindNoResult   Kind = iota // searched, nothing acceptable
	KindMatch                  // confident match
	KindSimilar                // match above threshold, not exact
	KindSuggestion             // low-confidence candidate for manual review
	KindSkipped                // not attempted (missing key, ineligible query)
	KindError                  // service or network failure
)

func (k Kind) String() string {
	switch k {
	case KindMatch:
		return "match"
	case KindSimilar:
		return "similar"
	case KindSuggestion:
		return "suggestion"
	case KindSkipped:
		return "skipped"
	case KindError:
		return "error"
	default:
		return "no_result"
	}
}

// Result is the outcome of one lookup.
type Result struct {
	URL    string
	Status string
	Kind   Kind
}

// Found reports whether the result verifies the reference.
func (r Result) Found() bool {
	return r.Kind == KindMatch || r.Kind == KindSimilar
}

// Link returns the URL, falling back to the status note for sources that
// confirm without a link (the local table).
func (r Result) Link() string {
	if r.URL != "" {
		return r.URL
	}
	return r.Status
}

func matched(url string) Result {
	return Result{URL: url, Status: StatusOK, Kind: KindMatch}
}

func similar(url string) Result {
	return Result{URL: url, Status: StatusOK, Kind: KindSimilar}
}

func noResult(status string) Result {
	return Result{Status: status, Kind: KindNoResult}
}

func skipped(status string) Result {
	return Result{Status: status, Kind: KindSkipped}
}

func failed(err error) Result {
	return Result{Status: StatusFor(err), Kind: KindError}
}
