package reference

// Step labels where a reference was resolved, in cascade order.
const (
	StepLocal       = "0. Local Database"
	StepCrossrefDOI = "1. Crossref (DOI)"
	StepCrossref    = "1. Crossref (Search)"
	StepScopus      = "2. Scopus"
	StepOpenAlex    = "3. OpenAlex"
	StepS2          = "4. Semantic Scholar"
	StepScholar     = "5. Scholar (Title)"
	StepWebsite     = "6. Website / Direct URL"
	StepLinkFailed  = "6. Website (Link Failed)"
)

// Source names used as keys in Record.Sources and Diagnostic.Source.
const (
	SourceLocal           = "Local DB"
	SourceCrossref        = "Crossref"
	SourceScopus          = "Scopus"
	SourceOpenAlex        = "OpenAlex"
	SourceS2              = "Semantic Scholar"
	SourceScholar         = "Google Scholar"
	SourceScholarFallback = "Google Scholar (Text)"
	SourceWebsite         = "Website"
)

// Outcome is the coarse classification of a Record for filtering and reports.
type Outcome string

const (
	OutcomeVerified   Outcome = "verified"
	OutcomeLinkFailed Outcome = "link_failed"
	OutcomeSuggested  Outcome = "suggested"
	OutcomeNotFound   Outcome = "not_found"
	OutcomeFailed     Outcome = "failed"
)

// Diagnostic is the status string reported by one source for one reference.
type Diagnostic struct {
	Source string `json:"source"`
	Status string `json:"status"`
}

// Record is the resolution outcome for one reference.
type Record struct {
	ID          int               `json:"id"` // 1-based position in the input
	Title       string            `json:"title"`
	Text        string            `json:"text"`
	Parsed      Parsed            `json:"parsed"`
	Sources     map[string]string `json:"sources"`
	FoundAt     string            `json:"found_at_step,omitempty"`
	Suggestion  string            `json:"suggestion,omitempty"`
	Diagnostics []Diagnostic      `json:"diagnostics,omitempty"`
	Err         string            `json:"error,omitempty"` // resolution aborted unexpectedly
}

// Verified reports whether a source confirmed the reference. A dead direct
// URL is terminal but not verified.
func (r Record) Verified() bool {
	return r.FoundAt != "" && r.FoundAt != StepLinkFailed
}

// LinkFailed reports whether the only evidence was an unreachable URL.
func (r Record) LinkFailed() bool {
	return r.FoundAt == StepLinkFailed
}

// Outcome classifies the record.
func (r Record) Outcome() Outcome {
	switch {
	case r.Err != "":
		return OutcomeFailed
	case r.LinkFailed():
		return OutcomeLinkFailed
	case r.Verified():
		return OutcomeVerified
	case r.Suggestion != "":
		return OutcomeSuggested
	default:
		return OutcomeNotFound
	}
}

// StatusLabel returns the step label, or "Not Found".
func (r Record) StatusLabel() string {
	if r.Err != "" {
		return "Error"
	}
	if r.FoundAt != "" {
		return r.FoundAt
	}
	return "Not Found"
}

// FirstLink returns the winning source's link, if any.
func (r Record) FirstLink() string {
	// Sources holds at most the winning entry
	for _, link := range r.Sources {
		return link
	}
	return ""
}

// AddDiagnostic appends a status for a source.
func (r *Record) AddDiagnostic(source, status string) {
	r.Diagnostics = append(r.Diagnostics, Diagnostic{Source: source, Status: status})
}
