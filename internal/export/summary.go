package export

import (
	"slices"
	"strings"

	"github.com/cwz-bot/reference-check/internal/reference"
)

// StepCount is the number of references resolved at one cascade step.
type StepCount struct {
	Step  string `json:"step"`
	Count int    `json:"count"`
}

// Summary aggregates a batch of checked references.
type Summary struct {
	Total      int         `json:"total"`
	Verified   int         `json:"verified"`
	LinkFailed int         `json:"link_failed"`
	Suggested  int         `json:"suggested"`
	NotFound   int         `json:"not_found"`
	Failed     int         `json:"failed"`
	ByStep     []StepCount `json:"by_step"`
}

// Summarize counts outcomes. ByStep is ordered by step label, which follows
// cascade order.
func Summarize(records []reference.Record) Summary {
	s := Summary{Total: len(records)}
	steps := make(map[string]int)
	for _, r := range records {
		switch r.Outcome() {
		case reference.OutcomeVerified:
			s.Verified++
		case reference.OutcomeLinkFailed:
			s.LinkFailed++
		case reference.OutcomeSuggested:
			s.Suggested++
		case reference.OutcomeFailed:
			s.Failed++
		default:
			s.NotFound++
		}
		if r.FoundAt != "" {
			steps[r.FoundAt]++
		}
	}

	for step, n := range steps {
		s.ByStep = append(s.ByStep, StepCount{Step: step, Count: n})
	}
	slices.SortFunc(s.ByStep, func(a, b StepCount) int {
		return strings.Compare(a.Step, b.Step)
	})
	return s
}

// VerifiedPercent returns the share of verified references, 0 for an empty
// batch.
func (s Summary) VerifiedPercent() float64 {
	if s.Total == 0 {
		return 0
	}
	return 100 * float64(s.Verified) / float64(s.Total)
}
