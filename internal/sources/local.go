package sources

import (
	"context"
	"fmt"

	"github.com/cwz-bot/reference-check/internal/localdb"
	"github.com/cwz-bot/reference-check/internal/match"
)

// Local matches CJK titles against an in-memory catalogue. A nil index
// skips every lookup.
type Local struct {
	index     *localdb.Index
	threshold float64
}

// NewLocal wraps ix. threshold <= 0 selects localdb.DefaultThreshold.
func NewLocal(ix *localdb.Index, threshold float64) *Local {
	if threshold <= 0 {
		threshold = localdb.DefaultThreshold
	}
	return &Local{index: ix, threshold: threshold}
}

// Search looks up title. The result has no URL; its status names the
// matched row.
func (l *Local) Search(ctx context.Context, title string) Result {
	if l == nil || l.index == nil {
		return skipped(StatusNoLocalTable)
	}
	if err := ctx.Err(); err != nil {
		return failed(err)
	}
	if !match.HasCJK(title) {
		return skipped(StatusNotCJK)
	}

	m, ok := l.index.Lookup(title, l.threshold)
	if !ok {
		return noResult(StatusBelowThresh)
	}
	return Result{
		Status: fmt.Sprintf("Local match: %s (score %.2f)", m.Title, m.Score),
		Kind:   KindMatch,
	}
}
