// Package scheduler resolves a batch of references on a bounded worker pool.
package scheduler

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/cwz-bot/reference-check/internal/reference"
)

// DefaultMaxWorkers is the pool size when Options.MaxWorkers is unset.
const DefaultMaxWorkers = 5

// Resolver resolves one reference. *cascade.Resolver satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, id int, p reference.Parsed) reference.Record
}

// Options configures a batch run.
type Options struct {
	MaxWorkers int

	// Progress, if set, is called after each reference completes. Calls are
	// serialized.
	Progress func(done, total int)

	Logger *slog.Logger
}

// ResolveAll resolves refs concurrently and returns exactly one record per
// input, ordered by 1-based ID. A panicking resolution yields a record with
// Err set; references not started before ctx is canceled are marked
// canceled.
func ResolveAll(ctx context.Context, r Resolver, refs []reference.Parsed, opts Options) []reference.Record {
	total := len(refs)
	records := make([]reference.Record, total)
	if total == 0 {
		return records
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	workers := opts.MaxWorkers
	if workers <= 0 {
		workers = DefaultMaxWorkers
	}
	workers = min(workers, total)

	var (
		mu   sync.Mutex
		done int
	)
	finish := func() {
		if opts.Progress == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		done++
		opts.Progress(done, total)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, p := range refs {
		if gCtx.Err() != nil {
			records[i] = failedRecord(i+1, p, "canceled")
			finish()
			continue
		}
		g.Go(func() error {
			records[i] = resolveOne(gCtx, r, i+1, p, log)
			finish()
			return nil
		})
	}
	_ = g.Wait() // failures are captured in Record.Err

	slices.SortStableFunc(records, func(a, b reference.Record) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return records
}

func resolveOne(ctx context.Context, r Resolver, id int, p reference.Parsed, log *slog.Logger) (rec reference.Record) {
	defer func() {
		if v := recover(); v != nil {
			log.Error("resolution panicked", "id", id, "panic", v)
			rec = failedRecord(id, p, fmt.Sprintf("panic: %v", v))
		}
	}()

	rec = r.Resolve(ctx, id, p)
	rec.ID = id
	return rec
}

func failedRecord(id int, p reference.Parsed, reason string) reference.Record {
	p = p.EnsureText()
	return reference.Record{
		ID:      id,
		Title:   p.Title,
		Text:    p.Text,
		Parsed:  p,
		Sources: make(map[string]string),
		Err:     reason,
	}
}
