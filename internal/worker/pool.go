// Package worker fans per-insurer batch runs out across a bounded set of
// goroutines. Each run owns all of its allocation state, so insurers are
// isolated failure domains and need no shared locking.
package worker

import (
	"context"
	"sync"

	"github.com/gyeh/claim-batcher/internal/engine"
	"github.com/gyeh/claim-batcher/internal/progress"
)

// Result holds the outcome of one insurer's run.
type Result struct {
	InsurerCode string
	Batches     []engine.BatchSummary
	Err         error
}

// Pool manages concurrent processing of insurers.
type Pool struct {
	Workers  int
	Engine   *engine.Engine
	Options  engine.Options
	Progress progress.Manager
}

// Run processes all insurers concurrently and returns all results.
func (p *Pool) Run(ctx context.Context, insurers []engine.InsurerConfig) []Result {
	results := make([]Result, len(insurers))

	sem := make(chan struct{}, p.Workers)
	var wg sync.WaitGroup

	for i, cfg := range insurers {
		wg.Add(1)
		go func(idx int, cfg engine.InsurerConfig) {
			defer wg.Done()

			// Acquire semaphore
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results[idx] = Result{InsurerCode: cfg.Code, Err: ctx.Err()}
				return
			}
			defer func() { <-sem }()

			tracker := p.Progress.NewTracker(idx, len(insurers), cfg.Code)
			tracker.SetStage("processing")
			batches, err := p.Engine.ProcessInsurer(ctx, cfg, p.Options)
			results[idx] = Result{InsurerCode: cfg.Code, Batches: batches, Err: err}
			tracker.SetCounter("batches", int64(len(batches)))
			tracker.Done()
		}(i, cfg)
	}

	wg.Wait()
	return results
}
