// Package engine implements the batch allocation engine: it groups an
// insurer's pending claims into size-bounded, capacity-respecting batches on
// cost-ranked processing dates. The planning pipeline is pure; all reads
// happen up front and all writes happen in one commit at the end.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store is the engine's view of the outside world: claim and insurer-config
// reads plus one atomic batch-assignment write.
type Store interface {
	// Insurers returns every configured insurer.
	Insurers(ctx context.Context) ([]InsurerConfig, error)

	// PendingClaims returns claims with status=pending and is_batched=false
	// for one insurer, optionally restricted to one submitter ("" = all).
	PendingClaims(ctx context.Context, insurerCode, submitter string) ([]Claim, error)

	// CommitBatches applies a full batch plan in a single transaction:
	// batch records plus every member claim's batching fields, all or
	// nothing.
	CommitBatches(ctx context.Context, insurerCode, runID string, batches []Batch) error
}

// BatchingError wraps a failure during one insurer's run with enough context
// to report it. Other insurers in the same run are unaffected.
type BatchingError struct {
	InsurerCode   string
	PendingClaims int
	Err           error
}

func (e *BatchingError) Error() string {
	return fmt.Sprintf("batching insurer %s (%d pending claims): %v", e.InsurerCode, e.PendingClaims, e.Err)
}

func (e *BatchingError) Unwrap() error { return e.Err }

// Options control a processing run.
type Options struct {
	// Submitter restricts the run to one submitting party's claims.
	Submitter string
	// DryRun computes batch plans without committing them.
	DryRun bool
}

// Engine runs the allocation pipeline against a Store.
type Engine struct {
	Store Store
	// Now supplies the reference time for the candidate-date pool.
	// Defaults to time.Now.
	Now func() time.Time
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// PlanInsurer computes the full batch plan for one insurer's pending claims.
// Pure: no I/O, no errors, deterministic for a fixed reference time. Claims
// that are not pending or already batched are ignored. Returned batches
// carry claims with their batching fields already set.
func PlanInsurer(cfg InsurerConfig, claims []Claim, now time.Time) []Batch {
	var pending []Claim
	for _, c := range claims {
		if c.Status == StatusPending && !c.IsBatched {
			pending = append(pending, c)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	st := newAllocState(cfg, now)
	groups, providers := groupByProvider(pending)
	for _, p := range providers {
		g := groups[p]
		sortForAllocation(g, cfg)
		st.allocate(g)
	}
	for _, b := range st.sortedBuckets() {
		optimizeThreshold(b, cfg)
	}
	st.reconcile()
	return st.finalize()
}

// finalize turns the reconciled buckets into identified batches with
// aggregate value and cost. Costs use the batch's assigned date, not the
// claims' original date fields.
func (st *allocState) finalize() []Batch {
	var out []Batch
	for _, b := range st.sortedBuckets() {
		seq := 0
		for _, ob := range b.batches {
			if len(ob.claims) == 0 {
				continue
			}
			seq++
			batch := Batch{
				ID:              batchID(b.provider, b.date, seq),
				ProviderName:    b.provider,
				Date:            b.date,
				TotalValue:      ob.total,
				thresholdExempt: ob.exempt,
			}
			for _, c := range ob.claims {
				c.BatchID = batch.ID
				c.BatchDate = b.date
				c.IsBatched = true
				c.Status = StatusBatched
				batch.Claims = append(batch.Claims, c)
				batch.ProcessingCost += claimCost(c, st.cfg, b.date)
			}
			out = append(out, batch)
		}
	}
	return out
}

// ProcessInsurer snapshots one insurer's pending claims, plans, and commits.
// Any failure comes back as a *BatchingError and leaves the claims pending.
func (e *Engine) ProcessInsurer(ctx context.Context, cfg InsurerConfig, opts Options) ([]BatchSummary, error) {
	claims, err := e.Store.PendingClaims(ctx, cfg.Code, opts.Submitter)
	if err != nil {
		return nil, &BatchingError{InsurerCode: cfg.Code, Err: fmt.Errorf("loading pending claims: %w", err)}
	}
	if len(claims) == 0 {
		return nil, nil
	}

	batches := PlanInsurer(cfg, claims, e.now())
	if len(batches) == 0 {
		return nil, nil
	}

	if !opts.DryRun {
		runID := uuid.NewString()
		if err := e.Store.CommitBatches(ctx, cfg.Code, runID, batches); err != nil {
			return nil, &BatchingError{
				InsurerCode:   cfg.Code,
				PendingClaims: len(claims),
				Err:           fmt.Errorf("committing %d batches: %w", len(batches), err),
			}
		}
	}

	summaries := make([]BatchSummary, 0, len(batches))
	for _, b := range batches {
		summaries = append(summaries, b.Summary())
	}
	return summaries, nil
}

// ProcessPending runs every insurer in sequence. Insurers with no matching
// pending claims are omitted from the result map. Per-insurer failures are
// joined into the returned error; successful insurers stay in the map.
func (e *Engine) ProcessPending(ctx context.Context, opts Options) (map[string][]BatchSummary, error) {
	insurers, err := e.Store.Insurers(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading insurers: %w", err)
	}

	results := make(map[string][]BatchSummary)
	var errs []error
	for _, cfg := range insurers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		summaries, err := e.ProcessInsurer(ctx, cfg, opts)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if len(summaries) > 0 {
			results[cfg.Code] = summaries
		}
	}
	return results, errors.Join(errs...)
}
