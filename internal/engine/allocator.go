package engine

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const dayKeyFormat = "2006-01-02"

// openBatch is an in-progress batch being filled during allocation.
type openBatch struct {
	claims []Claim
	total  decimal.Decimal
	exempt bool // isolated large-value singleton, exempt from min size
}

func (ob *openBatch) add(c Claim) {
	ob.claims = append(ob.claims, c)
	ob.total = ob.total.Add(c.TotalAmount)
}

// bucket is the working set of one provider's claims tentatively assigned to
// one processing date, split into open batches.
type bucket struct {
	provider string
	date     time.Time
	batches  []*openBatch

	// receivedRollover marks a bucket that already absorbed another day's
	// undersized remainder; such buckets never roll over again.
	receivedRollover bool
}

type bucketKey struct {
	provider string
	day      string
}

// allocState carries all mutable allocation state for one insurer's run:
// insurer-wide per-day claim counts, the ranked candidate-date pool, and the
// open buckets. Threaded explicitly through the allocation passes so each
// stage stays testable on its own.
type allocState struct {
	cfg       InsurerConfig
	pool      []time.Time
	poolEnd   time.Time // latest calendar date in the pool, for extension
	dayCounts map[string]int
	buckets   map[bucketKey]*bucket
}

func newAllocState(cfg InsurerConfig, now time.Time) *allocState {
	pool := OptimalDates(now)
	end := pool[0]
	for _, d := range pool {
		if d.After(end) {
			end = d
		}
	}
	return &allocState{
		cfg:       cfg,
		pool:      pool,
		poolEnd:   end,
		dayCounts: make(map[string]int),
		buckets:   make(map[bucketKey]*bucket),
	}
}

func (st *allocState) hasCapacity(date time.Time) bool {
	if st.cfg.DailyCapacity <= 0 {
		return true
	}
	return st.dayCounts[date.Format(dayKeyFormat)] < st.cfg.DailyCapacity
}

func (st *allocState) countClaim(date time.Time) {
	st.dayCounts[date.Format(dayKeyFormat)]++
}

func (st *allocState) uncountClaim(date time.Time) {
	st.dayCounts[date.Format(dayKeyFormat)]--
}

// pickDate finds the processing date for a claim: the first date in its
// priority tier with spare capacity, then the first anywhere in the ranked
// pool, then successive calendar days appended past the pool's end.
// Extending the pool guarantees progress even when every ranked date is
// saturated, without over-assigning any day.
func (st *allocState) pickDate(priority int) time.Time {
	for _, d := range tierSlice(st.pool, priority) {
		if st.hasCapacity(d) {
			return d
		}
	}
	for _, d := range st.pool {
		if st.hasCapacity(d) {
			return d
		}
	}
	for {
		st.poolEnd = st.poolEnd.AddDate(0, 0, 1)
		st.pool = append(st.pool, st.poolEnd)
		if st.hasCapacity(st.poolEnd) {
			return st.poolEnd
		}
	}
}

func (st *allocState) bucketFor(provider string, date time.Time) *bucket {
	key := bucketKey{provider, date.Format(dayKeyFormat)}
	b, ok := st.buckets[key]
	if !ok {
		b = &bucket{provider: provider, date: date}
		st.buckets[key] = b
	}
	return b
}

// allocate assigns one provider's sorted claims to (provider, date) buckets
// and open batches. Never drops a claim; size and threshold violations left
// behind here are corrected by the optimizer and reconciler passes.
func (st *allocState) allocate(claims []Claim) {
	for _, c := range claims {
		date := st.pickDate(c.Priority)
		st.placeInBucket(st.bucketFor(c.ProviderName, date), c)
		st.countClaim(date)
	}
}

// placeInBucket adds a claim to the first open batch with room that the
// claim would not push across the value threshold while the batch is still
// smaller than half the minimum size. Starts a new batch otherwise.
func (st *allocState) placeInBucket(b *bucket, c Claim) {
	for _, ob := range b.batches {
		if st.cfg.MaxBatchSize > 0 && len(ob.claims) >= st.cfg.MaxBatchSize {
			continue
		}
		if st.wouldPoison(ob, c) {
			continue
		}
		ob.add(c)
		return
	}
	nb := &openBatch{}
	nb.add(c)
	b.batches = append(b.batches, nb)
}

// wouldPoison reports whether adding the claim would push a still-small
// batch from below the value threshold to at or above it.
func (st *allocState) wouldPoison(ob *openBatch, c Claim) bool {
	if !st.cfg.thresholdActive() {
		return false
	}
	if len(ob.claims)*2 >= st.cfg.MinBatchSize {
		return false
	}
	return ob.total.LessThan(st.cfg.ClaimValueThreshold) &&
		ob.total.Add(c.TotalAmount).GreaterThanOrEqual(st.cfg.ClaimValueThreshold)
}

// sortedBuckets returns the buckets in ascending date order (provider name
// breaking ties) so downstream passes see rollover targets after their
// source dates.
func (st *allocState) sortedBuckets() []*bucket {
	out := make([]*bucket, 0, len(st.buckets))
	for _, b := range st.buckets {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].date.Equal(out[j].date) {
			return out[i].date.Before(out[j].date)
		}
		return out[i].provider < out[j].provider
	})
	return out
}
