package engine

import (
	"sort"
	"time"
)

// reconcile enforces the minimum batch size across every bucket, processing
// buckets in ascending date order so claims rolled to a later day land in a
// bucket that has not been reconciled yet and go through redistribution
// there.
func (st *allocState) reconcile() {
	done := make(map[bucketKey]bool)
	for {
		var next *bucket
		for _, b := range st.sortedBuckets() {
			if !done[bucketKey{b.provider, b.date.Format(dayKeyFormat)}] {
				next = b
				break
			}
		}
		if next == nil {
			return
		}
		done[bucketKey{next.provider, next.date.Format(dayKeyFormat)}] = true
		st.reconcileBucket(next)
	}
}

// reconcileBucket pools claims from undersized non-exempt batches, refills
// kept batches that still have room, chunks the rest into new batches, and
// rolls a final undersized remainder to the provider's next free day. A
// bucket that already received a rollover does not roll again; its remainder
// is absorbed into any same-provider batch with room, or finalized
// undersized as a last resort, so no claim is ever dropped or loops forever.
func (st *allocState) reconcileBucket(b *bucket) {
	cfg := st.cfg

	var kept []*openBatch
	var pending []Claim
	for _, ob := range b.batches {
		if ob.exempt || len(ob.claims) >= cfg.MinBatchSize {
			kept = append(kept, ob)
			continue
		}
		pending = append(pending, ob.claims...)
	}

	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].TotalAmount.GreaterThan(pending[j].TotalAmount)
	})

	// Refill kept batches with room under the max.
	var remaining []Claim
	for _, c := range pending {
		placed := false
		for _, ob := range kept {
			if ob.exempt {
				continue
			}
			if cfg.MaxBatchSize > 0 && len(ob.claims) >= cfg.MaxBatchSize {
				continue
			}
			ob.add(c)
			placed = true
			break
		}
		if !placed {
			remaining = append(remaining, c)
		}
	}

	// Chunk leftovers into new batches of max(min, ceil(n/2)), clamped to
	// the max size. A chunk that cannot reach the minimum stops the loop.
	for len(remaining) > 0 {
		size := max(cfg.MinBatchSize, (len(remaining)+1)/2)
		if cfg.MaxBatchSize > 0 && size > cfg.MaxBatchSize {
			size = cfg.MaxBatchSize
		}
		if size > len(remaining) {
			break
		}
		ob := &openBatch{}
		for _, c := range remaining[:size] {
			ob.add(c)
		}
		kept = append(kept, ob)
		remaining = remaining[size:]
	}

	b.batches = kept

	if len(remaining) == 0 {
		return
	}
	if b.receivedRollover {
		st.absorbOrFinalize(b, remaining)
		return
	}
	st.rollover(b, remaining)
}

// rollover moves an undersized remainder to the provider's next calendar day
// with spare capacity. Day counters follow the claims.
func (st *allocState) rollover(b *bucket, claims []Claim) {
	date := st.rolloverDate(b.date, len(claims))
	target := st.bucketFor(b.provider, date)
	target.receivedRollover = true

	ob := &openBatch{}
	for _, c := range claims {
		st.uncountClaim(b.date)
		st.countClaim(date)
		ob.add(c)
	}
	target.batches = append(target.batches, ob)
}

// rolloverDate returns the first day after the given date that can take n
// more claims. Future days carry no assignments yet, so the scan terminates.
func (st *allocState) rolloverDate(after time.Time, n int) time.Time {
	d := after.AddDate(0, 0, 1)
	for {
		count := st.dayCounts[d.Format(dayKeyFormat)]
		switch {
		case st.cfg.DailyCapacity <= 0:
			return d
		case count+n <= st.cfg.DailyCapacity:
			return d
		case n > st.cfg.DailyCapacity && count == 0:
			// The remainder alone exceeds a day's capacity; an empty day is
			// the least bad placement.
			return d
		}
		d = d.AddDate(0, 0, 1)
	}
}

// absorbOrFinalize distributes a twice-stranded remainder into any of the
// provider's batches with room, on any date, adjusting day counters when a
// claim changes days. Whatever still cannot be placed becomes one undersized
// batch on the current date.
func (st *allocState) absorbOrFinalize(b *bucket, claims []Claim) {
	var stranded []Claim
	for _, c := range claims {
		placed := false
		for _, other := range st.sortedBuckets() {
			if other.provider != b.provider {
				continue
			}
			if !other.date.Equal(b.date) && !st.hasCapacity(other.date) {
				continue
			}
			for _, ob := range other.batches {
				if ob.exempt || len(ob.claims) < st.cfg.MinBatchSize {
					continue
				}
				if st.cfg.MaxBatchSize > 0 && len(ob.claims) >= st.cfg.MaxBatchSize {
					continue
				}
				ob.add(c)
				if !other.date.Equal(b.date) {
					st.uncountClaim(b.date)
					st.countClaim(other.date)
				}
				placed = true
				break
			}
			if placed {
				break
			}
		}
		if !placed {
			stranded = append(stranded, c)
		}
	}
	if len(stranded) > 0 {
		ob := &openBatch{}
		for _, c := range stranded {
			ob.add(c)
		}
		b.batches = append(b.batches, ob)
	}
}
