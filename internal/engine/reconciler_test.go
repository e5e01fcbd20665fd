package engine

import (
	"testing"
	"time"
)

// seedBucket registers claims in a bucket as a set of pre-sized batches and
// keeps the day counters consistent.
func seedBucket(st *allocState, provider string, date time.Time, sizes ...int) *bucket {
	b := st.bucketFor(provider, date)
	id := int64(1)
	for _, ob := range b.batches {
		for _, c := range ob.claims {
			if c.ID >= id {
				id = c.ID + 1
			}
		}
	}
	for _, size := range sizes {
		ob := &openBatch{}
		for i := 0; i < size; i++ {
			ob.add(Claim{ID: id, ProviderName: provider, TotalAmount: amount(100 * id)})
			st.countClaim(date)
			id++
		}
		b.batches = append(b.batches, ob)
	}
	return b
}

func allBatches(st *allocState) []*openBatch {
	var out []*openBatch
	for _, b := range st.sortedBuckets() {
		for _, ob := range b.batches {
			if len(ob.claims) > 0 {
				out = append(out, ob)
			}
		}
	}
	return out
}

func TestReconcile_MergesUndersizedBatches(t *testing.T) {
	cfg := testConfig()
	cfg.MinBatchSize = 3
	cfg.MaxBatchSize = 5
	st := newAllocState(cfg, day(1))

	// Two undersized batches of 2. Reconciliation pools them, chunks three
	// claims into a new batch, rolls the leftover to the next day, and the
	// rolled claim is absorbed back into the chunk batch.
	seedBucket(st, "General Hospital", day(1), 2, 2)
	st.reconcile()

	batches := allBatches(st)
	if len(batches) != 1 {
		t.Fatalf("got %d batches, want 1", len(batches))
	}
	if len(batches[0].claims) != 4 {
		t.Errorf("merged batch has %d claims, want 4", len(batches[0].claims))
	}
	for key, n := range st.dayCounts {
		if n < 0 {
			t.Errorf("day %s count went negative: %d", key, n)
		}
	}
}

func TestReconcile_KeepsQualifyingBatches(t *testing.T) {
	cfg := testConfig()
	cfg.MinBatchSize = 3
	cfg.MaxBatchSize = 5
	st := newAllocState(cfg, day(1))

	seedBucket(st, "General Hospital", day(1), 5, 3)
	st.reconcile()

	batches := allBatches(st)
	if len(batches) != 2 {
		t.Fatalf("got %d batches, want 2 untouched", len(batches))
	}
	if len(batches[0].claims)+len(batches[1].claims) != 8 {
		t.Errorf("claims went missing during reconciliation")
	}
}

func TestReconcile_ExemptSingletonUntouched(t *testing.T) {
	cfg := testConfig()
	cfg.MinBatchSize = 3
	st := newAllocState(cfg, day(1))

	b := st.bucketFor("General Hospital", day(1))
	exempt := &openBatch{exempt: true}
	exempt.add(Claim{ID: 99, ProviderName: "General Hospital", TotalAmount: amount(5000)})
	b.batches = append(b.batches, exempt)
	st.countClaim(day(1))
	seedBucket(st, "General Hospital", day(1), 3)

	st.reconcile()

	found := false
	for _, ob := range allBatches(st) {
		if ob.exempt {
			found = true
			if len(ob.claims) != 1 || ob.claims[0].ID != 99 {
				t.Errorf("exempt singleton was modified: %d claims", len(ob.claims))
			}
		}
	}
	if !found {
		t.Error("exempt singleton disappeared during reconciliation")
	}
}

func TestReconcile_RolloverRespectsCapacity(t *testing.T) {
	cfg := testConfig()
	cfg.MinBatchSize = 3
	cfg.MaxBatchSize = 5
	cfg.DailyCapacity = 4
	st := newAllocState(cfg, day(1))

	// Day 1 holds 4 claims (at capacity) in undersized batches; day 2 is
	// full too. The leftover must skip to a later day with room.
	seedBucket(st, "General Hospital", day(1), 2, 2)
	for i := 0; i < cfg.DailyCapacity; i++ {
		st.countClaim(day(2))
	}

	st.reconcile()

	for key, n := range st.dayCounts {
		if n > cfg.DailyCapacity {
			t.Errorf("day %s count %d exceeds capacity %d", key, n, cfg.DailyCapacity)
		}
	}
	total := 0
	for _, ob := range allBatches(st) {
		total += len(ob.claims)
	}
	if total != 4 {
		t.Errorf("claims after reconcile = %d, want 4", total)
	}
}

func TestRolloverDate_SkipsFullDays(t *testing.T) {
	cfg := testConfig()
	cfg.DailyCapacity = 5
	st := newAllocState(cfg, day(1))

	for i := 0; i < 4; i++ {
		st.countClaim(day(2))
	}

	// Two claims do not fit next to four on day 2 (capacity 5).
	got := st.rolloverDate(day(1), 2)
	if !got.Equal(day(3)) {
		t.Errorf("rolloverDate = %v, want %v", got, day(3))
	}

	// One claim fits.
	got = st.rolloverDate(day(1), 1)
	if !got.Equal(day(2)) {
		t.Errorf("rolloverDate = %v, want %v", got, day(2))
	}
}
