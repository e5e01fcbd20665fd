package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func amount(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func TestAllocate_RespectsDailyCapacity(t *testing.T) {
	cfg := testConfig()
	cfg.DailyCapacity = 10
	cfg.ClaimValueThreshold = decimal.Zero

	now := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	st := newAllocState(cfg, now)

	var claims []Claim
	for i := 0; i < 20; i++ {
		claims = append(claims, Claim{
			ID:           int64(i + 1),
			ProviderName: "General Hospital",
			Specialty:    "general",
			Priority:     3,
			TotalAmount:  amount(100),
		})
	}
	st.allocate(claims)

	total := 0
	daysUsed := 0
	for _, n := range st.dayCounts {
		if n > cfg.DailyCapacity {
			t.Errorf("day count %d exceeds capacity %d", n, cfg.DailyCapacity)
		}
		if n > 0 {
			daysUsed++
		}
		total += n
	}
	if total != 20 {
		t.Errorf("allocated %d claims, want 20", total)
	}
	if daysUsed < 2 {
		t.Errorf("20 claims at capacity 10 used %d day(s), want at least 2", daysUsed)
	}
}

func TestPickDate_PrefersTierThenPoolThenExtends(t *testing.T) {
	cfg := testConfig()
	cfg.DailyCapacity = 1
	now := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)

	st := newAllocState(cfg, now)
	poolEnd := st.poolEnd

	// Unsaturated: the first tier date wins.
	first := st.pickDate(3)
	if !first.Equal(tierSlice(st.pool, 3)[0]) {
		t.Errorf("pickDate = %v, want first tier date %v", first, tierSlice(st.pool, 3)[0])
	}

	// Saturate the claim's tier: pickDate falls back to the wider pool.
	for _, d := range tierSlice(st.pool, 3) {
		st.dayCounts[d.Format(dayKeyFormat)] = cfg.DailyCapacity
	}
	fallback := st.pickDate(3)
	if !st.hasCapacity(fallback) {
		t.Errorf("fallback date %v is already at capacity", fallback)
	}

	// Saturate the whole pool: pickDate must extend past its end rather
	// than wrap forever.
	for _, d := range st.pool {
		st.dayCounts[d.Format(dayKeyFormat)] = cfg.DailyCapacity
	}
	extended := st.pickDate(3)
	if !extended.After(poolEnd) {
		t.Errorf("extended date %v not after pool end %v", extended, poolEnd)
	}
}

func TestPlaceInBucket_ThresholdAwarePlacement(t *testing.T) {
	cfg := testConfig()
	cfg.MinBatchSize = 4 // half = 2: single-claim batches are protected
	st := newAllocState(cfg, time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC))

	b := &bucket{provider: "General Hospital", date: day(1)}

	st.placeInBucket(b, Claim{ID: 1, TotalAmount: amount(1500)})
	if len(b.batches) != 1 {
		t.Fatalf("got %d batches, want 1", len(b.batches))
	}

	// 1500+600 crosses the 2000 threshold while the batch holds one claim:
	// the claim must open a new batch instead.
	st.placeInBucket(b, Claim{ID: 2, TotalAmount: amount(600)})
	if len(b.batches) != 2 {
		t.Fatalf("threshold-crossing claim joined a small batch: %d batches, want 2", len(b.batches))
	}

	// 1500+100 stays under the threshold: joins the first batch.
	st.placeInBucket(b, Claim{ID: 3, TotalAmount: amount(100)})
	if len(b.batches[0].claims) != 2 {
		t.Errorf("non-crossing claim did not join the first batch")
	}
}

func TestPlaceInBucket_MaxSize(t *testing.T) {
	cfg := testConfig()
	cfg.MaxBatchSize = 2
	cfg.ClaimValueThreshold = decimal.Zero
	st := newAllocState(cfg, time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC))

	b := &bucket{provider: "Mercy Clinic", date: day(1)}
	for i := int64(1); i <= 3; i++ {
		st.placeInBucket(b, Claim{ID: i, TotalAmount: amount(50)})
	}

	if len(b.batches) != 2 {
		t.Fatalf("got %d batches, want 2 (max size 2)", len(b.batches))
	}
	if len(b.batches[0].claims) != 2 || len(b.batches[1].claims) != 1 {
		t.Errorf("batch sizes = %d,%d, want 2,1", len(b.batches[0].claims), len(b.batches[1].claims))
	}
}
