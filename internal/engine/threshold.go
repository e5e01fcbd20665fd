package engine

import "sort"

// optimizeThreshold repacks a bucket's claims so batch totals avoid crossing
// the insurer's value threshold unnecessarily. Claims already at or above
// the threshold are isolated into exempt singletons (grouping anything with
// them cannot help); the rest are sorted descending by value and packed
// greedily, closing a batch whenever the next claim would push its running
// total past the threshold. No-op unless the insurer defines
// a positive threshold and a multiplier above 1.0.
func optimizeThreshold(b *bucket, cfg InsurerConfig) {
	if !cfg.thresholdActive() || cfg.ClaimValueMultiplier <= 1.0 {
		return
	}

	var large, normal []Claim
	for _, ob := range b.batches {
		for _, c := range ob.claims {
			if c.TotalAmount.GreaterThanOrEqual(cfg.ClaimValueThreshold) {
				large = append(large, c)
			} else {
				normal = append(normal, c)
			}
		}
	}

	repacked := make([]*openBatch, 0, len(large)+1)
	for _, c := range large {
		ob := &openBatch{exempt: true}
		ob.add(c)
		repacked = append(repacked, ob)
	}

	sort.SliceStable(normal, func(i, j int) bool {
		return normal[i].TotalAmount.GreaterThan(normal[j].TotalAmount)
	})

	var cur *openBatch
	for _, c := range normal {
		fits := cur != nil &&
			cur.total.Add(c.TotalAmount).LessThanOrEqual(cfg.ClaimValueThreshold) &&
			(cfg.MaxBatchSize <= 0 || len(cur.claims) < cfg.MaxBatchSize)
		if !fits {
			cur = &openBatch{}
			repacked = append(repacked, cur)
		}
		cur.add(c)
	}

	b.batches = repacked
}
