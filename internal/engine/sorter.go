package engine

import "sort"

// groupByProvider splits claims into per-provider groups; batches never span
// providers. Returns the groups plus provider names in lexical order so
// callers iterate deterministically.
func groupByProvider(claims []Claim) (map[string][]Claim, []string) {
	groups := make(map[string][]Claim)
	for _, c := range claims {
		groups[c.ProviderName] = append(groups[c.ProviderName], c)
	}
	providers := make([]string, 0, len(groups))
	for p := range groups {
		providers = append(providers, p)
	}
	sort.Strings(providers)
	return groups, providers
}

// sortForAllocation orders a provider group so cheap, high-priority,
// early-dated claims are allocated first and take the best processing slots:
// ascending specialty cost, then descending priority, then ascending
// preferred date.
func sortForAllocation(claims []Claim, cfg InsurerConfig) {
	sort.SliceStable(claims, func(i, j int) bool {
		ci, cj := specialtyCost(cfg, claims[i].Specialty), specialtyCost(cfg, claims[j].Specialty)
		if ci != cj {
			return ci < cj
		}
		if claims[i].Priority != claims[j].Priority {
			return claims[i].Priority > claims[j].Priority
		}
		return cfg.PreferredDate(claims[i]).Before(cfg.PreferredDate(claims[j]))
	})
}
