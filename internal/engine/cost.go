package engine

import (
	"fmt"
	"time"
)

// Fallbacks applied when an insurer's config leaves a lookup unmapped.
const (
	defaultSpecialtyCost      = 100.0
	defaultPriorityMultiplier = 1.0
)

// CostBreakdown is the factor-by-factor result of a cost estimate.
type CostBreakdown struct {
	BaseCost           float64 `json:"base_cost"`
	PriorityMultiplier float64 `json:"priority_multiplier"`
	DayFactor          float64 `json:"day_factor"`
	ValueMultiplier    float64 `json:"value_multiplier"`
	TotalCost          float64 `json:"total_cost"`
}

// EstimateCost computes the estimated processing cost of a claim on the given
// processing date:
//
//	cost = specialtyCost × priorityMultiplier × dayFactor × valueMultiplier
//
// Missing config entries fall back to documented defaults and are never
// errors. The date must be non-zero and the amount non-negative.
func EstimateCost(c Claim, cfg InsurerConfig, date time.Time) (CostBreakdown, error) {
	if date.IsZero() {
		return CostBreakdown{}, fmt.Errorf("estimate cost for claim %d: zero processing date", c.ID)
	}
	if c.TotalAmount.IsNegative() {
		return CostBreakdown{}, fmt.Errorf("estimate cost for claim %d: negative amount %s", c.ID, c.TotalAmount)
	}

	bd := CostBreakdown{
		BaseCost:           specialtyCost(cfg, c.Specialty),
		PriorityMultiplier: priorityMultiplier(cfg, c.Priority),
		DayFactor:          DayFactor(date),
		ValueMultiplier:    valueMultiplier(cfg, c),
	}
	bd.TotalCost = bd.BaseCost * bd.PriorityMultiplier * bd.DayFactor * bd.ValueMultiplier
	return bd, nil
}

// claimCost is the estimator without input validation, for internal use on
// dates the allocator produced itself.
func claimCost(c Claim, cfg InsurerConfig, date time.Time) float64 {
	return specialtyCost(cfg, c.Specialty) *
		priorityMultiplier(cfg, c.Priority) *
		DayFactor(date) *
		valueMultiplier(cfg, c)
}

// specialtyCost looks up the insurer's base cost for a specialty,
// defaulting to defaultSpecialtyCost when unmapped.
func specialtyCost(cfg InsurerConfig, specialty string) float64 {
	if cost, ok := cfg.SpecialtyCosts[specialty]; ok {
		return cost
	}
	return defaultSpecialtyCost
}

// priorityMultiplier looks up the multiplier for a priority level. The level
// is clamped to [1,5] before lookup; unmapped levels default to 1.0.
func priorityMultiplier(cfg InsurerConfig, priority int) float64 {
	if priority < 1 {
		priority = 1
	} else if priority > 5 {
		priority = 5
	}
	if m, ok := cfg.PriorityMultipliers[priority]; ok {
		return m
	}
	return defaultPriorityMultiplier
}

// valueMultiplier returns the insurer's threshold multiplier when the claim
// amount exceeds a positive threshold, else 1.0.
func valueMultiplier(cfg InsurerConfig, c Claim) float64 {
	if cfg.thresholdActive() && c.TotalAmount.GreaterThan(cfg.ClaimValueThreshold) {
		return cfg.ClaimValueMultiplier
	}
	return 1.0
}
