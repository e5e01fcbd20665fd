package engine

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func testConfig() InsurerConfig {
	return InsurerConfig{
		Code:           "ACME",
		DailyCapacity:  50,
		MinBatchSize:   3,
		MaxBatchSize:   10,
		DatePreference: PreferEncounterDate,
		SpecialtyCosts: map[string]float64{
			"cardiology": 250,
			"radiology":  180,
			"general":    90,
		},
		PriorityMultipliers: map[int]float64{
			1: 1.0, 2: 1.1, 3: 1.25, 4: 1.5, 5: 2.0,
		},
		ClaimValueThreshold:  decimal.NewFromInt(2000),
		ClaimValueMultiplier: 1.2,
	}
}

func TestEstimateCost_Breakdown(t *testing.T) {
	cfg := testConfig()
	date := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC) // day factor 0.2

	bd, err := EstimateCost(Claim{
		Specialty:   "cardiology",
		Priority:    4,
		TotalAmount: decimal.NewFromInt(500),
	}, cfg, date)
	if err != nil {
		t.Fatalf("EstimateCost failed: %v", err)
	}

	if bd.BaseCost != 250 {
		t.Errorf("base cost = %v, want 250", bd.BaseCost)
	}
	if bd.PriorityMultiplier != 1.5 {
		t.Errorf("priority multiplier = %v, want 1.5", bd.PriorityMultiplier)
	}
	if math.Abs(bd.DayFactor-0.2) > 1e-9 {
		t.Errorf("day factor = %v, want 0.2", bd.DayFactor)
	}
	if bd.ValueMultiplier != 1.0 {
		t.Errorf("value multiplier = %v, want 1.0", bd.ValueMultiplier)
	}
	want := 250 * 1.5 * 0.2
	if math.Abs(bd.TotalCost-want) > 1e-9 {
		t.Errorf("total cost = %v, want %v", bd.TotalCost, want)
	}
}

func TestEstimateCost_ValueThreshold(t *testing.T) {
	cfg := testConfig() // threshold 2000, multiplier 1.2
	date := time.Date(2025, time.April, 10, 0, 0, 0, 0, time.UTC)

	over, err := EstimateCost(Claim{Specialty: "general", Priority: 1, TotalAmount: decimal.NewFromInt(3000)}, cfg, date)
	if err != nil {
		t.Fatalf("EstimateCost failed: %v", err)
	}
	if over.ValueMultiplier != 1.2 {
		t.Errorf("amount 3000: value multiplier = %v, want 1.2", over.ValueMultiplier)
	}

	under, err := EstimateCost(Claim{Specialty: "general", Priority: 1, TotalAmount: decimal.NewFromInt(1000)}, cfg, date)
	if err != nil {
		t.Fatalf("EstimateCost failed: %v", err)
	}
	if under.ValueMultiplier != 1.0 {
		t.Errorf("amount 1000: value multiplier = %v, want 1.0", under.ValueMultiplier)
	}
}

func TestEstimateCost_Defaults(t *testing.T) {
	date := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)

	// Empty config: every lookup falls back to its documented default.
	bd, err := EstimateCost(Claim{Specialty: "dermatology", Priority: 3, TotalAmount: decimal.NewFromInt(100)}, InsurerConfig{}, date)
	if err != nil {
		t.Fatalf("EstimateCost failed: %v", err)
	}
	if bd.BaseCost != 100.0 {
		t.Errorf("unmapped specialty base cost = %v, want 100.0", bd.BaseCost)
	}
	if bd.PriorityMultiplier != 1.0 {
		t.Errorf("unmapped priority multiplier = %v, want 1.0", bd.PriorityMultiplier)
	}
	if bd.ValueMultiplier != 1.0 {
		t.Errorf("zero threshold value multiplier = %v, want 1.0", bd.ValueMultiplier)
	}
}

func TestEstimateCost_PriorityClamped(t *testing.T) {
	cfg := testConfig()
	date := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)

	low, err := EstimateCost(Claim{Specialty: "general", Priority: -2, TotalAmount: decimal.NewFromInt(10)}, cfg, date)
	if err != nil {
		t.Fatalf("EstimateCost failed: %v", err)
	}
	if low.PriorityMultiplier != cfg.PriorityMultipliers[1] {
		t.Errorf("priority -2 multiplier = %v, want clamp to level 1 (%v)", low.PriorityMultiplier, cfg.PriorityMultipliers[1])
	}

	high, err := EstimateCost(Claim{Specialty: "general", Priority: 9, TotalAmount: decimal.NewFromInt(10)}, cfg, date)
	if err != nil {
		t.Fatalf("EstimateCost failed: %v", err)
	}
	if high.PriorityMultiplier != cfg.PriorityMultipliers[5] {
		t.Errorf("priority 9 multiplier = %v, want clamp to level 5 (%v)", high.PriorityMultiplier, cfg.PriorityMultipliers[5])
	}
}

func TestEstimateCost_InvalidInputs(t *testing.T) {
	cfg := testConfig()

	if _, err := EstimateCost(Claim{Specialty: "general"}, cfg, time.Time{}); err == nil {
		t.Error("expected error for zero processing date")
	}

	date := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	if _, err := EstimateCost(Claim{Specialty: "general", TotalAmount: decimal.NewFromInt(-5)}, cfg, date); err == nil {
		t.Error("expected error for negative amount")
	}
}
