package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClaimStatus is the lifecycle state of a claim.
type ClaimStatus string

const (
	StatusPending ClaimStatus = "pending"
	StatusBatched ClaimStatus = "batched"
)

// Date-preference values accepted in InsurerConfig.DatePreference.
const (
	PreferEncounterDate  = "encounter_date"
	PreferSubmissionDate = "submission_date"
)

// Claim is a pending insurance claim awaiting batch assignment. The engine
// reads everything except the batching fields (BatchID, BatchDate, IsBatched,
// Status), which it sets atomically at commit time.
type Claim struct {
	ID             int64           `json:"id"`
	Submitter      string          `json:"submitter"`
	ProviderName   string          `json:"provider_name"`
	Specialty      string          `json:"specialty"`
	Priority       int             `json:"priority"` // 1 (lowest) to 5 (highest)
	EncounterDate  time.Time       `json:"encounter_date"`
	SubmissionDate time.Time       `json:"submission_date"`
	TotalAmount    decimal.Decimal `json:"total_amount"`

	BatchID   string      `json:"batch_id,omitempty"`
	BatchDate time.Time   `json:"batch_date,omitempty"`
	IsBatched bool        `json:"is_batched"`
	Status    ClaimStatus `json:"status"`
}

// InsurerConfig holds one insurer's operational constraints and pricing
// inputs. Read-only for the duration of a run.
type InsurerConfig struct {
	Code                 string
	Name                 string
	DailyCapacity        int
	MinBatchSize         int
	MaxBatchSize         int
	DatePreference       string // PreferEncounterDate or PreferSubmissionDate
	SpecialtyCosts       map[string]float64
	PriorityMultipliers  map[int]float64
	ClaimValueThreshold  decimal.Decimal
	ClaimValueMultiplier float64
}

// PreferredDate returns the claim date field the insurer sorts by.
func (ic InsurerConfig) PreferredDate(c Claim) time.Time {
	if ic.DatePreference == PreferSubmissionDate {
		return c.SubmissionDate
	}
	return c.EncounterDate
}

// thresholdActive reports whether value-threshold handling applies at all.
func (ic InsurerConfig) thresholdActive() bool {
	return ic.ClaimValueThreshold.IsPositive()
}

// Batch is a finalized group of one provider's claims assigned to one
// processing date. Derived output; it only becomes a stored record at commit.
type Batch struct {
	ID             string          `json:"id"`
	ProviderName   string          `json:"provider_name"`
	Date           time.Time       `json:"date"`
	Claims         []Claim         `json:"claims"`
	TotalValue     decimal.Decimal `json:"total_value"`
	ProcessingCost float64         `json:"processing_cost"`

	// thresholdExempt marks a deliberately isolated single claim whose value
	// meets the insurer's threshold; such batches skip the minimum-size rule.
	thresholdExempt bool
}

// ClaimCount returns the number of claims in the batch.
func (b Batch) ClaimCount() int { return len(b.Claims) }

// BatchSummary is the caller-facing projection of a committed batch.
type BatchSummary struct {
	BatchID        string          `json:"batch_id"`
	ProviderName   string          `json:"provider_name"`
	Date           time.Time       `json:"date"`
	ClaimCount     int             `json:"claim_count"`
	TotalValue     decimal.Decimal `json:"total_value"`
	ProcessingCost float64         `json:"processing_cost"`
}

// Summary converts a batch to its caller-facing projection.
func (b Batch) Summary() BatchSummary {
	return BatchSummary{
		BatchID:        b.ID,
		ProviderName:   b.ProviderName,
		Date:           b.Date,
		ClaimCount:     len(b.Claims),
		TotalValue:     b.TotalValue,
		ProcessingCost: b.ProcessingCost,
	}
}
