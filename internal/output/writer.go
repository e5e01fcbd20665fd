package output

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/gyeh/claim-batcher/internal/engine"
)

// RunParams holds metadata about a processing run.
type RunParams struct {
	RunID             string    `json:"run_id"`
	StartedAt         time.Time `json:"started_at"`
	Submitter         string    `json:"submitter,omitempty"`
	DryRun            bool      `json:"dry_run,omitempty"`
	InsurersProcessed int       `json:"insurers_processed"`
	InsurersFailed    int       `json:"insurers_failed"`
	DurationSeconds   float64   `json:"duration_seconds"`
}

// InsurerFailure records one insurer's failed run.
type InsurerFailure struct {
	InsurerCode string `json:"insurer_code"`
	Error       string `json:"error"`
}

// RunSummary is the top-level output JSON structure.
type RunSummary struct {
	RunParams RunParams                        `json:"run_params"`
	Batches   map[string][]engine.BatchSummary `json:"batches"`
	Failures  []InsurerFailure                 `json:"failures,omitempty"`
}

// WriteSummary writes the final JSON output to the specified file.
func WriteSummary(outputPath string, summary RunSummary) error {
	if summary.Batches == nil {
		summary.Batches = map[string][]engine.BatchSummary{}
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling output: %w", err)
	}

	if outputPath == "-" {
		_, err = os.Stdout.Write(data)
		fmt.Fprintln(os.Stdout)
		return err
	}

	return os.WriteFile(outputPath, data, 0o644)
}
