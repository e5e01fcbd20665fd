package engine

import (
	"fmt"
	"time"
)

const batchDateFormat = "Jan 2 2006"

// batchID derives the human-readable identifier for the seq-th (1-based)
// batch of a provider+date pair, e.g. "General Hospital Apr 10 2025" and
// "General Hospital Apr 10 2025 (2)".
func batchID(provider string, date time.Time, seq int) string {
	id := provider + " " + date.Format(batchDateFormat)
	if seq > 1 {
		id = fmt.Sprintf("%s (%d)", id, seq)
	}
	return id
}
