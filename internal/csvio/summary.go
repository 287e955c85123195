package csvio

import (
	"fmt"
	"os"

	"github.com/catsched/cats/internal/timeline"
)

// WriteSummary writes a header and one summary line for tl — total_time,
// resource_cost, transmission_cost, combined_score — to path, per spec
// §6, replacing any existing content of the file.
func WriteSummary(path string, tl *timeline.Timeline, deadlineSeconds, budgetUSD float64) error {
	resourceCost := tl.ResourceCost()
	transmissionCost := tl.DataTransmissionCost()
	totalTime := tl.TotalTime()
	score := totalTime/deadlineSeconds + (resourceCost+transmissionCost)/budgetUSD

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("csvio: opening summary %s: %w", path, err)
	}
	defer f.Close()

	_, err = fmt.Fprintf(f, "total_time,resource_cost,transmission_cost,combined_score\n%g,%g,%g,%g\n",
		totalTime, resourceCost, transmissionCost, score)
	if err != nil {
		return fmt.Errorf("csvio: writing summary %s: %w", path, err)
	}
	return nil
}
