package timeline

import (
	"fmt"

	"github.com/catsched/cats/internal/model"
)

// Violation describes a single invariant breach found by CheckInvariants.
type Violation struct {
	Invariant string
	Detail    string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Invariant, v.Detail)
}

// CheckInvariants re-validates I1, I2, and I4 against the timeline's
// current event set, independent of how those events were produced. It
// is the basis of `cats verify`: a round-trip-loaded CSV timeline is run
// through this to confirm it is still a legal schedule (spec §8).
func CheckInvariants(t *Timeline, expectedInputs map[model.StepID]float64) []Violation {
	var violations []Violation

	// I1: no resource ever exceeds capacity at any instant.
	for resID, events := range t.byResource {
		capacityCPU, capacityMem := t.capacity(resID)
		breakpoints := map[float64]struct{}{}
		for _, e := range events {
			breakpoints[e.Start] = struct{}{}
		}
		for bp := range breakpoints {
			var cpu float64
			var mem int64
			for _, e := range events {
				if e.Start <= bp && e.End() > bp {
					cpu += e.Reservation.CPU
					mem += e.Reservation.MemoryBytes
				}
			}
			if cpu > capacityCPU || mem > capacityMem {
				violations = append(violations, Violation{
					Invariant: "I1",
					Detail:    fmt.Sprintf("resource %d over capacity at t=%.3f: cpu=%.3f mem=%d", resID, bp, cpu, mem),
				})
			}
		}
	}

	// I2: every synchronous dependency is respected.
	if t.pipeline != nil {
		for _, s := range t.pipeline.Steps() {
			for _, dep := range s.Dependencies {
				if dep.Kind != model.Synchronous {
					continue
				}
				parentEnd := float64(0)
				found := false
				for _, pe := range t.byStep[dep.Prerequisite] {
					found = true
					if pe.End() > parentEnd {
						parentEnd = pe.End()
					}
				}
				if !found {
					continue
				}
				for _, ce := range t.byStep[s.ID] {
					if ce.Start < parentEnd {
						violations = append(violations, Violation{
							Invariant: "I2",
							Detail:    fmt.Sprintf("step %d starts at %.3f before prerequisite %d ends at %.3f", s.ID, ce.Start, dep.Prerequisite, parentEnd),
						})
					}
				}
			}
		}
	}

	// I4: scaled-step replicas partition (not overlap) the step's total
	// expected inputs, when the caller supplies the expected total.
	for step, want := range expectedInputs {
		events := t.byStep[step]
		var got float64
		for _, e := range events {
			// Each event contributes its recorded InputsCovered; an event
			// that recorded none contributes 0.
			got += inputsCovered(e)
		}
		if len(events) > 0 && abs(got-want) > 1e-6 {
			violations = append(violations, Violation{
				Invariant: "I4",
				Detail:    fmt.Sprintf("step %d: replicas cover %.6f inputs, want %.6f", step, got, want),
			})
		}
	}

	return violations
}

func inputsCovered(e *Event) float64 {
	return e.InputsCovered
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
