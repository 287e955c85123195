// Package timeline implements the Timeline data structure from spec §3/§4.2:
// an ordered collection of scheduling events, indexed by resource and by
// step, enforcing non-overlap of resource reservations (I1) and
// synchronous-dependency ordering (I2), and answering the packing
// queries the search driver needs to place new events.
package timeline

import "github.com/catsched/cats/internal/model"

// Reservation is a (CPU, memory) pair reserved for the lifetime of an event.
type Reservation struct {
	CPU         float64
	MemoryBytes int64
}

// Conflicts reports whether two reservations placed on the same resource
// at overlapping times would exceed capacity, per spec §3.
func (r Reservation) Conflicts(other Reservation, capacityCPU float64, capacityMemoryBytes int64) bool {
	return r.CPU+other.CPU > capacityCPU || r.MemoryBytes+other.MemoryBytes > capacityMemoryBytes
}

// Event is a SchedulingEvent: one step-instance placed on one resource
// for a contiguous interval with a CPU+memory reservation. TransferCost
// is the monetary cost (spec I5) attributable to data transmitted into
// this event from whichever producer resource fed it; zero for events
// with no incoming async transfer or where producer==resource.
type Event struct {
	Step         model.StepID
	Resource     model.ResourceID
	Start        float64
	Duration     float64
	Reservation  Reservation
	TransferCost float64

	// ReplicaIndex/ReplicaCount record which share of a scaled step's
	// partitioned input this event covers (spec I4); ReplicaCount == 1
	// for unscaled steps.
	ReplicaIndex int
	ReplicaCount int

	// InputsCovered is the number of the step's total expected inputs
	// this event processes (spec I4: "Σ over events of S of
	// event.inputs_covered == total expected inputs of S").
	InputsCovered float64
}

// End returns the event's end position (spec §3: "end position is start+duration").
func (e *Event) End() float64 {
	return e.Start + e.Duration
}

// Overlaps reports whether e and other's intervals intersect.
func (e *Event) Overlaps(other *Event) bool {
	return e.Start < other.End() && other.Start < e.End()
}
