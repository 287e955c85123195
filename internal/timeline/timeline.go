package timeline

import (
	"fmt"
	"sort"

	"github.com/catsched/cats/internal/catserr"
	"github.com/catsched/cats/internal/model"
)

// Timeline is the ordered collection of scheduling events described in
// spec §3/§4.2. It holds read-only references to the pipeline (for
// synchronous-dependency resolution) and the network (for resource
// capacity/cost lookups); it never mutates either.
type Timeline struct {
	pipeline *model.Pipeline
	network  *model.Network

	byResource map[model.ResourceID][]*Event // sorted by Start
	byStep     map[model.StepID][]*Event
}

// New creates an empty Timeline over the given pipeline and network.
func New(pipeline *model.Pipeline, network *model.Network) *Timeline {
	return &Timeline{
		pipeline:   pipeline,
		network:    network,
		byResource: make(map[model.ResourceID][]*Event),
		byStep:     make(map[model.StepID][]*Event),
	}
}

// Clone returns a deep copy suitable for speculative mutation: a worker
// mutates the clone and either returns it (adopted) or discards it,
// never touching the original (spec §3 "Ownership & lifecycle", §5).
func (t *Timeline) Clone() *Timeline {
	c := New(t.pipeline, t.network)
	for res, events := range t.byResource {
		cloned := make([]*Event, len(events))
		for i, e := range events {
			ev := *e
			cloned[i] = &ev
		}
		c.byResource[res] = cloned
	}
	for step, events := range t.byStep {
		cloned := make([]*Event, len(events))
		for i, e := range events {
			// Reuse the already-cloned *Event from byResource so both
			// indices point at the same copy (mirrors the original's
			// dual indexing of a single event).
			cloned[i] = c.findClone(e)
		}
		c.byStep[step] = cloned
	}
	return c
}

func (t *Timeline) findClone(original *Event) *Event {
	for _, e := range t.byResource[original.Resource] {
		if e.Step == original.Step && e.Start == original.Start && e.ReplicaIndex == original.ReplicaIndex {
			return e
		}
	}
	// Fall back to an independent copy if no structural match was found
	// (should not happen for a Timeline built only through AddEvent).
	ev := *original
	return &ev
}

// AddEvent inserts an event after validating I1 (capacity) and I2
// (synchronous ordering). Callers are expected to have computed a
// conflict-free start via EarliestAvailablePositionAfter and a
// synchronization floor via StepSynchronizationPosition; a genuine
// conflict here is therefore an internal bug indicator, surfaced as
// ErrReservationConflict (spec §7).
func (t *Timeline) AddEvent(e *Event) error {
	if t.network != nil {
		res := t.network.Resource(e.Resource)
		if t.violatesCapacity(e.Resource, e, res.CPUCapacity, res.MemoryBytes) {
			return fmt.Errorf("timeline: adding event for step %d on resource %q at %.3f: %w", e.Step, res.Name, e.Start, catserr.ErrReservationConflict)
		}
	}
	if t.pipeline != nil {
		floor := t.StepSynchronizationPosition(e.Step)
		if e.Start < floor {
			return fmt.Errorf("timeline: event for step %d starts at %.3f before synchronization floor %.3f: %w", e.Step, e.Start, floor, catserr.ErrReservationConflict)
		}
	}

	t.byResource[e.Resource] = insertSorted(t.byResource[e.Resource], e)
	t.byStep[e.Step] = append(t.byStep[e.Step], e)
	return nil
}

func insertSorted(events []*Event, e *Event) []*Event {
	idx := sort.Search(len(events), func(i int) bool { return events[i].Start >= e.Start })
	events = append(events, nil)
	copy(events[idx+1:], events[idx:])
	events[idx] = e
	return events
}

// violatesCapacity reports whether placing e on its resource would push
// the summed reservation of any instant within [e.Start, e.End()) over
// capacity, considering every event already on that resource (I1).
func (t *Timeline) violatesCapacity(resource model.ResourceID, e *Event, capacityCPU float64, capacityMemoryBytes int64) bool {
	existing := t.byResource[resource]
	breakpoints := map[float64]struct{}{e.Start: {}}
	for _, other := range existing {
		if other == e {
			continue
		}
		if other.Start < e.End() && other.Start >= e.Start {
			breakpoints[other.Start] = struct{}{}
		}
	}
	for bp := range breakpoints {
		active := e.Reservation
		for _, other := range existing {
			if other == e {
				continue
			}
			if other.Start <= bp && other.End() > bp {
				active.CPU += other.Reservation.CPU
				active.MemoryBytes += other.Reservation.MemoryBytes
			}
		}
		if active.CPU > capacityCPU || active.MemoryBytes > capacityMemoryBytes {
			return true
		}
	}
	return false
}

// EarliestAvailablePositionAfter returns the smallest position P >=
// afterPosition such that placing a reservation of the given size and
// duration on the given resource starting at P does not violate I1 for
// the full [P, P+duration) window (spec §4.2's packing algorithm; this
// implementation takes duration explicitly because the gap search is
// only well-defined once the candidate window is known — see DESIGN.md).
func (t *Timeline) EarliestAvailablePositionAfter(resource model.ResourceID, reservation Reservation, duration, afterPosition float64) float64 {
	capacityCPU, capacityMemoryBytes := t.capacity(resource)
	events := t.byResource[resource]

	candidates := []float64{afterPosition}
	maxEnd := afterPosition
	for _, e := range events {
		if e.Start > maxEnd {
			maxEnd = e.Start
		}
		if e.End() > maxEnd {
			maxEnd = e.End()
		}
		if e.Start >= afterPosition {
			candidates = append(candidates, e.Start)
		}
		if e.End() >= afterPosition {
			candidates = append(candidates, e.End())
		}
	}
	// A position at or after every existing event's end is always free.
	candidates = append(candidates, maxEnd)
	sort.Float64s(candidates)

	for _, p := range candidates {
		if t.feasibleWindow(events, reservation, capacityCPU, capacityMemoryBytes, p, duration) {
			return p
		}
	}
	return maxEnd
}

func (t *Timeline) feasibleWindow(events []*Event, reservation Reservation, capacityCPU float64, capacityMemoryBytes int64, start, duration float64) bool {
	end := start + duration
	checkpoints := map[float64]struct{}{start: {}}
	for _, e := range events {
		if e.Start > start && e.Start < end {
			checkpoints[e.Start] = struct{}{}
		}
	}
	for bp := range checkpoints {
		active := reservation
		for _, e := range events {
			if e.Start <= bp && e.End() > bp {
				active.CPU += e.Reservation.CPU
				active.MemoryBytes += e.Reservation.MemoryBytes
			}
		}
		if active.CPU > capacityCPU || active.MemoryBytes > capacityMemoryBytes {
			return false
		}
	}
	return true
}

func (t *Timeline) capacity(resource model.ResourceID) (float64, int64) {
	if t.network == nil {
		return 0, 0
	}
	r := t.network.Resource(resource)
	return r.CPUCapacity, r.MemoryBytes
}

// StepSynchronizationPosition returns the maximum end position across
// all events of step's synchronous prerequisites already in the
// timeline (spec §4.2). Returns 0 if the step has no synchronous
// prerequisites or none are scheduled yet.
func (t *Timeline) StepSynchronizationPosition(step model.StepID) float64 {
	if t.pipeline == nil {
		return 0
	}
	var floor float64
	for _, parent := range t.pipeline.Step(step).SyncParents() {
		for _, e := range t.byStep[parent] {
			if e.End() > floor {
				floor = e.End()
			}
		}
	}
	return floor
}

// LatestFinishingEventOfStep returns the event of step with the greatest
// end position, or nil if step has no scheduled events.
func (t *Timeline) LatestFinishingEventOfStep(step model.StepID) *Event {
	var latest *Event
	for _, e := range t.byStep[step] {
		if latest == nil || e.End() > latest.End() {
			latest = e
		}
	}
	return latest
}

// ScheduledResourceOfStep returns the resource of step's first scheduled
// event, and whether step has any scheduled event. For a scaled step
// with replicas on different resources this returns an arbitrary one of
// them; callers that care about multiple placements should use EventsOfStep.
func (t *Timeline) ScheduledResourceOfStep(step model.StepID) (model.ResourceID, bool) {
	events := t.byStep[step]
	if len(events) == 0 {
		return model.InvalidResourceID, false
	}
	return events[0].Resource, true
}

// EventsOfStep returns every event scheduled for step (one per replica).
func (t *Timeline) EventsOfStep(step model.StepID) []*Event {
	return t.byStep[step]
}

// EventsOnResource returns every event scheduled on resource, sorted by start.
func (t *Timeline) EventsOnResource(resource model.ResourceID) []*Event {
	return t.byResource[resource]
}

// ReplaceEvent swaps old for new in both indices, used to revert a
// speculative scaled placement if scaling did not pay off (spec §4.2).
func (t *Timeline) ReplaceEvent(old, replacement *Event) error {
	resEvents := t.byResource[old.Resource]
	idx := indexOf(resEvents, old)
	if idx < 0 {
		return fmt.Errorf("timeline: ReplaceEvent: old event not found on resource %d", old.Resource)
	}
	if old.Resource != replacement.Resource {
		t.byResource[old.Resource] = removeAt(t.byResource[old.Resource], idx)
		t.byResource[replacement.Resource] = insertSorted(t.byResource[replacement.Resource], replacement)
	} else {
		resEvents[idx] = replacement
		sort.Slice(resEvents, func(i, j int) bool { return resEvents[i].Start < resEvents[j].Start })
		t.byResource[old.Resource] = resEvents
	}

	stepEvents := t.byStep[old.Step]
	sidx := indexOf(stepEvents, old)
	if old.Step != replacement.Step {
		t.byStep[old.Step] = removeAt(t.byStep[old.Step], sidx)
		t.byStep[replacement.Step] = append(t.byStep[replacement.Step], replacement)
	} else if sidx >= 0 {
		stepEvents[sidx] = replacement
		t.byStep[old.Step] = stepEvents
	}
	return nil
}

// RemoveEvent deletes e from both indices. Used when a speculative
// placement (e.g. a single-instance placement later replaced by scaling)
// needs to be withdrawn before trying a different placement.
func (t *Timeline) RemoveEvent(e *Event) error {
	resEvents := t.byResource[e.Resource]
	idx := indexOf(resEvents, e)
	if idx < 0 {
		return fmt.Errorf("timeline: RemoveEvent: event not found on resource %d", e.Resource)
	}
	t.byResource[e.Resource] = removeAt(resEvents, idx)

	stepEvents := t.byStep[e.Step]
	if sidx := indexOf(stepEvents, e); sidx >= 0 {
		t.byStep[e.Step] = removeAt(stepEvents, sidx)
	}
	return nil
}

func indexOf(events []*Event, target *Event) int {
	for i, e := range events {
		if e == target {
			return i
		}
	}
	return -1
}

func removeAt(events []*Event, idx int) []*Event {
	if idx < 0 {
		return events
	}
	return append(events[:idx], events[idx+1:]...)
}

// TotalTime returns the maximum end position across all events, the
// sentinel "end of timeline" 0 if the timeline has no events.
func (t *Timeline) TotalTime() float64 {
	var max float64
	for _, events := range t.byResource {
		for _, e := range events {
			if e.End() > max {
				max = e.End()
			}
		}
	}
	return max
}

// ResourceCost returns Σ event.duration * resource.cost_per_unit_time
// (spec I5, first term).
func (t *Timeline) ResourceCost() float64 {
	if t.network == nil {
		return 0
	}
	var total float64
	for resID, events := range t.byResource {
		cost := t.network.Resource(resID).CostPerSecond
		for _, e := range events {
			total += e.Duration * cost
		}
	}
	return total
}

// DataTransmissionCost returns Σ event.TransferCost (spec I5, second term).
func (t *Timeline) DataTransmissionCost() float64 {
	var total float64
	for _, events := range t.byResource {
		for _, e := range events {
			total += e.TransferCost
		}
	}
	return total
}

// AllEvents returns every event in the timeline, in no particular order.
func (t *Timeline) AllEvents() []*Event {
	var all []*Event
	for _, events := range t.byResource {
		all = append(all, events...)
	}
	return all
}
