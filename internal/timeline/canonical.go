package timeline

import (
	"fmt"
	"sort"
)

// Canonical returns a deterministic string encoding of the timeline's
// events, sorted by (resource name, start, step name), used both as the
// lexicographic tie-break key among equally-scoring timelines and as the
// dedup key for the "retain all timelines tying for the minimum score"
// rule (spec §4.3 step 5).
func (t *Timeline) Canonical() string {
	type row struct {
		resourceName string
		step         string
		start        float64
		duration     float64
		cpu          float64
		mem          int64
		replicaIndex int
	}
	var rows []row
	for resID, events := range t.byResource {
		name := fmt.Sprintf("r%d", resID)
		if t.network != nil {
			name = t.network.Resource(resID).Name
		}
		for _, e := range events {
			stepName := fmt.Sprintf("s%d", e.Step)
			if t.pipeline != nil {
				stepName = t.pipeline.Step(e.Step).Name
			}
			rows = append(rows, row{
				resourceName: name,
				step:         stepName,
				start:        e.Start,
				duration:     e.Duration,
				cpu:          e.Reservation.CPU,
				mem:          e.Reservation.MemoryBytes,
				replicaIndex: e.ReplicaIndex,
			})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].resourceName != rows[j].resourceName {
			return rows[i].resourceName < rows[j].resourceName
		}
		if rows[i].start != rows[j].start {
			return rows[i].start < rows[j].start
		}
		return rows[i].step < rows[j].step
	})

	var out string
	for _, r := range rows {
		out += fmt.Sprintf("%s|%s|%.9f|%.9f|%.9f|%d|%d;",
			r.resourceName, r.step, r.start, r.duration, r.cpu, r.mem, r.replicaIndex)
	}
	return out
}
