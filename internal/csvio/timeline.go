// Package csvio serializes and deserializes scheduling timelines as CSV,
// per spec §6's output contract, and writes the per-timeline summary
// line.
package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/catsched/cats/internal/catserr"
	"github.com/catsched/cats/internal/model"
	"github.com/catsched/cats/internal/timeline"
)

var timelineHeader = []string{"step", "start_position_seconds", "end_position_seconds", "resource", "cpu_reservation", "memory_reservation"}

// WriteTimeline serializes tl to path as CSV, rows ordered by
// start_position ascending, ties broken by resource then step (spec §6).
func WriteTimeline(path string, tl *timeline.Timeline, pipeline *model.Pipeline, network *model.Network) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("csvio: creating %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(timelineHeader); err != nil {
		return fmt.Errorf("csvio: writing header to %s: %w", path, err)
	}

	type row struct {
		step, resource string
		start, end     float64
		cpu            float64
		mem            int64
	}
	var rows []row
	for _, e := range tl.AllEvents() {
		rows = append(rows, row{
			step:     pipeline.Step(e.Step).Name,
			resource: network.Resource(e.Resource).Name,
			start:    e.Start,
			end:      e.End(),
			cpu:      e.Reservation.CPU,
			mem:      e.Reservation.MemoryBytes,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].start != rows[j].start {
			return rows[i].start < rows[j].start
		}
		if rows[i].resource != rows[j].resource {
			return rows[i].resource < rows[j].resource
		}
		return rows[i].step < rows[j].step
	})

	for _, r := range rows {
		record := []string{
			r.step,
			strconv.FormatFloat(r.start, 'f', -1, 64),
			strconv.FormatFloat(r.end, 'f', -1, 64),
			r.resource,
			strconv.FormatFloat(r.cpu, 'f', -1, 64),
			strconv.FormatInt(r.mem, 10),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("csvio: writing row to %s: %w", path, err)
		}
	}
	w.Flush()
	return w.Error()
}

// ReadTimeline reconstructs a Timeline from a CSV previously written by
// WriteTimeline, resolving step/resource names against pipeline/network.
// Reconstructed events carry zero TransferCost/InputsCovered/ReplicaIndex
// (these are not part of the CSV contract), so a round-tripped timeline
// supports CheckInvariants' I1/I2 checks but not its I4 check (pass a
// nil expectedInputs map).
func ReadTimeline(path string, pipeline *model.Pipeline, network *model.Network) (*timeline.Timeline, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csvio: opening %s: %w: %v", path, catserr.ErrMalformedInput, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("csvio: reading header from %s: %w: %v", path, catserr.ErrMalformedInput, err)
	}

	tl := timeline.New(pipeline, network)
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csvio: reading %s: %w: %v", path, catserr.ErrMalformedInput, err)
		}
		if len(rec) < 6 {
			return nil, fmt.Errorf("csvio: %s: expected 6 columns, got %d: %w", path, len(rec), catserr.ErrMalformedInput)
		}
		step, ok := pipeline.StepByName(rec[0])
		if !ok {
			return nil, fmt.Errorf("csvio: %s: unknown step %q: %w", path, rec[0], catserr.ErrMalformedInput)
		}
		resource, ok := network.ResourceByName(rec[3])
		if !ok {
			return nil, fmt.Errorf("csvio: %s: unknown resource %q: %w", path, rec[3], catserr.ErrMalformedInput)
		}
		start, e1 := strconv.ParseFloat(rec[1], 64)
		end, e2 := strconv.ParseFloat(rec[2], 64)
		cpu, e3 := strconv.ParseFloat(rec[4], 64)
		mem, e4 := strconv.ParseInt(rec[5], 10, 64)
		if e1 != nil || e2 != nil || e3 != nil || e4 != nil {
			return nil, fmt.Errorf("csvio: %s: malformed numeric field: %w", path, catserr.ErrMalformedInput)
		}
		ev := &timeline.Event{
			Step:         step,
			Resource:     resource,
			Start:        start,
			Duration:     end - start,
			Reservation:  timeline.Reservation{CPU: cpu, MemoryBytes: mem},
			ReplicaCount: 1,
		}
		if err := tl.AddEvent(ev); err != nil {
			return nil, fmt.Errorf("csvio: %s: reconstructed timeline violates invariants: %w", path, err)
		}
	}
	return tl, nil
}
