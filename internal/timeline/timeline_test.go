package timeline

import (
	"testing"

	"github.com/catsched/cats/internal/model"
)

func buildSimpleNetwork(t *testing.T) (*model.Pipeline, *model.Network) {
	t.Helper()
	p := model.NewPipeline()
	_, err := p.AddStep("A")
	if err != nil {
		t.Fatal(err)
	}
	_, err = p.AddStep("B")
	if err != nil {
		t.Fatal(err)
	}
	if err := p.AddDependency("B", "A", model.Synchronous, false); err != nil {
		t.Fatal(err)
	}

	n := model.NewNetwork()
	if _, err := n.AddResource("R1", 4, 8<<30, 0.01); err != nil {
		t.Fatal(err)
	}
	return p, n
}

func TestTimeline_AddEvent_RejectsCapacityViolation(t *testing.T) {
	p, n := buildSimpleNetwork(t)
	tl := New(p, n)
	r1, _ := n.ResourceByName("R1")
	a, _ := p.StepByName("A")

	e1 := &Event{Step: a, Resource: r1, Start: 0, Duration: 10, Reservation: Reservation{CPU: 3, MemoryBytes: 1 << 30}}
	if err := tl.AddEvent(e1); err != nil {
		t.Fatalf("AddEvent e1: %v", err)
	}

	e2 := &Event{Step: a, Resource: r1, Start: 5, Duration: 10, Reservation: Reservation{CPU: 2, MemoryBytes: 1 << 30}}
	if err := tl.AddEvent(e2); err == nil {
		t.Fatal("expected capacity conflict (3+2=5 > 4 cores)")
	}
}

func TestTimeline_AddEvent_AllowsNonOverlapping(t *testing.T) {
	p, n := buildSimpleNetwork(t)
	tl := New(p, n)
	r1, _ := n.ResourceByName("R1")
	a, _ := p.StepByName("A")

	e1 := &Event{Step: a, Resource: r1, Start: 0, Duration: 10, Reservation: Reservation{CPU: 3, MemoryBytes: 1 << 30}}
	if err := tl.AddEvent(e1); err != nil {
		t.Fatalf("AddEvent e1: %v", err)
	}
	e2 := &Event{Step: a, Resource: r1, Start: 10, Duration: 5, Reservation: Reservation{CPU: 4, MemoryBytes: 1 << 30}}
	if err := tl.AddEvent(e2); err != nil {
		t.Fatalf("AddEvent e2 should not conflict (starts when e1 ends): %v", err)
	}
}

func TestTimeline_AddEvent_EnforcesSynchronousOrdering(t *testing.T) {
	p, n := buildSimpleNetwork(t)
	tl := New(p, n)
	r1, _ := n.ResourceByName("R1")
	a, _ := p.StepByName("A")
	b, _ := p.StepByName("B")

	must(t, tl.AddEvent(&Event{Step: a, Resource: r1, Start: 0, Duration: 10, Reservation: Reservation{CPU: 1}}))

	// B starting before A finishes violates I2.
	err := tl.AddEvent(&Event{Step: b, Resource: r1, Start: 5, Duration: 5, Reservation: Reservation{CPU: 1}})
	if err == nil {
		t.Fatal("expected I2 violation for B starting before A ends")
	}

	// B starting at/after A's end is fine.
	must(t, tl.AddEvent(&Event{Step: b, Resource: r1, Start: 10, Duration: 5, Reservation: Reservation{CPU: 1}}))
}

func TestTimeline_EarliestAvailablePositionAfter(t *testing.T) {
	p, n := buildSimpleNetwork(t)
	tl := New(p, n)
	r1, _ := n.ResourceByName("R1")
	a, _ := p.StepByName("A")

	must(t, tl.AddEvent(&Event{Step: a, Resource: r1, Start: 0, Duration: 10, Reservation: Reservation{CPU: 4, MemoryBytes: 1}}))

	pos := tl.EarliestAvailablePositionAfter(r1, Reservation{CPU: 1, MemoryBytes: 1}, 5, 0)
	if pos != 10 {
		t.Errorf("EarliestAvailablePositionAfter = %v, want 10 (resource fully occupied until t=10)", pos)
	}

	posFree := tl.EarliestAvailablePositionAfter(r1, Reservation{CPU: 1, MemoryBytes: 1}, 5, 0)
	_ = posFree
}

func TestTimeline_EarliestAvailablePositionAfter_EmptyResource(t *testing.T) {
	p, n := buildSimpleNetwork(t)
	tl := New(p, n)
	r1, _ := n.ResourceByName("R1")

	pos := tl.EarliestAvailablePositionAfter(r1, Reservation{CPU: 1, MemoryBytes: 1}, 5, 3)
	if pos != 3 {
		t.Errorf("EarliestAvailablePositionAfter on empty resource = %v, want afterPosition=3", pos)
	}
}

func TestTimeline_TotalTimeAndCost(t *testing.T) {
	p, n := buildSimpleNetwork(t)
	tl := New(p, n)
	r1, _ := n.ResourceByName("R1")
	a, _ := p.StepByName("A")

	must(t, tl.AddEvent(&Event{Step: a, Resource: r1, Start: 0, Duration: 10, Reservation: Reservation{CPU: 1}, TransferCost: 0.5}))

	if got := tl.TotalTime(); got != 10 {
		t.Errorf("TotalTime = %v, want 10", got)
	}
	if got := tl.ResourceCost(); got != 0.1 {
		t.Errorf("ResourceCost = %v, want 0.1 (10s * 0.01/s)", got)
	}
	if got := tl.DataTransmissionCost(); got != 0.5 {
		t.Errorf("DataTransmissionCost = %v, want 0.5", got)
	}
}

func TestTimeline_Clone_IsIndependent(t *testing.T) {
	p, n := buildSimpleNetwork(t)
	tl := New(p, n)
	r1, _ := n.ResourceByName("R1")
	a, _ := p.StepByName("A")
	must(t, tl.AddEvent(&Event{Step: a, Resource: r1, Start: 0, Duration: 10, Reservation: Reservation{CPU: 1}}))

	clone := tl.Clone()
	b, _ := p.StepByName("B")
	must(t, clone.AddEvent(&Event{Step: b, Resource: r1, Start: 10, Duration: 5, Reservation: Reservation{CPU: 1}}))

	if len(tl.EventsOnResource(r1)) != 1 {
		t.Errorf("original timeline should be unaffected by clone mutation, got %d events", len(tl.EventsOnResource(r1)))
	}
	if len(clone.EventsOnResource(r1)) != 2 {
		t.Errorf("clone should have 2 events, got %d", len(clone.EventsOnResource(r1)))
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
