package model

import "testing"

func TestPipeline_Levels_LinearChain(t *testing.T) {
	p := NewPipeline()
	mustAddStep(t, p, "A")
	mustAddStep(t, p, "B")
	mustAddStep(t, p, "C")
	if err := p.AddDependency("B", "A", Synchronous, false); err != nil {
		t.Fatalf("AddDependency: %v", err)
	}
	if err := p.AddDependency("C", "B", Asynchronous, true); err != nil {
		t.Fatalf("AddDependency: %v", err)
	}

	levels, err := p.Levels()
	if err != nil {
		t.Fatalf("Levels: %v", err)
	}
	if len(levels) != 3 {
		t.Fatalf("expected 3 levels, got %d", len(levels))
	}
	for i, lvl := range levels {
		if len(lvl) != 1 {
			t.Errorf("level %d: expected 1 step, got %d", i, len(lvl))
		}
	}

	aID, _ := p.StepByName("A")
	bID, _ := p.StepByName("B")
	cID, _ := p.StepByName("C")
	if levels[0][0] != aID || levels[1][0] != bID || levels[2][0] != cID {
		t.Errorf("unexpected level ordering: %v", levels)
	}
}

func TestPipeline_Levels_Diamond(t *testing.T) {
	p := NewPipeline()
	mustAddStep(t, p, "A")
	mustAddStep(t, p, "B")
	mustAddStep(t, p, "C")
	mustAddStep(t, p, "D")
	must(t, p.AddDependency("B", "A", Synchronous, false))
	must(t, p.AddDependency("C", "A", Synchronous, false))
	must(t, p.AddDependency("D", "B", Synchronous, false))
	must(t, p.AddDependency("D", "C", Synchronous, false))

	levels, err := p.Levels()
	if err != nil {
		t.Fatalf("Levels: %v", err)
	}
	if len(levels) != 3 {
		t.Fatalf("expected 3 levels (A | B,C | D), got %d: %v", len(levels), levels)
	}
	if len(levels[1]) != 2 {
		t.Errorf("expected level 1 to contain B and C, got %v", levels[1])
	}
}

func TestPipeline_Levels_Cycle(t *testing.T) {
	p := NewPipeline()
	mustAddStep(t, p, "A")
	mustAddStep(t, p, "B")
	must(t, p.AddDependency("A", "B", Synchronous, false))
	must(t, p.AddDependency("B", "A", Synchronous, false))

	if _, err := p.Levels(); err == nil {
		t.Fatal("expected cycle to be detected")
	}
}

func TestStep_IsScalable(t *testing.T) {
	p := NewPipeline()
	mustAddStep(t, p, "P")
	mustAddStep(t, p, "C1")
	mustAddStep(t, p, "C2")
	must(t, p.AddDependency("C1", "P", Asynchronous, true))
	must(t, p.AddDependency("C2", "P", Asynchronous, false))

	c1, _ := p.StepByName("C1")
	c2, _ := p.StepByName("C2")
	if !p.Step(c1).IsScalable() {
		t.Error("C1 should be scalable (async + scalable flag)")
	}
	if p.Step(c2).IsScalable() {
		t.Error("C2 should not be scalable (async but not flagged)")
	}
}

func TestStep_IsProducer(t *testing.T) {
	p := NewPipeline()
	mustAddStep(t, p, "P")
	mustAddStep(t, p, "SyncChild")
	mustAddStep(t, p, "AsyncChild")
	must(t, p.AddDependency("SyncChild", "P", Synchronous, false))
	must(t, p.AddDependency("AsyncChild", "P", Asynchronous, true))

	pID, _ := p.StepByName("P")
	syncID, _ := p.StepByName("SyncChild")
	asyncID, _ := p.StepByName("AsyncChild")

	if !p.Step(pID).IsProducer() {
		t.Error("P has no async parent, should be a producer")
	}
	if !p.Step(syncID).IsProducer() {
		t.Error("SyncChild has only a sync parent, should still be a producer")
	}
	if p.Step(asyncID).IsProducer() {
		t.Error("AsyncChild has an async parent, should not be a producer")
	}
}

func mustAddStep(t *testing.T, p *Pipeline, name string) StepID {
	t.Helper()
	id, err := p.AddStep(name)
	if err != nil {
		t.Fatalf("AddStep(%q): %v", name, err)
	}
	return id
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
