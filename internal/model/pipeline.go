package model

import "fmt"

// DependencyKind distinguishes a synchronous dependency (consumer must
// wait for the prerequisite to fully finish) from an asynchronous one
// (consumer may start consuming a stream of outputs as they are produced,
// and, if marked scalable, may be replicated to partition that stream).
type DependencyKind int

const (
	Synchronous DependencyKind = iota
	Asynchronous
)

func (k DependencyKind) String() string {
	if k == Asynchronous {
		return "async"
	}
	return "sync"
}

// Dependency is one incoming edge of a Step.
type Dependency struct {
	Prerequisite StepID
	Kind         DependencyKind
	// Scalable marks that this asynchronous edge permits the consumer to
	// be replicated; meaningless (ignored) on a synchronous dependency.
	Scalable bool
}

// Step is a named node in the pipeline DAG.
type Step struct {
	ID           StepID
	Name         string
	Dependencies []Dependency
}

// IsScalable reports whether the step has at least one incoming
// asynchronous dependency marked scalable, per spec §3.
func (s *Step) IsScalable() bool {
	for _, d := range s.Dependencies {
		if d.Kind == Asynchronous && d.Scalable {
			return true
		}
	}
	return false
}

// AsyncParent returns the step's asynchronous prerequisite, if any. A
// step has at most one semantically meaningful async parent for timeline
// estimation purposes (spec §4.1: "a step is a producer or a consumer").
func (s *Step) AsyncParent() (StepID, bool) {
	for _, d := range s.Dependencies {
		if d.Kind == Asynchronous {
			return d.Prerequisite, true
		}
	}
	return InvalidStepID, false
}

// SyncParents returns the IDs of all synchronous prerequisites.
func (s *Step) SyncParents() []StepID {
	var out []StepID
	for _, d := range s.Dependencies {
		if d.Kind == Synchronous {
			out = append(out, d.Prerequisite)
		}
	}
	return out
}

// IsProducer reports whether the step has no asynchronous predecessor,
// i.e. its total work scales with the global input volume rather than
// with a predecessor's delivered message count (spec §4.1 step 1).
func (s *Step) IsProducer() bool {
	_, ok := s.AsyncParent()
	return !ok
}

// Pipeline is the immutable, read-only-after-load arena of steps.
type Pipeline struct {
	steps   []Step
	byName  map[string]StepID
}

// NewPipeline builds an empty Pipeline. Steps are added with AddStep and
// dependencies with AddDependency, which resolves names to StepIDs
// eagerly so the Pipeline's cross-references are all integer IDs.
func NewPipeline() *Pipeline {
	return &Pipeline{byName: make(map[string]StepID)}
}

// AddStep registers a step by name and returns its StepID. Names must be
// unique within the pipeline.
func (p *Pipeline) AddStep(name string) (StepID, error) {
	if _, exists := p.byName[name]; exists {
		return InvalidStepID, fmt.Errorf("model: duplicate step name %q", name)
	}
	id := StepID(len(p.steps))
	p.steps = append(p.steps, Step{ID: id, Name: name})
	p.byName[name] = id
	return id, nil
}

// AddDependency records that consumer depends on prerequisite with the
// given kind/scalability. Both names must already have been added via
// AddStep.
func (p *Pipeline) AddDependency(consumer, prerequisite string, kind DependencyKind, scalable bool) error {
	cid, ok := p.byName[consumer]
	if !ok {
		return fmt.Errorf("model: unknown step %q", consumer)
	}
	pid, ok := p.byName[prerequisite]
	if !ok {
		return fmt.Errorf("model: unknown step %q", prerequisite)
	}
	p.steps[cid].Dependencies = append(p.steps[cid].Dependencies, Dependency{
		Prerequisite: pid,
		Kind:         kind,
		Scalable:     scalable,
	})
	return nil
}

// Step returns the step with the given ID.
func (p *Pipeline) Step(id StepID) *Step {
	return &p.steps[id]
}

// StepByName resolves a step name to its ID.
func (p *Pipeline) StepByName(name string) (StepID, bool) {
	id, ok := p.byName[name]
	return id, ok
}

// Steps returns all steps in arena order (insertion order, not
// topological order — use Levels for that).
func (p *Pipeline) Steps() []Step {
	return p.steps
}

// Len returns the number of steps in the pipeline.
func (p *Pipeline) Len() int {
	return len(p.steps)
}

// Levels partitions the pipeline DAG into topological levels by a
// Kahn-style layering (spec §4.3): level 0 is every step with no
// prerequisites; level i+1 is every step whose prerequisites are all in
// levels <= i. Returns an error if the dependency graph contains a cycle.
func (p *Pipeline) Levels() ([][]StepID, error) {
	indegree := make([]int, len(p.steps))
	for _, s := range p.steps {
		indegree[s.ID] = len(s.Dependencies)
	}

	var levels [][]StepID
	remaining := len(p.steps)
	placed := make([]bool, len(p.steps))

	for remaining > 0 {
		var level []StepID
		for _, s := range p.steps {
			if !placed[s.ID] && indegree[s.ID] == 0 {
				level = append(level, s.ID)
			}
		}
		if len(level) == 0 {
			return nil, fmt.Errorf("model: pipeline dependency graph contains a cycle")
		}
		for _, id := range level {
			placed[id] = true
		}
		remaining -= len(level)

		for _, s := range p.steps {
			if placed[s.ID] {
				continue
			}
			count := 0
			for _, dep := range s.Dependencies {
				if !placed[dep.Prerequisite] {
					count++
				}
			}
			indegree[s.ID] = count
		}

		levels = append(levels, level)
	}
	return levels, nil
}
