package search

import (
	"fmt"
	"sync"
)

// Trace is a supplemented, additive observability record of what the
// search driver did at each level: it changes no scoring or pruning
// decision, only narrates them for `cats schedule --log debug` and for
// post-hoc debugging of why a particular candidate won or was dropped.
type Trace struct {
	mu      sync.Mutex
	entries []LevelDecision
}

// LevelDecision records one level's fan-in/fan-out: how many candidates
// entered the level and how many distinct timelines survived it.
type LevelDecision struct {
	Level      int
	Incoming   int
	Surviving  int
}

func newTrace() *Trace {
	return &Trace{}
}

func (t *Trace) record(level, incoming, surviving int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, LevelDecision{Level: level, Incoming: incoming, Surviving: surviving})
}

// Entries returns a snapshot of the recorded decisions, in level order.
func (t *Trace) Entries() []LevelDecision {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]LevelDecision, len(t.entries))
	copy(out, t.entries)
	return out
}

func (d LevelDecision) String() string {
	return fmt.Sprintf("level %d: %d candidate(s) in, %d surviving", d.Level, d.Incoming, d.Surviving)
}
