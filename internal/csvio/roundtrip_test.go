package csvio

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/catsched/cats/internal/model"
	"github.com/catsched/cats/internal/timeline"
)

func buildFixture(t *testing.T) (*model.Pipeline, *model.Network, *timeline.Timeline) {
	t.Helper()
	p := model.NewPipeline()
	_, err := p.AddStep("P")
	require.NoError(t, err)
	_, err = p.AddStep("C")
	require.NoError(t, err)
	require.NoError(t, p.AddDependency("C", "P", model.Synchronous, false))

	n := model.NewNetwork()
	r1, err := n.AddResource("R1", 4, 8<<30, 0.01)
	require.NoError(t, err)

	tl := timeline.New(p, n)
	pID, _ := p.StepByName("P")
	cID, _ := p.StepByName("C")
	require.NoError(t, tl.AddEvent(&timeline.Event{Step: pID, Resource: r1, Start: 0, Duration: 10, Reservation: timeline.Reservation{CPU: 1, MemoryBytes: 1}, ReplicaCount: 1}))
	require.NoError(t, tl.AddEvent(&timeline.Event{Step: cID, Resource: r1, Start: 10, Duration: 5, Reservation: timeline.Reservation{CPU: 2, MemoryBytes: 1}, ReplicaCount: 1}))
	return p, n, tl
}

func TestWriteReadTimeline_RoundTrip(t *testing.T) {
	p, n, tl := buildFixture(t)
	path := filepath.Join(t.TempDir(), "timeline.csv")

	require.NoError(t, WriteTimeline(path, tl, p, n))
	reloaded, err := ReadTimeline(path, p, n)
	require.NoError(t, err)

	require.Equal(t, tl.TotalTime(), reloaded.TotalTime())
	require.Equal(t, tl.ResourceCost(), reloaded.ResourceCost())
	require.Equal(t, len(tl.AllEvents()), len(reloaded.AllEvents()))
}

func TestWriteSummary(t *testing.T) {
	_, _, tl := buildFixture(t)
	path := filepath.Join(t.TempDir(), "summary.csv")

	require.NoError(t, WriteSummary(path, tl, 100, 10))
}
