// Package search implements the candidate-schedule search: level-by-level
// enumeration of (permutation × resource assignment × scaling) tuples,
// scoring each speculative timeline and retaining the ties at the
// minimum score, per the search-loop design.
package search

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/catsched/cats/internal/catserr"
	"github.com/catsched/cats/internal/estimator"
	"github.com/catsched/cats/internal/model"
	"github.com/catsched/cats/internal/timeline"
)

// Config groups the scheduling inputs and search tunables.
type Config struct {
	DeadlineSeconds float64
	BudgetUSD       float64
	InputVolumeMB   float64
	MaxScalability  int
	Workers         int
	Timeout         time.Duration
	// EmitAllTies, when true, returns every timeline tying for the
	// minimum final score instead of the lexicographically-first one.
	EmitAllTies bool
}

// DefaultConfig returns sane defaults for Workers/MaxScalability/Timeout;
// Deadline/Budget/InputVolumeMB have no sensible default and must be set
// by the caller.
func DefaultConfig() Config {
	return Config{
		MaxScalability: 8,
		Workers:        runtime.GOMAXPROCS(0),
		Timeout:        30 * time.Second,
	}
}

// candidate is one partially-scheduled timeline as it threads through
// the level-by-level recursion, plus enough bookkeeping to estimate
// downstream consumers correctly.
type candidate struct {
	tl         *timeline.Timeline
	placements map[model.StepID]estimator.TimelineEstimation
}

func (c candidate) clone() candidate {
	placements := make(map[model.StepID]estimator.TimelineEstimation, len(c.placements))
	for k, v := range c.placements {
		placements[k] = v
	}
	return candidate{tl: c.tl.Clone(), placements: placements}
}

func (c candidate) score(cfg Config) (total, timeFraction, costFraction float64) {
	timeFraction = c.tl.TotalTime() / cfg.DeadlineSeconds
	costFraction = (c.tl.ResourceCost() + c.tl.DataTransmissionCost()) / cfg.BudgetUSD
	return timeFraction + costFraction, timeFraction, costFraction
}

func pruned(timeFraction, costFraction float64) bool {
	return timeFraction > 1 || costFraction > 1
}

// Driver runs the search over a pipeline/network/dry-run-sample triple.
type Driver struct {
	pipeline *model.Pipeline
	network  *model.Network
	samples  *model.DrySamples
	cache    *estimator.Cache
	cfg      Config
	forced   map[model.StepID]model.ResourceID
	trace    *Trace
}

// NewDriver builds a Driver. forced may be nil.
func NewDriver(pipeline *model.Pipeline, network *model.Network, samples *model.DrySamples, cache *estimator.Cache, cfg Config, forced map[model.StepID]model.ResourceID) *Driver {
	if forced == nil {
		forced = map[model.StepID]model.ResourceID{}
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.MaxScalability < 1 {
		cfg.MaxScalability = 1
	}
	return &Driver{
		pipeline: pipeline,
		network:  network,
		samples:  samples,
		cache:    cache,
		cfg:      cfg,
		forced:   forced,
		trace:    newTrace(),
	}
}

// Trace returns the decision trace accumulated by the most recent Run.
func (d *Driver) Trace() *Trace {
	return d.trace
}

// Run performs the full level-by-level search and returns the set of
// final timelines (ties retained per EmitAllTies), or ErrInfeasible if
// no level-0 candidate survives.
func (d *Driver) Run(ctx context.Context) ([]*timeline.Timeline, error) {
	levels, err := d.pipeline.Levels()
	if err != nil {
		return nil, fmt.Errorf("search: %w: %v", catserr.ErrMalformedInput, err)
	}

	if d.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()
	}

	candidates := []candidate{{
		tl:         timeline.New(d.pipeline, d.network),
		placements: map[model.StepID]estimator.TimelineEstimation{},
	}}

	var lastPruneReason error
	for levelIdx, level := range levels {
		var next []candidate
		for _, c := range candidates {
			extended, reason, err := d.exploreLevel(ctx, c, level)
			if err != nil {
				return nil, err
			}
			if reason != nil {
				lastPruneReason = reason
			}
			next = append(next, extended...)
		}
		next = dedupeCandidates(next)
		d.trace.record(levelIdx, len(candidates), len(next))
		if len(next) == 0 {
			if lastPruneReason == nil {
				lastPruneReason = catserr.ErrInsufficientSamples
			}
			return nil, fmt.Errorf("search: level %d: %w: %w", levelIdx, catserr.ErrInfeasible, lastPruneReason)
		}
		candidates = next
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("search: %w: empty pipeline has no candidate", catserr.ErrInfeasible)
	}

	// Candidates reached through different branches can end with
	// different scores; keep only those tying for the overall minimum.
	const tieEpsilon = 1e-9
	minScore := math.Inf(1)
	for _, c := range candidates {
		if s, _, _ := c.score(d.cfg); s < minScore {
			minScore = s
		}
	}
	var best []candidate
	for _, c := range candidates {
		if s, _, _ := c.score(d.cfg); s <= minScore+tieEpsilon {
			best = append(best, c)
		}
	}
	candidates = best

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].tl.Canonical() < candidates[j].tl.Canonical()
	})

	if !d.cfg.EmitAllTies && len(candidates) > 1 {
		candidates = candidates[:1]
	}

	out := make([]*timeline.Timeline, len(candidates))
	for i, c := range candidates {
		out[i] = c.tl
	}
	return out, nil
}

// exploreLevel runs the per-level search loop (spec's steps 1-5) for one
// incoming candidate, returning the retained ties for that candidate, or
// an empty slice plus the reason for the last prune if none survived.
func (d *Driver) exploreLevel(ctx context.Context, c candidate, level []model.StepID) ([]candidate, error, error) {
	eligible := make(map[model.StepID][]model.ResourceID, len(level))
	for _, step := range level {
		eligible[step] = d.eligibleResources(step)
		if len(eligible[step]) == 0 {
			return nil, catserr.ErrInsufficientSamples, nil
		}
	}

	perms := permutations(level)
	var tuples []assignmentTuple
	for _, perm := range perms {
		options := make([][]model.ResourceID, len(perm))
		for i, step := range perm {
			options[i] = eligible[step]
		}
		for _, assignment := range cartesian(options) {
			tuples = append(tuples, assignmentTuple{perm: perm, assignment: assignment})
		}
	}

	type result struct {
		cand  candidate
		score float64
	}
	var (
		mu          sync.Mutex
		results     []result
		bestScore   = math.Inf(1)
		lastErr     error
		sawSuccess  bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.Workers)

	for _, tup := range tuples {
		tup := tup
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			cand, score, err := d.evaluateTuple(c, tup)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				lastErr = err
				return nil
			}
			sawSuccess = true
			if score < bestScore {
				bestScore = score
			}
			results = append(results, result{cand: cand, score: score})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	if !sawSuccess {
		if lastErr == nil {
			lastErr = catserr.ErrInsufficientSamples
		}
		return nil, lastErr, nil
	}

	const tieEpsilon = 1e-9
	var tied []candidate
	for _, r := range results {
		if r.score <= bestScore+tieEpsilon {
			tied = append(tied, r.cand)
		}
	}
	return dedupeCandidates(tied), nil, nil
}

type assignmentTuple struct {
	perm       []model.StepID
	assignment []model.ResourceID
}

// evaluateTuple speculatively extends c with one (permutation,
// assignment) tuple, exploring scaling for any scalable step in the
// tuple, and returns the resulting candidate and its score.
func (d *Driver) evaluateTuple(c candidate, tup assignmentTuple) (candidate, float64, error) {
	work := c.clone()

	for i, step := range tup.perm {
		resource := tup.assignment[i]
		est, err := d.placeStep(work, step, resource, 1, 0)
		if err != nil {
			return candidate{}, 0, err
		}
		work.placements[step] = est

		s := d.pipeline.Step(step)
		if _, forced := d.forcedLookup(step); s.IsScalable() && !forced {
			if _, err := d.tryScale(&work, step, resource, est); err != nil {
				return candidate{}, 0, err
			}
		}
	}

	score, timeFraction, costFraction := work.score(d.cfg)
	if pruned(timeFraction, costFraction) {
		if timeFraction > 1 {
			return candidate{}, 0, catserr.ErrDeadlineExceeded
		}
		return candidate{}, 0, catserr.ErrBudgetExceeded
	}
	return work, score, nil
}

func (d *Driver) forcedLookup(step model.StepID) (model.ResourceID, bool) {
	r, ok := d.forced[step]
	return r, ok
}

// placeStep estimates and places a single step instance on resource as
// replica shareIndex of shareCount (1/0 for an unscaled placement),
// returning the full (pre-scaling) estimation used for downstream
// NumberOfProducedOutputs lookups.
func (d *Driver) placeStep(c candidate, step model.StepID, resource model.ResourceID, shareCount, shareIndex int) (estimator.TimelineEstimation, error) {
	s := d.pipeline.Step(step)

	hw, err := d.cache.HardwareRequirement(step, resource)
	if err != nil {
		return nil, err
	}

	var producerResource model.ResourceID
	var upstreamOutputs float64
	if parent, ok := s.AsyncParent(); ok {
		parentResource, scheduled := c.tl.ScheduledResourceOfStep(parent)
		if !scheduled {
			return nil, fmt.Errorf("search: step %d has unscheduled async parent %d", step, parent)
		}
		producerResource = parentResource
		if parentEst, ok := c.placements[parent]; ok {
			upstreamOutputs = parentEst.NumberOfProducedOutputs()
		}
	} else {
		producerResource = resource
	}

	full, err := d.cache.TimelineEstimation(step, producerResource, resource, upstreamOutputs)
	if err != nil {
		return nil, err
	}

	placed := full
	if shareCount > 1 {
		placed, err = full.ScaleTo(shareCount, shareIndex)
		if err != nil {
			return nil, err
		}
	}

	floor := c.tl.StepSynchronizationPosition(step)
	reservation := timeline.Reservation{CPU: hw.CPU, MemoryBytes: hw.MemoryBytes}
	pos := c.tl.EarliestAvailablePositionAfter(resource, reservation, placed.TotalDuration(), floor)

	var transferCost float64
	if _, ok := s.AsyncParent(); ok {
		transferCost = d.network.TransferCost(producerResource, resource, placed.DataTransmissionBytes(), 1)
	}

	replicaCount := shareCount
	if replicaCount < 1 {
		replicaCount = 1
	}
	ev := &timeline.Event{
		Step:          step,
		Resource:      resource,
		Start:         pos,
		Duration:      placed.TotalDuration(),
		Reservation:   reservation,
		TransferCost:  transferCost,
		ReplicaIndex:  shareIndex,
		ReplicaCount:  replicaCount,
		InputsCovered: placed.NumberOfTransmittedInputs(),
	}
	if err := c.tl.AddEvent(ev); err != nil {
		return nil, err
	}

	return full, nil
}

// tryScale explores replication of step (already placed as a single
// instance on resource) per spec's step 4: for K in 2..maxK, replace the
// single placement with a K-replica placement iff score improves.
func (d *Driver) tryScale(c *candidate, step model.StepID, resource model.ResourceID, full estimator.TimelineEstimation) (bool, error) {
	parent, ok := d.pipeline.Step(step).AsyncParent()
	if !ok {
		return false, nil
	}
	parentEst, ok := c.placements[parent]
	if !ok {
		return false, nil
	}

	baseScore, _, _ := c.score(d.cfg)

	perInputProcessing := 0.0
	if full.NumberOfTransmittedInputs() > 0 {
		perInputProcessing = full.StepProcessingTime() / full.NumberOfTransmittedInputs()
	}
	maxK := d.cfg.MaxScalability
	if perInputProcessing > 0 {
		bound := int(math.Ceil(parentEst.StepProcessingTime() / perInputProcessing))
		if bound < maxK {
			maxK = bound
		}
	}
	if maxK < 2 {
		return false, nil
	}

	eligible := d.eligibleResources(step)
	if len(eligible) == 0 {
		return false, nil
	}

	bestCandidate := *c
	bestScore := baseScore
	improved := false

	for k := 2; k <= maxK; k++ {
		for _, resources := range cartesianRepeat(eligible, k) {
			trial := c.clone()
			if err := removeEventsOfStep(trial.tl, step); err != nil {
				continue
			}
			ok := true
			for idx, r := range resources {
				if _, err := d.placeStep(trial, step, r, k, idx); err != nil {
					ok = false
					break
				}
			}
			if !ok {
				continue
			}
			score, timeFraction, costFraction := trial.score(d.cfg)
			if pruned(timeFraction, costFraction) {
				continue
			}
			if score < bestScore {
				bestScore = score
				bestCandidate = trial
				improved = true
			}
		}
	}

	if improved {
		*c = bestCandidate
	}
	return improved, nil
}

func removeEventsOfStep(tl *timeline.Timeline, step model.StepID) error {
	for _, e := range append([]*timeline.Event{}, tl.EventsOfStep(step)...) {
		if err := tl.RemoveEvent(e); err != nil {
			return err
		}
	}
	return nil
}

// eligibleResources is the intersection of the network's resources with
// those for which dry-run samples (and, implicitly, an estimation) can
// be produced, honoring forced deployments.
func (d *Driver) eligibleResources(step model.StepID) []model.ResourceID {
	if r, ok := d.forced[step]; ok {
		return []model.ResourceID{r}
	}
	var out []model.ResourceID
	for _, res := range d.network.Resources() {
		if !d.samples.HasSamples(step, res.ID) {
			continue
		}
		if _, ok := d.samples.DeploymentMetric(step, res.ID); !ok {
			continue
		}
		out = append(out, res.ID)
	}
	return out
}

func dedupeCandidates(cands []candidate) []candidate {
	seen := make(map[string]bool, len(cands))
	var out []candidate
	for _, c := range cands {
		key := c.tl.Canonical()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}
