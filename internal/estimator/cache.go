package estimator

import (
	"fmt"
	"sync"

	"github.com/catsched/cats/internal/model"
)

// Cache is the process-wide estimation cache described in spec §3/§5/§9:
// built once, read-only thereafter. Hardware requirements and timeline
// estimations are each memoized under their own write-once lock on first
// access, so concurrent search workers querying the same key block on
// the fill rather than recomputing it.
type Cache struct {
	pipeline *model.Pipeline
	network  *model.Network
	samples  *model.DrySamples
	cfg      Config

	inputVolumeMB float64

	mu sync.Mutex
	hw map[hwKey]*hwEntry
	tl map[tlKey]*tlEntry
}

type hwKey struct {
	Step     model.StepID
	Resource model.ResourceID
}

type hwEntry struct {
	once  sync.Once
	value HardwareRequirement
	err   error
}

type tlKey struct {
	Step     model.StepID
	Producer model.ResourceID
	Consumer model.ResourceID
	Upstream float64
}

type tlEntry struct {
	once  sync.Once
	value TimelineEstimation
	err   error
}

// NewCache builds an empty, ready-to-use Cache for the given pipeline,
// network, dry-run samples, safety-factor config, and operating input
// volume (MB).
func NewCache(pipeline *model.Pipeline, network *model.Network, samples *model.DrySamples, cfg Config, inputVolumeMB float64) *Cache {
	return &Cache{
		pipeline:      pipeline,
		network:       network,
		samples:       samples,
		cfg:           cfg,
		inputVolumeMB: inputVolumeMB,
		hw:            make(map[hwKey]*hwEntry),
		tl:            make(map[tlKey]*tlEntry),
	}
}

// HardwareRequirement returns the memoized hardware requirement for
// (step, resource), computing it on first access across all callers.
func (c *Cache) HardwareRequirement(step model.StepID, resource model.ResourceID) (HardwareRequirement, error) {
	key := hwKey{step, resource}

	c.mu.Lock()
	e, ok := c.hw[key]
	if !ok {
		e = &hwEntry{}
		c.hw[key] = e
	}
	c.mu.Unlock()

	e.once.Do(func() {
		e.value, e.err = EstimateHardwareRequirement(c.samples, c.cfg, step, resource)
	})
	return e.value, e.err
}

// TimelineEstimation returns the memoized timeline estimation for (step,
// producerResource, consumerResource, upstreamOutputs), computing it on
// first access across all callers.
func (c *Cache) TimelineEstimation(step model.StepID, producerResource, consumerResource model.ResourceID, upstreamOutputs float64) (TimelineEstimation, error) {
	key := tlKey{step, producerResource, consumerResource, upstreamOutputs}

	c.mu.Lock()
	e, ok := c.tl[key]
	if !ok {
		e = &tlEntry{}
		c.tl[key] = e
	}
	c.mu.Unlock()

	e.once.Do(func() {
		e.value, e.err = Estimate(c.pipeline, c.network, c.samples, step, producerResource, consumerResource, c.inputVolumeMB, upstreamOutputs)
	})
	return e.value, e.err
}

// InputVolumeMB returns the operating input volume this cache was built for.
func (c *Cache) InputVolumeMB() float64 {
	return c.inputVolumeMB
}

func (c *Cache) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fmt.Sprintf("estimator.Cache{hw=%d entries, timeline=%d entries}", len(c.hw), len(c.tl))
}
