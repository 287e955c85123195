package estimator

import (
	"fmt"

	"github.com/catsched/cats/internal/catserr"
	"github.com/catsched/cats/internal/model"
)

// HardwareRequirement is the (step, resource) reservation derived from
// dry-run samples, per spec §3/§4.1.
type HardwareRequirement struct {
	CPU         float64
	MemoryBytes int64
}

// Config groups the safety-factor tunables the spec leaves as an open
// question ("the exact formula tying dry-run CPU/memory to required
// reservations is not specified numerically ... treat as a tunable").
// Both default to 1.0. MemoryHeadroom multiplies the observed peak
// memory, so 1.0 covers that peak exactly. CPUHeadroom multiplies the
// observed mean CPU, so 1.0 reserves the mean and does not cover CPU
// peaks above it.
type Config struct {
	CPUHeadroom    float64
	MemoryHeadroom float64
}

// DefaultConfig returns the spec's stated default safety factors.
func DefaultConfig() Config {
	return Config{CPUHeadroom: 1.0, MemoryHeadroom: 1.0}
}

// EstimateHardwareRequirement aggregates mean CPU and peak memory across
// all dry-run samples for (step, resource), and multiplies by the
// configured safety factors, per spec §4.1. Returns ErrInsufficientSamples
// if no sample exists for the pair.
func EstimateHardwareRequirement(samples *model.DrySamples, cfg Config, step model.StepID, resource model.ResourceID) (HardwareRequirement, error) {
	perf := samples.PerformanceMetrics(step, resource)
	if len(perf) == 0 {
		return HardwareRequirement{}, fmt.Errorf("estimator: hardware requirement for step %d on resource %d: %w", step, resource, catserr.ErrInsufficientSamples)
	}

	var cpuSum, memPeak float64
	for _, s := range perf {
		cpuSum += s.AvgCPUPct
		if s.MaxMemMB > memPeak {
			memPeak = s.MaxMemMB
		}
	}
	meanCPUPct := cpuSum / float64(len(perf))

	return HardwareRequirement{
		CPU:         (meanCPUPct / 100.0) * cfg.CPUHeadroom,
		MemoryBytes: int64(memPeak * 1e6 * cfg.MemoryHeadroom),
	}, nil
}
