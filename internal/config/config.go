// Package config groups the scheduling engine's tunables into small
// structs per concern, with a YAML loader for persisting a run's
// configuration alongside its inputs.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/catsched/cats/internal/estimator"
	"github.com/catsched/cats/internal/search"
)

// SchedulingConfig groups the scheduling inputs of spec §6: deadline,
// budget, operating input volume, and the optional scalability cap.
type SchedulingConfig struct {
	DeadlineSeconds float64 `yaml:"deadline_seconds"`
	BudgetUSD       float64 `yaml:"budget_usd"`
	InputVolumeMB   float64 `yaml:"input_volume_mb"`
	MaxScalability  int     `yaml:"max_scalability"`
}

// SafetyFactorConfig groups the hardware-requirement headroom tunables
// the spec leaves as an open question (a safety factor is implied but
// not given numerically).
type SafetyFactorConfig struct {
	CPUHeadroom    float64 `yaml:"cpu_headroom"`
	MemoryHeadroom float64 `yaml:"memory_headroom"`
}

// ConcurrencyConfig groups the worker-pool and wall-clock-budget tunables
// of spec §5.
type ConcurrencyConfig struct {
	Workers        int     `yaml:"workers"`
	TimeoutSeconds float64 `yaml:"timeout_seconds"`
	EmitAllTies    bool    `yaml:"emit_all_ties"`
}

// RunConfig is the top-level config file a `cats schedule` invocation may
// load via --config, overridable per-field by individual CLI flags.
type RunConfig struct {
	Scheduling   SchedulingConfig   `yaml:"scheduling"`
	SafetyFactor SafetyFactorConfig `yaml:"safety_factor"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency"`
}

// DefaultRunConfig mirrors estimator.DefaultConfig and search.DefaultConfig.
func DefaultRunConfig() RunConfig {
	hw := estimator.DefaultConfig()
	s := search.DefaultConfig()
	return RunConfig{
		SafetyFactor: SafetyFactorConfig{CPUHeadroom: hw.CPUHeadroom, MemoryHeadroom: hw.MemoryHeadroom},
		Concurrency: ConcurrencyConfig{
			Workers:        s.Workers,
			TimeoutSeconds: s.Timeout.Seconds(),
		},
		Scheduling: SchedulingConfig{MaxScalability: s.MaxScalability},
	}
}

// LoadRunConfig reads and parses a YAML run configuration file.
func LoadRunConfig(path string) (RunConfig, error) {
	cfg := DefaultRunConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// EstimatorConfig adapts the safety-factor section to estimator.Config.
func (c RunConfig) EstimatorConfig() estimator.Config {
	return estimator.Config{CPUHeadroom: c.SafetyFactor.CPUHeadroom, MemoryHeadroom: c.SafetyFactor.MemoryHeadroom}
}

// SearchConfig adapts the scheduling/concurrency sections to search.Config.
func (c RunConfig) SearchConfig() search.Config {
	return search.Config{
		DeadlineSeconds: c.Scheduling.DeadlineSeconds,
		BudgetUSD:       c.Scheduling.BudgetUSD,
		InputVolumeMB:   c.Scheduling.InputVolumeMB,
		MaxScalability:  c.Scheduling.MaxScalability,
		Workers:         c.Concurrency.Workers,
		Timeout:         time.Duration(c.Concurrency.TimeoutSeconds * float64(time.Second)),
		EmitAllTies:     c.Concurrency.EmitAllTies,
	}
}
