// Package ingest loads the peripheral-I/O inputs named in spec §6 —
// pipeline and resource descriptors (YAML) and dry-run metrics tables
// (CSV) — into the model arenas the engine operates on. Every failure
// here is a MalformedInput: it surfaces before the engine starts, per
// the error handling design's "fail fast" policy.
package ingest

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/catsched/cats/internal/catserr"
	"github.com/catsched/cats/internal/model"
)

type pipelineSpec struct {
	Steps []stepSpec `yaml:"steps"`
}

type stepSpec struct {
	Name         string           `yaml:"name"`
	Dependencies []dependencySpec `yaml:"dependencies"`
}

type dependencySpec struct {
	Prerequisite string `yaml:"prerequisite"`
	Kind         string `yaml:"kind"`
	Scalable     bool   `yaml:"scalable"`
}

// LoadPipeline parses a pipeline descriptor YAML file into a model.Pipeline.
func LoadPipeline(path string) (*model.Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: reading pipeline %s: %w: %v", path, catserr.ErrMalformedInput, err)
	}
	var spec pipelineSpec
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return nil, fmt.Errorf("ingest: parsing pipeline %s: %w: %v", path, catserr.ErrMalformedInput, err)
	}

	p := model.NewPipeline()
	for _, s := range spec.Steps {
		if _, err := p.AddStep(s.Name); err != nil {
			return nil, fmt.Errorf("ingest: pipeline %s: %w: %v", path, catserr.ErrMalformedInput, err)
		}
	}
	for _, s := range spec.Steps {
		for _, dep := range s.Dependencies {
			kind, err := parseKind(dep.Kind)
			if err != nil {
				return nil, fmt.Errorf("ingest: pipeline %s, step %q: %w: %v", path, s.Name, catserr.ErrMalformedInput, err)
			}
			if err := p.AddDependency(s.Name, dep.Prerequisite, kind, dep.Scalable); err != nil {
				return nil, fmt.Errorf("ingest: pipeline %s: %w: %v", path, catserr.ErrMalformedInput, err)
			}
		}
	}
	return p, nil
}

func parseKind(s string) (model.DependencyKind, error) {
	switch s {
	case "sync", "synchronous", "":
		return model.Synchronous, nil
	case "async", "asynchronous":
		return model.Asynchronous, nil
	default:
		return 0, fmt.Errorf("unknown dependency kind %q", s)
	}
}

type forcedSpec struct {
	Forced []forcedEntry `yaml:"forced"`
}

type forcedEntry struct {
	Step     string `yaml:"step"`
	Resource string `yaml:"resource"`
}

// LoadForcedDeployments parses a forced-deployment YAML file, resolving
// step/resource names against an already-loaded pipeline and network.
func LoadForcedDeployments(path string, pipeline *model.Pipeline, network *model.Network) (map[model.StepID]model.ResourceID, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: reading forced deployments %s: %w: %v", path, catserr.ErrMalformedInput, err)
	}
	var spec forcedSpec
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return nil, fmt.Errorf("ingest: parsing forced deployments %s: %w: %v", path, catserr.ErrMalformedInput, err)
	}

	out := make(map[model.StepID]model.ResourceID, len(spec.Forced))
	for _, f := range spec.Forced {
		step, ok := pipeline.StepByName(f.Step)
		if !ok {
			return nil, fmt.Errorf("ingest: forced deployment %s: unknown step %q: %w", path, f.Step, catserr.ErrMalformedInput)
		}
		resource, ok := network.ResourceByName(f.Resource)
		if !ok {
			return nil, fmt.Errorf("ingest: forced deployment %s: unknown resource %q: %w", path, f.Resource, catserr.ErrMalformedInput)
		}
		out[step] = resource
	}
	return out, nil
}
