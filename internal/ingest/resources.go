package ingest

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/catsched/cats/internal/catserr"
	"github.com/catsched/cats/internal/model"
)

type resourceSpec struct {
	Resources []resourceEntry `yaml:"resources"`
	Edges     []edgeEntry     `yaml:"edges"`
}

type resourceEntry struct {
	Name          string  `yaml:"name"`
	CPUCores      float64 `yaml:"cpu_cores"`
	MemoryBytes   int64   `yaml:"memory_bytes"`
	CostPerSecond float64 `yaml:"cost_per_second"`
}

type edgeEntry struct {
	From                    string  `yaml:"from"`
	To                      string  `yaml:"to"`
	BandwidthBytesPerSecond float64 `yaml:"bandwidth_bytes_per_second"`
	RTTMillis               float64 `yaml:"rtt_millis"`
	CostPerByte             float64 `yaml:"cost_per_byte"`
}

// LoadResources parses a resource descriptor YAML file — the resource
// table and pairwise-bandwidth matrix of spec §6 — into a model.Network.
func LoadResources(path string) (*model.Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: reading resources %s: %w: %v", path, catserr.ErrMalformedInput, err)
	}
	var spec resourceSpec
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return nil, fmt.Errorf("ingest: parsing resources %s: %w: %v", path, catserr.ErrMalformedInput, err)
	}

	n := model.NewNetwork()
	for _, r := range spec.Resources {
		if _, err := n.AddResource(r.Name, r.CPUCores, r.MemoryBytes, r.CostPerSecond); err != nil {
			return nil, fmt.Errorf("ingest: resources %s: %w: %v", path, catserr.ErrMalformedInput, err)
		}
	}
	for _, e := range spec.Edges {
		from, ok := n.ResourceByName(e.From)
		if !ok {
			return nil, fmt.Errorf("ingest: resources %s: edge references unknown resource %q: %w", path, e.From, catserr.ErrMalformedInput)
		}
		to, ok := n.ResourceByName(e.To)
		if !ok {
			return nil, fmt.Errorf("ingest: resources %s: edge references unknown resource %q: %w", path, e.To, catserr.ErrMalformedInput)
		}
		n.SetEdge(from, to, e.BandwidthBytesPerSecond, e.RTTMillis, e.CostPerByte)
	}
	return n, nil
}
