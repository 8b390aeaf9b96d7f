package agent

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// seedFile is the on-disk layout of AGENTS_FILE.
type seedFile struct {
	Agents []NewAgent `yaml:"agents"`
}

// LoadSeeds creates every agent listed in the YAML file at path. Seeded
// agents receive fresh ids on every start.
func (r *Registry) LoadSeeds(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read agent seeds: %w", err)
	}

	var seeds seedFile
	if err := yaml.Unmarshal(data, &seeds); err != nil {
		return 0, fmt.Errorf("parse agent seeds %s: %w", path, err)
	}

	for i, def := range seeds.Agents {
		if _, err := r.Create(ctx, def); err != nil {
			return i, fmt.Errorf("seed agent %d: %w", i, err)
		}
	}
	return len(seeds.Agents), nil
}
