package config

import (
	"github.com/leapstack-labs/sftprep/internal/source"
	"github.com/leapstack-labs/sftprep/pkg/core"
)

// DefaultFamilies returns the Hugging Face sources each family is fetched from.
func DefaultFamilies() map[string]*FamilyConfig {
	return map[string]*FamilyConfig{
		string(core.FamilyWriting): {
			Dataset: "m-a-p/DeepWriting-20k",
			Subsets: []source.Subset{
				{Name: "train", Path: "deepwriting20k.parquet"},
			},
		},
		string(core.FamilyMath): {
			Dataset: "nvidia/OpenMathInstruct-1",
			Subsets: []source.Subset{
				{Name: "train", Path: "correct_solutions/train.jsonl"},
				{Name: "validation", Path: "correct_solutions/validation.jsonl"},
			},
		},
	}
}

// ApplyDefaults fills families missing from the configuration, and the
// dataset and subsets of partially configured ones.
func (c *Config) ApplyDefaults() {
	if c.Families == nil {
		c.Families = make(map[string]*FamilyConfig)
	}
	for name, def := range DefaultFamilies() {
		fc, ok := c.Families[name]
		if !ok || fc == nil {
			c.Families[name] = def
			continue
		}
		if fc.Dataset == "" && len(fc.Subsets) == 0 {
			fc.Dataset = def.Dataset
		}
		if len(fc.Subsets) == 0 {
			fc.Subsets = def.Subsets
		}
		for i := range fc.Subsets {
			if fc.Subsets[i].Name == "" {
				fc.Subsets[i].Name = fc.Subsets[i].Path
			}
		}
	}
	if len(c.Run.Stages) == 0 {
		for _, s := range core.Steps() {
			c.Run.Stages = append(c.Run.Stages, string(s))
		}
	}
}
