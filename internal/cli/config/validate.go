package config

import (
	"fmt"
	"slices"

	"github.com/leapstack-labs/sftprep/internal/clean"
	"github.com/leapstack-labs/sftprep/internal/split"
	"github.com/leapstack-labs/sftprep/internal/storage"
	"github.com/leapstack-labs/sftprep/pkg/core"
)

var (
	outputModes = []string{"auto", "text", "markdown", "json"}
	logFormats  = []string{"text", "json"}
)

// Validate checks the configuration. Errors name the offending key.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if !slices.Contains(storage.ListStores(), c.Storage) {
		return fmt.Errorf("storage: unknown format %q (available: %v)", c.Storage, storage.ListStores())
	}
	if c.OutputFormat != "" && !slices.Contains(outputModes, c.OutputFormat) {
		return fmt.Errorf("output: unknown mode %q (available: %v)", c.OutputFormat, outputModes)
	}
	if c.LogFormat != "" && !slices.Contains(logFormats, c.LogFormat) {
		return fmt.Errorf("log_format: unknown format %q (available: %v)", c.LogFormat, logFormats)
	}
	if _, err := split.TrainSize(0, c.Split.TrainRatio); err != nil {
		return fmt.Errorf("split.train_ratio: %w", err)
	}
	if c.Clean.LanguageWorkers < 0 {
		return fmt.Errorf("clean.language_workers: must not be negative, got %d", c.Clean.LanguageWorkers)
	}
	if c.Clean.MinDetectLength < 0 {
		return fmt.Errorf("clean.min_detect_length: must not be negative, got %d", c.Clean.MinDetectLength)
	}
	if _, err := clean.ParseUnicodeForm(c.Clean.UnicodeForm); err != nil {
		return fmt.Errorf("clean.unicode_form: %w", err)
	}
	if c.Inspect.Tokenizer == "" {
		return fmt.Errorf("inspect.tokenizer is required")
	}
	if _, err := core.ParseSteps(c.Run.Stages); err != nil {
		return fmt.Errorf("run.stages: %w", err)
	}
	for name, fc := range c.Families {
		if _, err := core.ParseFamily(name); err != nil {
			return fmt.Errorf("families.%s: %w", name, err)
		}
		if fc == nil {
			continue
		}
		for i, sub := range fc.Subsets {
			if sub.Path == "" {
				return fmt.Errorf("families.%s.subsets[%d].path is required", name, i)
			}
		}
		if fc.Format.MaxTokens != nil && *fc.Format.MaxTokens < 0 {
			return fmt.Errorf("families.%s.format.max_tokens: must not be negative, got %d", name, *fc.Format.MaxTokens)
		}
	}
	return nil
}
