// Package config provides configuration management for the sftprep CLI.
//
// Values are layered with koanf: defaults, then sftprep.yaml, then SFTPREP_
// environment variables, then explicitly set command-line flags.
package config

import (
	"github.com/leapstack-labs/sftprep/internal/format"
	"github.com/leapstack-labs/sftprep/internal/source"
)

// Config holds all CLI configuration options.
type Config struct {
	DataDir      string `koanf:"data_dir"`
	StatePath    string `koanf:"state_path"`
	Storage      string `koanf:"storage"`
	Verbose      bool   `koanf:"verbose"`
	OutputFormat string `koanf:"output"`
	LogFormat    string `koanf:"log_format"`

	Split   SplitConfig   `koanf:"split"`
	Clean   CleanConfig   `koanf:"clean"`
	Inspect InspectConfig `koanf:"inspect"`
	Run     RunConfig     `koanf:"run"`

	// Families is keyed by family name. Missing families and fields are
	// filled by ApplyDefaults.
	Families map[string]*FamilyConfig `koanf:"families"`

	// ProjectRoot anchors relative paths: the config file's directory, or
	// the working directory when no file is used.
	ProjectRoot string `koanf:"-"`
}

// SplitConfig configures the train/validation split.
type SplitConfig struct {
	TrainRatio float64 `koanf:"train_ratio"`
	Seed       int64   `koanf:"seed"`
}

// CleanConfig configures the cleaning pipelines.
type CleanConfig struct {
	TargetLanguage  string `koanf:"target_language"`
	LanguageWorkers int    `koanf:"language_workers"`
	MinDetectLength int    `koanf:"min_detect_length"`
	UnicodeForm     string `koanf:"unicode_form"`
}

// InspectConfig configures token length inspection.
type InspectConfig struct {
	Tokenizer        string `koanf:"tokenizer"`
	AddSpecialTokens bool   `koanf:"add_special_tokens"`
}

// RunConfig configures the run command.
type RunConfig struct {
	Stages []string `koanf:"stages"`
}

// FamilyConfig is one family's source and formatting configuration.
type FamilyConfig struct {
	Dataset string          `koanf:"dataset"`
	Subsets []source.Subset `koanf:"subsets"`
	Format  FormatConfig    `koanf:"format"`
}

// FormatConfig overrides the family's formatting defaults. Nil fields keep
// the default.
type FormatConfig struct {
	MaxTokens   *int  `koanf:"max_tokens"`
	CountTokens *bool `koanf:"count_tokens"`
	Truncate    *bool `koanf:"truncate"`
	KeepFields  *bool `koanf:"keep_fields"`
}

// Options merges the overrides onto base.
func (f FormatConfig) Options(base format.Options) format.Options {
	if f.MaxTokens != nil {
		base.MaxTokens = *f.MaxTokens
	}
	if f.CountTokens != nil {
		base.CountTokens = *f.CountTokens
	}
	if f.Truncate != nil {
		base.Truncate = *f.Truncate
	}
	if f.KeepFields != nil {
		base.KeepFields = *f.KeepFields
	}
	return base
}

// Default configuration values.
const (
	DefaultDataDir   = "data"
	DefaultStateFile = ".sftprep/state.db"
	DefaultStorage   = "jsonl"
	DefaultOutput    = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogFormat = "text"
	DefaultWorkers   = 4
)
