package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/sftprep/internal/clean"
	"github.com/leapstack-labs/sftprep/internal/inspect"
	"github.com/leapstack-labs/sftprep/internal/langdetect"
	"github.com/leapstack-labs/sftprep/internal/split"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// EnvPrefix prefixes every environment variable read by the loader.
// Nested keys use a double underscore: SFTPREP_SPLIT__SEED sets split.seed.
const EnvPrefix = "SFTPREP_"

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

var configFileNames = []string{"sftprep.yaml", "sftprep.yml"}

// flagKeys maps flag names to config keys where kebab-to-snake is not enough.
var flagKeys = map[string]string{
	"state":              "state_path",
	"train-ratio":        "split.train_ratio",
	"seed":               "split.seed",
	"language":           "clean.target_language",
	"workers":            "clean.language_workers",
	"min-detect-length":  "clean.min_detect_length",
	"unicode-form":       "clean.unicode_form",
	"tokenizer":          "inspect.tokenizer",
	"add-special-tokens": "inspect.add_special_tokens",
	"stages":             "run.stages",
}

// skipFlags are flags that never map onto configuration.
var skipFlags = map[string]bool{
	"config": true,
	"family": true,
	"help":   true,
	"limit":  true,
}

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config
)

func configExistsIn(dir string) string {
	for _, name := range configFileNames {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// findConfigUpward searches upward from startDir for a config file.
func findConfigUpward(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if p := configExistsIn(dir); p != "" {
			return p
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

func defaults() map[string]any {
	return map[string]any{
		"data_dir":                   DefaultDataDir,
		"state_path":                 DefaultStateFile,
		"storage":                    DefaultStorage,
		"verbose":                    false,
		"output":                     DefaultOutput,
		"log_format":                 DefaultLogFormat,
		"split.train_ratio":          split.DefaultTrainRatio,
		"split.seed":                 split.DefaultSeed,
		"clean.target_language":      clean.DefaultTargetLanguage,
		"clean.language_workers":     DefaultWorkers,
		"clean.min_detect_length":    langdetect.DefaultMinLength,
		"clean.unicode_form":         "",
		"inspect.tokenizer":          inspect.DefaultTokenizer,
		"inspect.add_special_tokens": true,
	}
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
// Only flags that were explicitly set override lower layers.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k = koanf.New(".")

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	configFileUsed = cfgFile
	if configFileUsed == "" {
		configFileUsed = findConfigUpward(cwd)
	}
	projectRoot := cwd
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
		if abs, err := filepath.Abs(configFileUsed); err == nil {
			projectRoot = filepath.Dir(abs)
		}
	}

	// 3. Environment (SFTPREP_DATA_DIR -> data_dir, SFTPREP_SPLIT__SEED -> split.seed)
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags, recording paths given on the command line so they stay
	// relative to the working directory.
	var flagDataDir, flagStatePath string
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed || skipFlags[f.Name] {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
		if f := flags.Lookup("data-dir"); f != nil && f.Changed {
			flagDataDir, _ = filepath.Abs(f.Value.String())
		}
		if f := flags.Lookup("state"); f != nil && f.Changed && f.Value.String() != ":memory:" {
			flagStatePath, _ = filepath.Abs(f.Value.String())
		}
	}

	// 5. Decode
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			Result:           &cfg,
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// 6. Resolve paths and fill family defaults
	cfg.ProjectRoot = projectRoot
	if flagDataDir != "" {
		cfg.DataDir = flagDataDir
	} else {
		cfg.DataDir = resolvePathRelativeTo(cfg.DataDir, projectRoot)
	}
	if flagStatePath != "" {
		cfg.StatePath = flagStatePath
	} else {
		cfg.StatePath = resolvePathRelativeTo(cfg.StatePath, projectRoot)
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	currentConfig = &cfg
	return &cfg, nil
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the configuration loaded by the last LoadConfig call.
func GetCurrentConfig() *Config {
	return currentConfig
}

// NewLogger builds the CLI logger. Verbose enables debug output; otherwise
// only warnings and errors reach w.
func NewLogger(w io.Writer, format string, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return l
		}
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}
