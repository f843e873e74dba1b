package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sftprep/internal/cli/config"
	"github.com/leapstack-labs/sftprep/internal/cli/output"
	"github.com/leapstack-labs/sftprep/internal/engine"
	"github.com/leapstack-labs/sftprep/internal/format"
	"github.com/leapstack-labs/sftprep/pkg/core"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with engine and renderer.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cmdCtx := NewCommandContextWithoutEngine(cmd)

	eng, err := createEngine(cmdCtx.Cfg, cmdCtx.Logger)
	if err != nil {
		return nil, nil, err
	}
	cmdCtx.Engine = eng

	cleanup := func() {
		if err := eng.Close(); err != nil {
			cmdCtx.Logger.Warn("failed to close engine", "error", err)
		}
	}
	return cmdCtx, cleanup, nil
}

// NewCommandContextWithoutEngine creates a CommandContext without an engine.
func NewCommandContextWithoutEngine(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))
	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// getConfig returns the loaded configuration, or the defaults when commands
// run without the root command (tests).
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	cfg, err := config.LoadConfig("", nil)
	if err != nil {
		cfg = &config.Config{
			DataDir:      config.DefaultDataDir,
			StatePath:    config.DefaultStateFile,
			Storage:      config.DefaultStorage,
			OutputFormat: config.DefaultOutput,
		}
		cfg.ApplyDefaults()
	}
	return cfg
}

// EngineConfig translates CLI configuration into engine configuration.
func EngineConfig(cfg *config.Config, logger *slog.Logger) engine.Config {
	families := make(map[core.Family]engine.FamilyConfig, len(cfg.Families))
	for name, fc := range cfg.Families {
		if fc == nil {
			continue
		}
		f := core.Family(name)
		families[f] = engine.FamilyConfig{
			Dataset: fc.Dataset,
			Subsets: fc.Subsets,
			Format:  fc.Format.Options(format.DefaultOptions(f)),
		}
	}

	return engine.Config{
		DataDir:          cfg.DataDir,
		StatePath:        cfg.StatePath,
		Storage:          cfg.Storage,
		Families:         families,
		TrainRatio:       cfg.Split.TrainRatio,
		Seed:             cfg.Split.Seed,
		TargetLanguage:   cfg.Clean.TargetLanguage,
		LanguageWorkers:  cfg.Clean.LanguageWorkers,
		MinDetectLength:  cfg.Clean.MinDetectLength,
		UnicodeForm:      cfg.Clean.UnicodeForm,
		TokenizerName:    cfg.Inspect.Tokenizer,
		AddSpecialTokens: cfg.Inspect.AddSpecialTokens,
		Logger:           logger,
	}
}

func createEngine(cfg *config.Config, logger *slog.Logger) (*engine.Engine, error) {
	return engine.New(EngineConfig(cfg, logger))
}
