// Package engine runs pipeline steps over stored stage data and records
// every run in the state database.
package engine

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/sftprep/internal/clean"
	"github.com/leapstack-labs/sftprep/internal/format"
	"github.com/leapstack-labs/sftprep/internal/inspect"
	"github.com/leapstack-labs/sftprep/internal/langdetect"
	"github.com/leapstack-labs/sftprep/internal/source"
	"github.com/leapstack-labs/sftprep/internal/split"
	"github.com/leapstack-labs/sftprep/internal/state"
	"github.com/leapstack-labs/sftprep/internal/storage"
	"github.com/leapstack-labs/sftprep/pkg/core"
)

// FamilyConfig is the per-family source and formatting configuration.
type FamilyConfig struct {
	// Dataset is the Hugging Face dataset id subsets are read from.
	Dataset string
	// Subsets are fetched and concatenated in order.
	Subsets []source.Subset
	Format  format.Options
}

// Config holds engine configuration.
type Config struct {
	// DataDir is the root of the stage directories.
	DataDir string
	// StatePath is the SQLite run history database. Empty means in-memory.
	StatePath string
	// Storage names the stage file format (jsonl or parquet).
	Storage string

	Families map[core.Family]FamilyConfig

	TrainRatio float64
	Seed       int64

	TargetLanguage  string
	LanguageWorkers int
	MinDetectLength int
	UnicodeForm     string

	TokenizerName    string
	AddSpecialTokens bool

	// Source, Detector and Tokenizer replace the default collaborators when set.
	Source    source.Source
	Detector  langdetect.Detector
	Tokenizer inspect.Tokenizer

	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Engine executes pipeline steps.
type Engine struct {
	logger *slog.Logger

	layout   storage.Layout
	store    storage.Store
	state    state.Store
	src      source.Source
	detector langdetect.Detector

	families    map[core.Family]FamilyConfig
	trainRatio  float64
	seed        int64
	cleanOpts   clean.Options
	tokName     string
	addSpecial  bool
	tokMu       sync.Mutex
	tokenizer   inspect.Tokenizer
	ownedSource *source.DuckDBSource
}

// New opens the state and stage stores. Collaborators that need network or
// large vocabularies are created on first use.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger.Debug("initializing engine", "data_dir", cfg.DataDir, "storage", cfg.Storage)

	if _, err := split.TrainSize(0, cfg.TrainRatio); err != nil {
		return nil, err
	}
	form, err := clean.ParseUnicodeForm(cfg.UnicodeForm)
	if err != nil {
		return nil, err
	}

	storeName := cfg.Storage
	if storeName == "" {
		storeName = storage.FormatJSONL
	}
	store, err := storage.New(storeName, logger)
	if err != nil {
		return nil, err
	}

	statePath := cfg.StatePath
	if statePath == "" {
		statePath = ":memory:"
	}
	st := state.NewSQLiteStore(logger)
	if err := st.Open(statePath); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}

	e := &Engine{
		logger:     logger,
		layout:     storage.Layout{DataDir: cfg.DataDir},
		store:      store,
		state:      st,
		src:        cfg.Source,
		detector:   cfg.Detector,
		families:   cfg.Families,
		trainRatio: cfg.TrainRatio,
		seed:       cfg.Seed,
		tokName:    cfg.TokenizerName,
		addSpecial: cfg.AddSpecialTokens,
		tokenizer:  cfg.Tokenizer,
	}
	if e.tokName == "" {
		e.tokName = inspect.DefaultTokenizer
	}
	if e.src == nil {
		e.ownedSource = source.NewDuckDBSource(logger)
		e.src = e.ownedSource
	}
	if e.detector == nil {
		e.detector = &langdetect.Whatlang{MinLength: cfg.MinDetectLength}
	}
	e.cleanOpts = clean.Options{
		Language: clean.LanguageOptions{
			Detector: e.detector,
			Target:   cfg.TargetLanguage,
			Workers:  cfg.LanguageWorkers,
		},
		UnicodeForm: form,
		Logger:      logger,
	}
	return e, nil
}

// Layout returns the stage directory layout.
func (e *Engine) Layout() storage.Layout {
	return e.layout
}

// StateStore returns the run history store.
func (e *Engine) StateStore() state.Store {
	return e.state
}

// Close releases all resources.
func (e *Engine) Close() error {
	e.logger.Debug("closing engine")

	var errs []error
	if e.ownedSource != nil {
		if err := e.ownedSource.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if e.state != nil {
		if err := e.state.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing engine: %v", errs)
	}
	return nil
}

func (e *Engine) familyConfig(f core.Family) (FamilyConfig, error) {
	fc, ok := e.families[f]
	if !ok {
		return FamilyConfig{}, fmt.Errorf("no configuration for family %q", f)
	}
	return fc, nil
}

func (e *Engine) tokenizerFor() (inspect.Tokenizer, error) {
	e.tokMu.Lock()
	defer e.tokMu.Unlock()
	if e.tokenizer != nil {
		return e.tokenizer, nil
	}
	e.logger.Debug("loading tokenizer", "name", e.tokName)
	tok, err := inspect.NewTokenizer(e.tokName, e.addSpecial)
	if err != nil {
		return nil, err
	}
	e.tokenizer = tok
	return tok, nil
}
