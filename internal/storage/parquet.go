package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/leapstack-labs/sftprep/internal/adapter"
	"github.com/leapstack-labs/sftprep/pkg/core"
)

// FormatParquet names the parquet store.
const FormatParquet = "parquet"

func init() {
	Register(FormatParquet, func(logger *slog.Logger) Store { return NewParquetStore(logger) })
}

// ParquetStore reads and writes parquet files through an in-memory DuckDB,
// connected on first use.
type ParquetStore struct {
	logger *slog.Logger

	mu sync.Mutex
	db adapter.Adapter
}

// NewParquetStore creates a parquet store.
func NewParquetStore(logger *slog.Logger) *ParquetStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ParquetStore{logger: logger}
}

// Name implements Store.
func (s *ParquetStore) Name() string { return FormatParquet }

// Save writes t to dir/data.parquet and its manifest.
func (s *ParquetStore) Save(ctx context.Context, dir string, t *core.Table) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	const dataFile = "data.parquet"
	if err := db.WriteParquet(ctx, t, filepath.Join(dir, dataFile)); err != nil {
		return err
	}
	s.logger.Debug("saved table", "dir", dir, "format", FormatParquet, "rows", t.Len())
	return WriteManifest(dir, newManifest(t, FormatParquet, dataFile))
}

// Load reads a table saved by Save. Column order follows the manifest.
func (s *ParquetStore) Load(ctx context.Context, dir string) (*core.Table, error) {
	m, err := loadManifest(dir, FormatParquet)
	if err != nil {
		return nil, err
	}
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	t, err := db.ReadFile(ctx, filepath.Join(dir, m.DataFile))
	if err != nil {
		return nil, err
	}
	t.Family = m.Family
	if len(m.Columns) > 0 {
		t.Columns = m.Columns
	}
	s.logger.Debug("loaded table", "dir", dir, "format", FormatParquet, "rows", t.Len())
	return t, nil
}

// Close releases the DuckDB connection if one was opened.
func (s *ParquetStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *ParquetStore) conn(ctx context.Context) (adapter.Adapter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db, nil
	}
	cfg := adapter.Config{Type: "duckdb", Path: ":memory:"}
	db, err := adapter.New(cfg, s.logger)
	if err != nil {
		return nil, err
	}
	if err := db.Connect(ctx, cfg); err != nil {
		return nil, err
	}
	s.db = db
	return db, nil
}

var _ Store = (*ParquetStore)(nil)
