// Package source fetches raw datasets as named subsets.
package source

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/leapstack-labs/sftprep/internal/adapter"
	"github.com/leapstack-labs/sftprep/pkg/core"
)

// Subset names one file (or glob) of a dataset.
type Subset struct {
	Name string `koanf:"name" yaml:"name"`
	Path string `koanf:"path" yaml:"path"`
}

// Ref identifies the data to fetch for one family.
type Ref struct {
	Family core.Family
	// Dataset is a Hugging Face dataset id such as "nvidia/OpenMathInstruct-1".
	// Empty means subset paths are used as given.
	Dataset string
	Subsets []Subset
}

// NamedTable is one fetched subset.
type NamedTable struct {
	Name  string
	Table *core.Table
	// Types maps column names to source column types, when the source knows them.
	Types map[string]string
}

// Source fetches the subsets of a dataset in declared order.
type Source interface {
	Fetch(ctx context.Context, ref Ref) ([]NamedTable, error)
}

// Concat joins fetched subsets in order into one raw table.
func Concat(family core.Family, subsets []NamedTable) *core.Table {
	tables := make([]*core.Table, len(subsets))
	for i, s := range subsets {
		tables[i] = s.Table
	}
	return core.Concat(family, tables...)
}

// Resolve turns a subset path into something DuckDB can read.
// Remote URLs, absolute paths and paths starting with "./" or "../" are used
// as given; other paths are files inside the Hugging Face dataset.
func Resolve(dataset, path string) string {
	switch {
	case adapter.IsRemote(path),
		filepath.IsAbs(path),
		strings.HasPrefix(path, "./"),
		strings.HasPrefix(path, "../"),
		dataset == "":
		return path
	}
	return "hf://datasets/" + strings.Trim(dataset, "/") + "/" + strings.TrimPrefix(path, "/")
}

// DuckDBSource reads subsets with DuckDB's parquet, JSON and CSV readers.
type DuckDBSource struct {
	logger *slog.Logger

	mu sync.Mutex
	db adapter.Adapter
}

// NewDuckDBSource creates a source backed by an in-memory DuckDB.
func NewDuckDBSource(logger *slog.Logger) *DuckDBSource {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DuckDBSource{logger: logger}
}

// Fetch reads every subset of ref. The first failure aborts the fetch.
func (s *DuckDBSource) Fetch(ctx context.Context, ref Ref) ([]NamedTable, error) {
	if len(ref.Subsets) == 0 {
		return nil, fmt.Errorf("%s: no subsets configured", ref.Family)
	}
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]NamedTable, 0, len(ref.Subsets))
	for _, sub := range ref.Subsets {
		path := Resolve(ref.Dataset, sub.Path)
		s.logger.Info("fetching subset", "family", string(ref.Family), "subset", sub.Name, "path", path)
		nt, err := s.fetchSubset(ctx, db, ref.Family, sub.Name, path)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s subset %q: %w", ref.Family, sub.Name, err)
		}
		s.logger.Info("fetched subset", "family", string(ref.Family), "subset", sub.Name,
			"rows", nt.Table.Len(), "columns", nt.Table.Columns)
		out = append(out, nt)
	}
	return out, nil
}

// fetchSubset loads path into a scratch table, then reads it back with its
// column types.
func (s *DuckDBSource) fetchSubset(ctx context.Context, db adapter.Adapter, f core.Family, name, path string) (NamedTable, error) {
	scratch := "subset_" + string(f) + "_" + name
	md, err := db.LoadFile(ctx, scratch, path)
	if err != nil {
		return NamedTable{}, err
	}
	defer func() {
		if err := db.Exec(context.WithoutCancel(ctx), "DROP TABLE IF EXISTS "+adapter.QuoteIdent(scratch)); err != nil {
			s.logger.Warn("failed to drop scratch table", "table", scratch, "error", err)
		}
	}()

	t, err := db.QueryTable(ctx, "SELECT * FROM "+adapter.QuoteIdent(scratch))
	if err != nil {
		return NamedTable{}, err
	}
	t.Family = f

	types := make(map[string]string, len(md.Columns))
	for _, c := range md.Columns {
		types[c.Name] = c.Type
	}
	return NamedTable{Name: name, Table: t, Types: types}, nil
}

// Close releases the DuckDB connection.
func (s *DuckDBSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *DuckDBSource) conn(ctx context.Context) (adapter.Adapter, error) {
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

// Static serves fixed tables keyed by subset name. It is used for tests and
// for feeding already-materialized data through the pipeline.
type Static map[string]*core.Table

// Fetch returns the tables named by ref's subsets.
func (s Static) Fetch(_ context.Context, ref Ref) ([]NamedTable, error) {
	out := make([]NamedTable, 0, len(ref.Subsets))
	for _, sub := range ref.Subsets {
		t, ok := s[sub.Name]
		if !ok {
			return nil, fmt.Errorf("subset %q not found", sub.Name)
		}
		out = append(out, NamedTable{Name: sub.Name, Table: t})
	}
	return out, nil
}

var (
	_ Source = (*DuckDBSource)(nil)
	_ Source = Static(nil)
)
