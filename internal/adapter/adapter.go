// Package adapter provides the embedded database connections used to read
// source datasets and to write columnar stage files.
package adapter

import (
	"context"
	"database/sql"

	"github.com/leapstack-labs/sftprep/pkg/core"
)

// Config holds the configuration for opening a database.
type Config struct {
	// Type selects a registered adapter (e.g. "duckdb").
	Type string

	// Path is the database file. Empty or ":memory:" opens an in-memory database.
	Path string

	// Options contains additional driver-specific settings.
	Options map[string]string
}

// Column describes one column of a table.
type Column struct {
	Name     string
	Type     string
	Nullable bool
	Position int
}

// Metadata holds metadata about a table.
type Metadata struct {
	Name     string
	Columns  []Column
	RowCount int64
}

// Rows wraps sql.Rows to provide a consistent interface across adapters.
type Rows struct {
	*sql.Rows
}

// Adapter is a database connection that can read dataset files as tables
// and export tables as files.
type Adapter interface {
	// Connect opens the database described by cfg.
	Connect(ctx context.Context, cfg Config) error

	// Close releases the connection.
	Close() error

	// Exec executes a statement that doesn't return rows.
	Exec(ctx context.Context, sql string, args ...any) error

	// Query executes a statement that returns rows.
	Query(ctx context.Context, sql string, args ...any) (*Rows, error)

	// QueryTable executes a query and collects every row.
	QueryTable(ctx context.Context, sql string, args ...any) (*core.Table, error)

	// GetTableMetadata retrieves column metadata and the row count of a table.
	GetTableMetadata(ctx context.Context, table string) (*Metadata, error)

	// ReadFile reads a parquet, JSON lines or CSV file (local, glob or remote)
	// into a table. The format is chosen by extension.
	ReadFile(ctx context.Context, path string) (*core.Table, error)

	// LoadFile reads a dataset file into a named table and describes it.
	LoadFile(ctx context.Context, table, path string) (*Metadata, error)

	// WriteParquet writes t to a parquet file at path.
	WriteParquet(ctx context.Context, t *core.Table, path string) error
}
