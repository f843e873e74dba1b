package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver

	"github.com/leapstack-labs/sftprep/pkg/core"
)

func init() {
	Register("duckdb", func(logger *slog.Logger) Adapter { return NewDuckDBAdapter(logger) })
}

// DuckDBAdapter reads and writes dataset files through an embedded DuckDB.
type DuckDBAdapter struct {
	BaseSQLAdapter
	config Config
	httpfs bool
}

// NewDuckDBAdapter creates a new DuckDB adapter instance.
func NewDuckDBAdapter(logger *slog.Logger) *DuckDBAdapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DuckDBAdapter{BaseSQLAdapter: BaseSQLAdapter{Logger: logger}}
}

// Connect establishes a connection to DuckDB.
// Use ":memory:" (or an empty path) for an in-memory database.
func (a *DuckDBAdapter) Connect(ctx context.Context, cfg Config) error {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	a.DB = db
	a.config = cfg
	a.Logger.Debug("connected to duckdb", "path", path)
	return nil
}

// GetTableMetadata retrieves column metadata and row count for a table.
func (a *DuckDBAdapter) GetTableMetadata(ctx context.Context, table string) (*Metadata, error) {
	if a.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	rows, err := a.DB.QueryContext(ctx, `
		SELECT column_name, data_type, is_nullable, ordinal_position
		FROM information_schema.columns
		WHERE table_name = ?
		ORDER BY ordinal_position
	`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []Column
	for rows.Next() {
		var col Column
		var nullable string
		if err := rows.Scan(&col.Name, &col.Type, &nullable, &col.Position); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		col.Nullable = nullable == "YES"
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}

	var rowCount int64
	if err := a.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+QuoteIdent(table)).Scan(&rowCount); err != nil {
		rowCount = 0
	}

	return &Metadata{Name: table, Columns: columns, RowCount: rowCount}, nil
}

// ReadFile reads a dataset file into a table using DuckDB's file readers.
// Remote paths (hf://, http(s)://, s3://) load the httpfs extension first.
func (a *DuckDBAdapter) ReadFile(ctx context.Context, path string) (*core.Table, error) {
	from, err := a.fileSource(ctx, path)
	if err != nil {
		return nil, err
	}
	t, err := a.QueryTable(ctx, "SELECT * FROM "+from)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return t, nil
}

// LoadFile materializes a dataset file into table, replacing any existing
// table of that name, and returns the table's column types and row count.
func (a *DuckDBAdapter) LoadFile(ctx context.Context, table, path string) (*Metadata, error) {
	from, err := a.fileSource(ctx, path)
	if err != nil {
		return nil, err
	}
	create := fmt.Sprintf("CREATE OR REPLACE TABLE %s AS SELECT * FROM %s", QuoteIdent(table), from)
	if err := a.Exec(ctx, create); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return a.GetTableMetadata(ctx, table)
}

// fileSource returns the table function call that reads path.
func (a *DuckDBAdapter) fileSource(ctx context.Context, path string) (string, error) {
	if a.DB == nil {
		return "", fmt.Errorf("database connection not established")
	}

	if IsRemote(path) {
		if err := a.loadHTTPFS(ctx); err != nil {
			return "", err
		}
	} else {
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = abs
	}

	reader, err := readerFor(path)
	if err != nil {
		return "", err
	}
	a.Logger.Debug("reading dataset file", "path", path)
	return fmt.Sprintf(reader, quoteLiteral(path)), nil
}

// WriteParquet stages t in a temporary table and copies it to path.
// Column types are inferred from the Go values; anything that is not an
// integer, float or bool is written as VARCHAR.
func (a *DuckDBAdapter) WriteParquet(ctx context.Context, t *core.Table, path string) error {
	if a.DB == nil {
		return fmt.Errorf("database connection not established")
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("cannot write %s: table has no columns", path)
	}

	// Temporary tables are scoped to one connection.
	conn, err := a.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	const staging = "sftprep_export"
	types := inferColumnTypes(t)
	defs := make([]string, len(t.Columns))
	marks := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		defs[i] = QuoteIdent(c) + " " + types[i]
		marks[i] = "?"
	}

	create := fmt.Sprintf("CREATE OR REPLACE TEMP TABLE %s (%s)", staging, strings.Join(defs, ", "))
	if _, err := conn.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("failed to create staging table: %w", err)
	}
	defer func() { _, _ = conn.ExecContext(context.WithoutCancel(ctx), "DROP TABLE IF EXISTS "+staging) }()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	insert := fmt.Sprintf("INSERT INTO %s VALUES (%s)", staging, strings.Join(marks, ", ")) //nolint:gosec // identifiers are quoted
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	for i, row := range t.Rows {
		args := make([]any, len(t.Columns))
		for j, c := range t.Columns {
			args[j] = columnValue(row[c], types[j])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert row %d: %w", i, err)
		}
	}
	_ = stmt.Close()
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rows: %w", err)
	}

	copyStmt := fmt.Sprintf("COPY %s TO %s (FORMAT PARQUET)", staging, quoteLiteral(path))
	if _, err := conn.ExecContext(ctx, copyStmt); err != nil {
		return fmt.Errorf("failed to write parquet %s: %w", path, err)
	}
	a.Logger.Debug("wrote parquet file", "path", path, "rows", len(t.Rows))
	return nil
}

func (a *DuckDBAdapter) loadHTTPFS(ctx context.Context) error {
	if a.httpfs {
		return nil
	}
	for _, stmt := range []string{"INSTALL httpfs", "LOAD httpfs"} {
		if err := a.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to load httpfs extension: %w", err)
		}
	}
	a.httpfs = true
	return nil
}

// IsRemote reports whether path is read over the network.
func IsRemote(path string) bool {
	for _, scheme := range []string{"hf://", "http://", "https://", "s3://"} {
		if strings.HasPrefix(path, scheme) {
			return true
		}
	}
	return false
}

// readerFor returns the table function call for path, with %s for the
// quoted path.
func readerFor(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".parquet":
		return "read_parquet(%s)", nil
	case ".jsonl", ".ndjson", ".json":
		return "read_json_auto(%s)", nil
	case ".csv", ".tsv":
		return "read_csv_auto(%s, header=true)", nil
	default:
		return "", fmt.Errorf("unsupported dataset file type %q for %s", ext, path)
	}
}

func inferColumnTypes(t *core.Table) []string {
	types := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		kind := ""
		for _, row := range t.Rows {
			v := row[c]
			if v == nil {
				continue
			}
			k := sqlType(v)
			if kind == "" {
				kind = k
			} else if kind != k {
				kind = "VARCHAR"
				break
			}
		}
		if kind == "" {
			kind = "VARCHAR"
		}
		types[i] = kind
	}
	return types
}

func sqlType(v any) string {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		return "BIGINT"
	case float32, float64:
		return "DOUBLE"
	case bool:
		return "BOOLEAN"
	default:
		return "VARCHAR"
	}
}

func columnValue(v any, typ string) any {
	if v == nil || typ != "VARCHAR" {
		return v
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// QuoteIdent quotes s as a DuckDB identifier.
func QuoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

var _ Adapter = (*DuckDBAdapter)(nil)
