package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/goccy/go-json"

	"github.com/leapstack-labs/sftprep/pkg/core"
)

// FormatJSONL names the JSON lines store.
const FormatJSONL = "jsonl"

func init() {
	Register(FormatJSONL, func(logger *slog.Logger) Store { return NewJSONLStore(logger) })
}

// JSONLStore writes one JSON object per line with keys in column order.
type JSONLStore struct {
	logger *slog.Logger
}

// NewJSONLStore creates a JSON lines store.
func NewJSONLStore(logger *slog.Logger) *JSONLStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &JSONLStore{logger: logger}
}

// Name implements Store.
func (s *JSONLStore) Name() string { return FormatJSONL }

// Close implements Store.
func (s *JSONLStore) Close() error { return nil }

// Save writes t to dir/data.jsonl and its manifest.
func (s *JSONLStore) Save(ctx context.Context, dir string, t *core.Table) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	const dataFile = "data.jsonl"
	err := replaceFile(filepath.Join(dir, dataFile), func(f *os.File) error {
		w := bufio.NewWriter(f)
		for i, row := range t.Rows {
			if i%1024 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			if err := writeRow(w, t.Columns, row); err != nil {
				return fmt.Errorf("failed to encode row %d: %w", i, err)
			}
		}
		return w.Flush()
	})
	if err != nil {
		return err
	}
	s.logger.Debug("saved table", "dir", dir, "format", FormatJSONL, "rows", t.Len())
	return WriteManifest(dir, newManifest(t, FormatJSONL, dataFile))
}

// Load reads a table saved by Save. Integral numbers decode as int64 and
// other numbers as float64.
func (s *JSONLStore) Load(ctx context.Context, dir string) (*core.Table, error) {
	m, err := loadManifest(dir, FormatJSONL)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(dir, m.DataFile))
	if err != nil {
		return nil, fmt.Errorf("failed to open data file: %w", err)
	}
	defer func() { _ = f.Close() }()

	t := &core.Table{Family: m.Family, Columns: m.Columns}
	dec := json.NewDecoder(bufio.NewReader(f))
	dec.UseNumber()
	for {
		if len(t.Rows)%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		var obj map[string]any
		err := dec.Decode(&obj)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode row %d: %w", len(t.Rows), err)
		}
		row := make(core.Row, len(obj))
		for k, v := range obj {
			row[k] = fromJSON(v)
		}
		t.Rows = append(t.Rows, row)
	}
	if len(t.Columns) == 0 && len(t.Rows) > 0 {
		t.Columns = sortedKeys(t.Rows[0])
	}
	s.logger.Debug("loaded table", "dir", dir, "format", FormatJSONL, "rows", t.Len())
	return t, nil
}

func writeRow(w *bufio.Writer, cols []string, row core.Row) error {
	_ = w.WriteByte('{')
	for i, c := range cols {
		if i > 0 {
			_ = w.WriteByte(',')
		}
		key, err := json.Marshal(c)
		if err != nil {
			return err
		}
		val, err := json.MarshalNoEscape(row[c])
		if err != nil {
			return fmt.Errorf("column %q: %w", c, err)
		}
		_, _ = w.Write(key)
		_ = w.WriteByte(':')
		_, _ = w.Write(val)
	}
	_, err := w.WriteString("}\n")
	return err
}

func fromJSON(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

func sortedKeys(row core.Row) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var _ Store = (*JSONLStore)(nil)
