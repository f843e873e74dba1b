// Package storage persists stage tables under the data directory, one
// directory per family and stage, each with a dataset_info.yaml manifest.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/leapstack-labs/sftprep/pkg/core"
)

// ErrNotFound is returned when a stage directory holds no saved table.
var ErrNotFound = errors.New("stage data not found")

// Store loads and saves tables in stage directories.
type Store interface {
	// Name returns the format name written to manifests.
	Name() string
	Load(ctx context.Context, dir string) (*core.Table, error)
	Save(ctx context.Context, dir string, t *core.Table) error
	Close() error
}

// Layout maps families and stages to directories under a data root.
type Layout struct {
	DataDir string
}

// Dir returns <data_dir>/<family>_<stage>.
func (l Layout) Dir(f core.Family, s core.Stage) string {
	return filepath.Join(l.DataDir, string(f)+"_"+string(s))
}

// Exists reports whether a stage directory has a manifest.
func (l Layout) Exists(f core.Family, s core.Stage) bool {
	_, err := os.Stat(filepath.Join(l.Dir(f, s), ManifestFile))
	return err == nil
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]func(*slog.Logger) Store)
)

// Register adds a store factory under name.
func Register(name string, factory func(*slog.Logger) Store) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// New creates the store registered under name.
func New(name string, logger *slog.Logger) (Store, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, &UnknownStoreError{Name: name, Available: ListStores()}
	}
	return factory(logger), nil
}

// ListStores returns all registered store names (sorted).
func ListStores() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UnknownStoreError is returned when an unknown storage format is requested.
type UnknownStoreError struct {
	Name      string
	Available []string
}

func (e *UnknownStoreError) Error() string {
	return fmt.Sprintf("unknown storage format %q\nAvailable formats: %v\nHint: Check storage in sftprep.yaml", e.Name, e.Available)
}

// FormatMismatchError is returned when a directory was written by another store.
type FormatMismatchError struct {
	Dir    string
	Want   string
	Actual string
}

func (e *FormatMismatchError) Error() string {
	return fmt.Sprintf("%s was saved as %s, cannot load it as %s", e.Dir, e.Actual, e.Want)
}

// replaceFile writes data through fn into a temporary file in the target's
// directory and renames it into place.
func replaceFile(path string, fn func(f *os.File) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()
	if err = fn(tmp); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}
