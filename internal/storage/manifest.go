package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/sftprep/pkg/core"
)

// ManifestFile is the manifest name inside every stage directory.
const ManifestFile = "dataset_info.yaml"

// Manifest describes a saved table.
type Manifest struct {
	Family    core.Family `yaml:"family"`
	Format    string      `yaml:"format"`
	DataFile  string      `yaml:"data_file"`
	Columns   []string    `yaml:"columns"`
	Rows      int         `yaml:"rows"`
	CreatedAt time.Time   `yaml:"created_at"`
}

// ReadManifest reads dir's manifest. A missing manifest wraps ErrNotFound.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Join(dir, ManifestFile), err)
	}
	return &m, nil
}

// WriteManifest writes m into dir.
func WriteManifest(dir string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	return replaceFile(filepath.Join(dir, ManifestFile), func(f *os.File) error {
		_, err := f.Write(data)
		return err
	})
}

func loadManifest(dir, format string) (*Manifest, error) {
	m, err := ReadManifest(dir)
	if err != nil {
		return nil, err
	}
	if m.Format != format {
		return nil, &FormatMismatchError{Dir: dir, Want: format, Actual: m.Format}
	}
	return m, nil
}

func newManifest(t *core.Table, format, dataFile string) *Manifest {
	return &Manifest{
		Family:    t.Family,
		Format:    format,
		DataFile:  dataFile,
		Columns:   t.Columns,
		Rows:      t.Len(),
		CreatedAt: time.Now().UTC(),
	}
}
