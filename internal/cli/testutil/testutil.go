// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/sftprep/internal/cli/output"
)

// mathTrain has one duplicate question and one blank answer.
var mathTrain = []string{
	`{"question": "What is 2+2?", "generated_solution": "2+2=4", "expected_answer": "4"}`,
	`{"question": "What is 3+3?", "generated_solution": "3+3=6", "expected_answer": "6"}`,
	`{"question": "What is 2+2?", "generated_solution": "Four", "expected_answer": "4"}`,
	`{"question": "What is 4+4?", "generated_solution": "4+4=8", "expected_answer": ""}`,
}

var mathValidation = []string{
	`{"question": " What is 5+5? ", "generated_solution": "5+5=10", "expected_answer": "10"}`,
	`{"question": "What is 6+6?", "generated_solution": "6+6=12", "expected_answer": "12"}`,
}

// SetupTestProject creates a temporary project whose openmath family reads
// local JSON lines files, with a whitespace tokenizer and in-project state.
// It returns the project directory and the config file path.
func SetupTestProject(t *testing.T) (dir, cfgPath string) {
	t.Helper()

	dir = t.TempDir()
	src := filepath.Join(dir, "source")
	if err := os.MkdirAll(src, 0755); err != nil {
		t.Fatalf("failed to create directory %s: %v", src, err)
	}
	trainPath := filepath.Join(src, "train.jsonl")
	valPath := filepath.Join(src, "validation.jsonl")
	writeLines(t, trainPath, mathTrain)
	writeLines(t, valPath, mathValidation)

	cfg := fmt.Sprintf(`data_dir: data
state_path: state/state.db
split:
  train_ratio: 0.5
inspect:
  tokenizer: whitespace
families:
  openmath:
    subsets:
      - name: train
        path: %s
      - name: validation
        path: %s
`, trainPath, valPath)
	cfgPath = filepath.Join(dir, "sftprep.yaml")
	if err := os.WriteFile(cfgPath, []byte(cfg), 0644); err != nil {
		t.Fatalf("failed to create sftprep.yaml: %v", err)
	}
	return dir, cfgPath
}

func writeLines(t *testing.T, path string, lines []string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
func NewTestRenderer(mode output.Mode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// NewTestRendererMarkdown creates a new test renderer in markdown mode.
func NewTestRendererMarkdown() *TestRenderer {
	return NewTestRenderer(output.ModeMarkdown, false)
}

// NewTestRendererJSON creates a new test renderer in JSON mode.
func NewTestRendererJSON() *TestRenderer {
	return NewTestRenderer(output.ModeJSON, false)
}

// Output returns the stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown checks for unclosed code fences and empty headers.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	if n := strings.Count(md, "```"); n%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", n)
	}
	for i, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}
