// Package testutil holds logging helpers shared by package tests.
package testutil

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// NewTestLogger returns a debug logger that writes through t.Log, so output
// shows only for failing tests or under -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	logger, _ := NewCapturingLogger(t)
	return logger
}

// LogCapture keeps every line written by a capturing logger.
type LogCapture struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// NewCapturingLogger is NewTestLogger that also records its output for
// assertions on warnings and errors.
func NewCapturingLogger(t testing.TB) (*slog.Logger, *LogCapture) {
	t.Helper()
	c := &LogCapture{}
	h := slog.NewTextHandler(&testWriter{t: t, capture: c}, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(h), c
}

// String returns everything logged so far.
func (c *LogCapture) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

// Lines returns the logged lines at level (DEBUG, INFO, WARN, ERROR).
func (c *LogCapture) Lines(level string) []string {
	var out []string
	for _, line := range strings.Split(c.String(), "\n") {
		if strings.Contains(line, "level="+level) {
			out = append(out, line)
		}
	}
	return out
}

type testWriter struct {
	t       testing.TB
	capture *LogCapture
}

func (w *testWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.capture.mu.Lock()
	w.capture.buf.Write(p)
	w.capture.mu.Unlock()
	w.t.Log(strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}
