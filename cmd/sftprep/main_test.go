package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/leapstack-labs/sftprep/internal/cli"
)

func TestHelpCommand(t *testing.T) {
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--help"})

	if err := cmd.Execute(); err != nil {
		t.Errorf("help command error = %v", err)
	}

	output := buf.String()
	for _, expected := range []string{"fetch", "clean", "split", "format", "inspect", "run", "runs"} {
		if !strings.Contains(output, expected) {
			t.Errorf("help output should contain '%s', got: %s", expected, output)
		}
	}
}

func TestUnknownCommand(t *testing.T) {
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"deploy"})

	if err := cmd.Execute(); err == nil {
		t.Error("expected error for unknown command")
	}
}
