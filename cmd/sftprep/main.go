// Package main is the sftprep command line entry point.
package main

import (
	"os"

	"github.com/leapstack-labs/sftprep/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
