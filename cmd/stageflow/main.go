// Package main is the stageflow command.
package main

import (
	"os"

	"github.com/leapstack-labs/stageflow/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
