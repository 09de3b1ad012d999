// Package main provides the schemadeps command-line tool.
package main

import (
	"os"

	"github.com/leapstack-labs/schemadeps/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
