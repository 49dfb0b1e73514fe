// Package main provides the entry point for the seekd CLI.
package main

import (
	"os"

	"github.com/seekd/seekd/cmd/seekd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
