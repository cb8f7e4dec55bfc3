package main

import (
	"os"

	"github.com/theirongolddev/synapseinbox/internal/cli"
)

func main() {
	// Errors are already reported by Execute in the selected format.
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
