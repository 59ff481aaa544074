// Package main is the entry point for the mxview CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/tOgg1/mxview/internal/cli"
)

// Version information (set by goreleaser)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := cli.Execute(fmt.Sprintf("%s (%s, %s)", version, commit, date)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var preflight *cli.PreflightError
		if errors.As(err, &preflight) {
			fmt.Fprint(os.Stderr, preflight.Advice())
		}
		os.Exit(1)
	}
}
