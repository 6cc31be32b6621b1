// Package main provides the entry point for the vigil CLI.
package main

import (
	"fmt"
	"os"

	"github.com/vigil-dev/vigil/cmd/vigil/cmd"
	verrors "github.com/vigil-dev/vigil/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprint(os.Stderr, verrors.FormatForCLI(err))
		os.Exit(1)
	}
}
