// Package main provides the entry point for the ixchel CLI.
package main

import (
	"fmt"
	"os"

	"github.com/kevinmichaelchen/ixchel/cmd/ixchel/cmd"
	"github.com/kevinmichaelchen/ixchel/internal/ixerr"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(ixerr.ExitCode(ixerr.GetKind(err)))
	}
}
