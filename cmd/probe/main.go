// Command probe is a local, offline code-search CLI: a thin adapter
// over the internal/engine core, keeping flag parsing and presentation
// out of the core's scope.
package main

import (
	"os"

	"github.com/probehq/probe/cmd/probe/cmd"
	"github.com/probehq/probe/internal/perr"
)

func main() {
	err := cmd.Execute()
	if err != nil {
		os.Stderr.WriteString(perr.FormatForCLI(err))
	}
	os.Exit(perr.ExitCode(err))
}
