// Command ifjconform runs the conformance cases of the IFJ24 compiler.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/ifjconform/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		if !cli.IsReported(err) {
			fmt.Fprintln(os.Stderr, "ifjconform:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
