// Command gridcore drives the spreadsheet transaction controller.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/gridcore/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
