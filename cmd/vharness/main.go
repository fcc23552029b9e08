// Command vharness runs declarative data validation suites.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/vharness/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
