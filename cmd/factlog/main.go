// Command factlog runs fact store programs and scenarios.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/factlog/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
