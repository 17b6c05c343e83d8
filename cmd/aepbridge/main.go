// Command aepbridge drives the Adobe Experience Platform bridge against a
// simulated SDK.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/aepbridge/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
