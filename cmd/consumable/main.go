// Command consumable runs, tests and inspects consumable-event scenarios.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/consumable/internal/cli"
)

func main() {
	if err := cli.Execute(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
