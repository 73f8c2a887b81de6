// finctl drives the accounting engine from the command line: recurrence runs,
// month closing, goal contributions, dashboards and schema migrations.
package main

import (
	"fmt"
	"os"

	"spendwise/internal/cli"
	"spendwise/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentCLI)

	ctx, cancel := cli.GracefulShutdown(logger, nil)
	defer cancel()

	a := &app{out: os.Stdout, logger: logger}
	err := newRootCmd(a).ExecuteContext(ctx)
	a.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
