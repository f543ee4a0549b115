package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"hgb/internal/cli"
)

// main runs hgblink and exits with the status the command reports.
func main() {
	rt, err := cli.OSRuntime()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err = newRootCmd(rt).ExecuteContext(ctx)
	stop()
	os.Exit(cli.ExitCode(err, rt.Stderr))
}
