package main

import (
	"context"
	"os"

	"finances/internal/cli"
)

func main() {
	ctx, cancel := cli.SignalContext(context.Background())
	defer cancel()

	if err := cli.NewWorkerCommand().ExecuteContext(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}
