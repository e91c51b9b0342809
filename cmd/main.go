package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/rummy/internal/cli"
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM so pending writes are flushed.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := cli.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
