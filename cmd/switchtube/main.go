package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mmcdole/switchtube/internal/cli"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, Version)
	stop()
	os.Exit(code)
}
