// Package main is the entry point of the infranest CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"infranest/internal/cli"
)

// Set via -ldflags "-X main.version=...".
var (
	version string
	commit  string
	date    string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx, cli.BuildInfo{Version: version, Commit: commit, Date: date})
	stop()
	if err != nil {
		os.Exit(1)
	}
}
