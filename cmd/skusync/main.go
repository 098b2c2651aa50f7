// Package main provides the entry point for the skusync CLI tool.
package main

import (
	"context"
	"os"

	"github.com/agentstation/skusync/cmd/skusync/app"
)

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
	builtBy = "unknown"
)

func main() {
	application, err := app.New(version, commit, date, builtBy)
	if err != nil {
		app.ExitOnError(err)
	}

	// Cancel the run cleanly on SIGINT/SIGTERM; partial outputs are never
	// delivered.
	ctx, cancel := app.ContextWithSignals(context.Background())
	defer cancel()

	if err := application.Execute(ctx, os.Args[1:]); err != nil {
		app.ExitOnError(err)
	}
}
