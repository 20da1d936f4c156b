// Package main is the entry point for the campuswatch incident reporting
// service.
package main

import (
	"context"
	"fmt"
	"os"

	"campuswatch/bootstrap"
)

// run initializes and starts the campuswatch service.
func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.NewApp(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	app.Start(ctx)

	if err := app.WaitForShutdown(); err != nil {
		app.Shutdown()
		return err
	}

	app.Shutdown()
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
