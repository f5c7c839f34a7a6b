package main

import (
	"context"   // Root context
	"errors"    // Exit code extraction
	"os"        // Exit and output
	"os/signal" // Interrupt handling

	"kudo/internal/app"    // Custom import path (Logging setup)
	"kudo/internal/cli"    // Custom import path (Commands)
	"kudo/internal/config" // Custom import path (Config)

	"github.com/sirupsen/logrus" // Structured logging
)

// Main entry point for the administration CLI
func main() {
	cfg := config.LoadConfig() // Load configuration
	if err := app.SetupLogging(cfg, os.Stderr); err != nil {
		logrus.Fatalf("invalid logging configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt) // Cancel work on Ctrl+C
	defer stop()

	cmd := cli.NewRootCommand(os.Stdout, cfg)
	if err := cmd.ExecuteContext(ctx); err != nil {
		logrus.Error(err)
		var withExitCode interface{ ExitCode() int }
		if errors.As(err, &withExitCode) {
			stop()
			os.Exit(withExitCode.ExitCode())
		}
		stop()
		os.Exit(cli.ExitCodeGeneric)
	}
}
