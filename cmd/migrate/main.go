package main

import (
	"context" // Root context
	"os"      // Log output

	"kudo/internal/app"    // Custom import path (Startup phases)
	"kudo/internal/config" // Custom import path (Config)

	"github.com/sirupsen/logrus" // Structured logging
)

// Main entry point for migration
func main() {
	cfg := config.LoadConfig() // Load configuration
	if err := app.SetupLogging(cfg, os.Stderr); err != nil {
		logrus.Fatalf("invalid logging configuration: %v", err)
	}

	if err := app.Migrate(context.Background(), cfg); err != nil {
		logrus.Fatalf("failed to migrate database: %v", err) // Fatal error if migration fails
	}
}
