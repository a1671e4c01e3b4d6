// Package smoke drives a running coach service with concurrent visitors and
// checks the invariants it must hold: share links resolve back to their
// sponsor, recommendations follow the rule table, lead submissions are
// deduplicated and accepted analyses are persisted.
package smoke

import (
	"fmt"
	"io"
	"os"

	"github.com/startupforworld/coach/pkg/logger"
)

// SetupLogging initializes the global logger on stdout, teeing to logFile
// when one is given.
func SetupLogging(logFile string, verbose bool) (io.Closer, error) {
	var (
		w      io.Writer = os.Stdout
		closer io.Closer = io.NopCloser(nil)
	)
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, filePermission)
		if err != nil {
			return nil, fmt.Errorf("failed to create log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, file)
		closer = file
	}
	if err := logger.Init(logger.WithWriter(w)); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	return closer, nil
}

// ShowHelp prints usage information for the smoke tool.
func ShowHelp() {
	os.Stdout.WriteString(`Coach Smoke Tool
================

Drives a running coach service with concurrent visitors and checks that
share links, recommendations, lead deduplication and analysis persistence
behave.

Usage:
  go run ./cmd/smoke [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -sellers int
        Distributor ids to generate (default 200)
  -leads int
        Lead submissions, each posted twice at once (default 500)
  -analyses int
        Analyses to submit and wait for (default 100)
  -workers int
        Concurrent requests in flight (default CPU cores * 2)
  -rate float
        Request rate cap per second, 0 for none (default 0)
  -timeout duration
        HTTP request timeout (default 10s)
  -settle duration
        How long to wait for analyses to persist (default 30s)
  -output string
        Output file for generated leads
  -log string
        Log file for run output
  -verbose
        Enable debug logging
  -help
        Show this help message

Examples:
  # Run with default settings
  go run ./cmd/smoke

  # Heavier run against another host
  go run ./cmd/smoke -leads 5000 -workers 32 -url http://localhost:8080
`)
}
