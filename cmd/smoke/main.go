package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/startupforworld/coach/internal/smoke"
)

// Default configuration constants.
const (
	defaultSellers  = 200
	defaultLeads    = 500
	defaultAnalyses = 100
	defaultWorkers  = 2 // multiplier for runtime.NumCPU()
	defaultRunLimit = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		sellers    = flag.Int("sellers", defaultSellers, "Distributor ids to generate")
		leads      = flag.Int("leads", defaultLeads, "Lead submissions, each posted twice at once")
		analyses   = flag.Int("analyses", defaultAnalyses, "Analyses to submit and wait for")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Concurrent requests in flight")
		ratePerSec = flag.Float64("rate", 0, "Request rate cap per second, 0 for none")
		timeout    = flag.Duration("timeout", smoke.DefaultTimeout, "HTTP request timeout")
		settle     = flag.Duration("settle", smoke.DefaultSettleTimeout, "How long to wait for analyses to persist")
		outputFile = flag.String("output", "", "Output file for generated leads")
		logFile    = flag.String("log", "", "Log file for run output")
		verbose    = flag.Bool("verbose", false, "Enable debug logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		smoke.ShowHelp()
		return
	}

	closer, err := smoke.SetupLogging(*logFile, *verbose)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer closer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunLimit)
	defer cancel()

	cfg := &smoke.Config{
		BaseURL:       *baseURL,
		Sellers:       *sellers,
		Leads:         *leads,
		Analyses:      *analyses,
		Workers:       *workers,
		RatePerSecond: *ratePerSec,
		Timeout:       *timeout,
		SettleTimeout: *settle,
		OutputFile:    *outputFile,
		Verbose:       *verbose,
	}

	if err := smoke.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Smoke run failed: " + err.Error() + "\n")
		closer.Close()
		cancel()
		os.Exit(1)
	}
}
