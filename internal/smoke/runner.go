package smoke

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/startupforworld/coach/internal/domain/referral"
	"github.com/startupforworld/coach/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
)

// ErrInvariant is returned when the service broke at least one invariant.
var ErrInvariant = errors.New("smoke: invariants violated")

// Run executes the complete smoke run.
func Run(ctx context.Context, cfg *Config) error {
	_, err := run(ctx, cfg)
	return err
}

func run(ctx context.Context, cfg *Config) (*Stats, error) {
	cfg = cfg.withDefaults()
	stats := &Stats{StartTime: time.Now()}
	r := &runner{cfg: cfg, stats: stats, log: logger.Named("smoke")}
	r.c = newClient(cfg, stats)

	r.log.Info(ctx, "starting coach smoke run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("sellers", cfg.Sellers),
		logger.Int("leads", cfg.Leads),
		logger.Int("analyses", cfg.Analyses),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
		logger.Bool("verbose", cfg.Verbose))

	if err := r.checkServiceHealth(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	sellers := generateSellers(max(cfg.Sellers, 1), referral.DefaultFounderID)
	leads := generateLeads(cfg.Leads, sellers)

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"sponsors", func(ctx context.Context) error { return r.checkSponsors(ctx, sellers) }},
		{"recommendations", func(ctx context.Context) error { return r.checkRecommendations(ctx, sellers) }},
		{"leads", func(ctx context.Context) error { return r.checkLeads(ctx, leads) }},
		{"analyses", func(ctx context.Context) error { return r.checkAnalyses(ctx, sellers) }},
	}
	for _, step := range steps {
		if err := step.fn(ctx); err != nil {
			return stats, fmt.Errorf("%s: %w", step.name, err)
		}
	}

	if cfg.OutputFile != "" {
		if err := saveLeads(cfg.OutputFile, leads); err != nil {
			r.log.Warn(ctx, "failed to save leads to file", logger.Error(err))
		}
	}

	stats.Duration = time.Since(stats.StartTime)
	r.displayFinalStats(ctx)

	if v := stats.Violations.Load(); v > 0 {
		return stats, fmt.Errorf("%w: %d", ErrInvariant, v)
	}
	r.log.Info(ctx, "smoke run completed successfully")
	return stats, nil
}

// checkServiceHealth verifies the service answers its metrics endpoint.
func (r *runner) checkServiceHealth(ctx context.Context) error {
	if _, err := r.c.get(ctx, "/healthz", nil); err != nil {
		return err
	}
	r.log.Info(ctx, "service is healthy")
	return nil
}

// saveLeads writes the generated submissions as a JSON array.
func saveLeads(filename string, leads []LeadSubmission) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(leads, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal leads: %w", err)
	}
	return os.WriteFile(filename, data, filePermission)
}

func (r *runner) displayFinalStats(ctx context.Context) {
	s := r.stats
	var requestsPerSecond, persistedRate float64
	if s.Duration > 0 {
		requestsPerSecond = float64(s.Requests.Load()) / s.Duration.Seconds()
	}
	if n := s.AnalysesSubmitted.Load(); n > 0 {
		persistedRate = float64(s.RecordsPersisted.Load()) / float64(n) * percentageMultiplier
	}

	r.log.Info(ctx, "final statistics",
		logger.Int("requests", int(s.Requests.Load())),
		logger.Int("failures", int(s.Failures.Load())),
		logger.Int("violations", int(s.Violations.Load())),
		logger.Int("sponsorChecks", int(s.SponsorChecks.Load())),
		logger.Int("recommendations", int(s.Recommendations.Load())),
		logger.Int("leadsCreated", int(s.LeadsCreated.Load())),
		logger.Int("leadDuplicates", int(s.LeadDuplicates.Load())),
		logger.Int("analysesSubmitted", int(s.AnalysesSubmitted.Load())),
		logger.Int("recordsPersisted", int(s.RecordsPersisted.Load())),
		logger.Float64("persistedRate", persistedRate),
		logger.Float64("requestsPerSecond", requestsPerSecond),
		logger.Duration("duration", s.Duration))
}
