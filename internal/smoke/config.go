package smoke

import (
	"sync/atomic"
	"time"

	"github.com/startupforworld/coach/internal/domain/recommend"
)

// Config holds configuration for a smoke run against a live service.
type Config struct {
	BaseURL string // Base URL of the service
	Origin  string // Origin used when asking for share links
	Sellers int    // Distributor ids to generate
	Leads   int    // Lead submissions, each sent twice concurrently
	// Analyses is the number of analyses submitted; their records are polled
	// until persisted or SettleTimeout expires.
	Analyses      int
	Workers       int           // Concurrent requests in flight
	RatePerSecond float64       // Request rate cap; zero means unlimited
	Timeout       time.Duration // HTTP request timeout
	SettleTimeout time.Duration
	// Thresholds the service was configured with, used to check rule firing.
	CholesterolThreshold float64
	GlycemiaThreshold    float64
	OutputFile           string // Output file for generated leads
	Verbose              bool
}

func (c *Config) withDefaults() *Config {
	out := *c
	if out.Workers <= 0 {
		out.Workers = 1
	}
	if out.Timeout <= 0 {
		out.Timeout = DefaultTimeout
	}
	if out.SettleTimeout <= 0 {
		out.SettleTimeout = DefaultSettleTimeout
	}
	if out.CholesterolThreshold <= 0 {
		out.CholesterolThreshold = recommend.DefaultCholesterolThreshold
	}
	if out.GlycemiaThreshold <= 0 {
		out.GlycemiaThreshold = recommend.DefaultGlycemiaThreshold
	}
	if out.Origin == "" {
		out.Origin = out.BaseURL
	}
	return &out
}

// LeadSubmission is a generated lead as posted to /leads.
type LeadSubmission struct {
	SubmissionID string `json:"submission_id"`
	ReferrerID   string `json:"referrer_id"`
	Email        string `json:"prospect_email"`
	Name         string `json:"prospect_name"`
}

// Stats holds run counters. Violations count broken invariants; Failures
// count requests that did not complete.
type Stats struct {
	Requests          atomic.Int64
	Failures          atomic.Int64
	Violations        atomic.Int64
	SponsorChecks     atomic.Int64
	Recommendations   atomic.Int64
	LeadsCreated      atomic.Int64
	LeadDuplicates    atomic.Int64
	AnalysesSubmitted atomic.Int64
	RecordsPersisted  atomic.Int64
	StartTime         time.Time
	Duration          time.Duration
}
