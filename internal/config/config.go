// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - New(ctx) returns a Config populated with defaults.
//   - Load(ctx) layers defaults, an optional YAML file and COACH_* env vars.
//   - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"runtime"
)

// Storage and session drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// PublicOrigin is the scheme+host used when the service builds share links
	// on behalf of clients that did not send their own origin.
	PublicOrigin string `koanf:"public_origin"`

	// CORSOrigins is a comma separated allow-list for browser clients.
	CORSOrigins string `koanf:"cors_origins"`

	// Founder identity used when no referral signal is present.
	FounderID   string `koanf:"founder_id"`
	FounderName string `koanf:"founder_name"`

	// ShopBaseURL is the seller storefront prefix; "?id=<sponsor>" is appended.
	ShopBaseURL string `koanf:"shop_base_url"`

	// CommerceDomain must appear in a decoded compound shop URL for it to be trusted.
	CommerceDomain string `koanf:"commerce_domain"`

	// OrderSource tags order links with the channel that produced them.
	OrderSource string `koanf:"order_source"`

	// Recommendation thresholds in mmol/L.
	CholesterolThreshold float64 `koanf:"cholesterol_threshold"`
	GlycemiaThreshold    float64 `koanf:"glycemia_threshold"`

	// SessionDriver is memory or redis; SessionTTLMinutes bounds the cached sponsor id.
	SessionDriver     string `koanf:"session_driver"`
	SessionTTLMinutes int    `koanf:"session_ttl_minutes"`
	RedisURL          string `koanf:"redis_url"`

	// StoreDriver is memory, sqlite or postgres. DatabaseURL is a file path for
	// sqlite and a connection string for postgres.
	StoreDriver string `koanf:"store_driver"`
	DatabaseURL string `koanf:"database_url"`

	// Remote catalog. An empty CatalogURL keeps the built-in catalog.
	CatalogURL           string  `koanf:"catalog_url"`
	CatalogCategory      string  `koanf:"catalog_category"`
	CatalogLocalization  string  `koanf:"catalog_localization"`
	CatalogTTLMinutes    int     `koanf:"catalog_ttl_minutes"`
	CatalogRatePerSecond float64 `koanf:"catalog_rate_per_second"`
	CatalogUsername      string  `koanf:"catalog_username"`
	CatalogPassword      string  `koanf:"catalog_password"`

	// GenAI provider used to extract biomarkers from report text. Empty key disables it.
	GenAIAPIKey string `koanf:"genai_api_key"`
	GenAIModel  string `koanf:"genai_model"`

	// QueueSize bounds the in-memory persistence queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of persistence workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds the window of remembered lead submission ids.
	DedupeSize int `koanf:"dedupe_size"`
}

// New creates a Config with defaults. The context is accepted first to follow
// the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":9080",
		PublicOrigin:         "http://localhost:9080",
		CORSOrigins:          "*",
		FounderID:            "067-2922111",
		FounderName:          "ABADA M. José Gaétan",
		ShopBaseURL:          "https://shopneolife.com/startupforworld/shop/atoz",
		CommerceDomain:       "neolife.com",
		OrderSource:          "axioma-ai",
		CholesterolThreshold: 5.2,
		GlycemiaThreshold:    6.1,
		SessionDriver:        DriverMemory,
		SessionTTLMinutes:    30 * 24 * 60,
		StoreDriver:          DriverMemory,
		CatalogCategory:      "best-sellers",
		CatalogLocalization:  "fr-fr",
		CatalogTTLMinutes:    24 * 60,
		CatalogRatePerSecond: 2,
		GenAIModel:           "gemini-2.5-flash",
		QueueSize:            10_000,
		WorkerCount:          runtime.NumCPU(),
		DedupeSize:           50_000,
	}
}
