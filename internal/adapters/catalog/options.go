package catalog

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/startupforworld/coach/internal/domain/recommend"
	"github.com/startupforworld/coach/pkg/logger"
)

// Remote defaults.
const (
	DefaultBaseURL      = "https://api.neolife.com/v1"
	DefaultCategory     = "NeoLifeClubApp"
	DefaultLocalization = "fr-fr"
	DefaultRate         = 5.0
	DefaultTTL          = 24 * time.Hour
	DefaultRetryAfter   = 5 * time.Minute

	defaultSubcategoryFanout = 4
	defaultTimeout           = 15 * time.Second
)

// RemoteOption configures a Remote source.
type RemoteOption func(*Remote)

// WithBaseURL sets the API root, e.g. https://api.neolife.com/v1.
func WithBaseURL(u string) RemoteOption {
	return func(r *Remote) {
		if u != "" {
			r.baseURL = u
		}
	}
}

// WithCategory sets the root catalog category.
func WithCategory(c string) RemoteOption {
	return func(r *Remote) {
		if c != "" {
			r.category = c
		}
	}
}

// WithLocalization sets the localization header value.
func WithLocalization(l string) RemoteOption {
	return func(r *Remote) {
		if l != "" {
			r.localization = l
		}
	}
}

// WithCredentials enables login before the first fetch.
func WithCredentials(username, password string) RemoteOption {
	return func(r *Remote) {
		r.username = username
		r.password = password
	}
}

// WithRate bounds outbound requests per second.
func WithRate(perSecond float64) RemoteOption {
	return func(r *Remote) {
		if perSecond > 0 {
			r.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(r *Remote) {
		if c != nil {
			r.client = c
		}
	}
}

// WithRemoteLogger sets the logger used for skipped subcategories.
func WithRemoteLogger(l logger.Logger) RemoteOption {
	return func(r *Remote) {
		if l != nil {
			r.log = l
		}
	}
}

// CachedOption configures a Cached catalog.
type CachedOption func(*Cached)

// WithTTL sets how long a fetched snapshot is reused.
func WithTTL(ttl time.Duration) CachedOption {
	return func(c *Cached) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithRetryAfter sets how long a failed refresh is not retried.
func WithRetryAfter(d time.Duration) CachedOption {
	return func(c *Cached) {
		if d > 0 {
			c.retryAfter = d
		}
	}
}

// WithFallback replaces the built-in fallback catalog.
func WithFallback(cat recommend.Catalog) CachedOption {
	return func(c *Cached) {
		if len(cat) > 0 {
			c.fallback = cat
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) CachedOption {
	return func(c *Cached) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the cache logger.
func WithLogger(l logger.Logger) CachedOption {
	return func(c *Cached) {
		if l != nil {
			c.log = l
		}
	}
}
