package service

import (
	"time"

	"github.com/startupforworld/coach/internal/adapters/repository"
	"github.com/startupforworld/coach/internal/adapters/session"
	"github.com/startupforworld/coach/internal/domain/prompt"
	"github.com/startupforworld/coach/internal/domain/recommend"
	"github.com/startupforworld/coach/internal/domain/referral"
	"github.com/startupforworld/coach/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of persistence workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the persistence queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the number of lead submission ids remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithWorkerRetry sets the attempts per persistence job and the backoff
// between them.
func WithWorkerRetry(attempts int, backoff time.Duration) Option {
	return func(s *Service) {
		if attempts > 0 {
			s.retryAttempts = attempts
		}
		if backoff > 0 {
			s.retryBackoff = backoff
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore sets the record and lead store. Defaults to an in-memory store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithSessionStore sets where resolved sponsor ids are remembered.
func WithSessionStore(store session.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.sessions = store
		}
	}
}

// WithSessionTTL sets how long a sponsor id sticks to a session.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithCatalog sets the product catalog provider.
func WithCatalog(c CatalogProvider) Option {
	return func(s *Service) {
		if c != nil {
			s.catalog = c
		}
	}
}

// WithExtractor enables biomarker extraction from report text.
func WithExtractor(e Extractor) Option {
	return func(s *Service) {
		if e != nil {
			s.extractor = e
		}
	}
}

// WithResolver replaces the default sponsor resolver.
func WithResolver(r *referral.Resolver) Option {
	return func(s *Service) {
		if r != nil {
			s.resolver = r
		}
	}
}

// WithEngine replaces the default recommendation engine.
func WithEngine(e *recommend.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithOrderLinks sets the order link builder.
func WithOrderLinks(o recommend.OrderLinks) Option {
	return func(s *Service) {
		s.orderLinks = o
	}
}

// WithPersona sets the identity the assistant speaks as.
func WithPersona(p prompt.Persona) Option {
	return func(s *Service) {
		s.persona = p
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
