// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/startupforworld/coach/internal/adapters/catalog"
	"github.com/startupforworld/coach/internal/adapters/genai"
	jobqueue "github.com/startupforworld/coach/internal/adapters/mq/queue"
	workerpool "github.com/startupforworld/coach/internal/adapters/mq/worker"
	"github.com/startupforworld/coach/internal/adapters/repository"
	"github.com/startupforworld/coach/internal/adapters/session"
	"github.com/startupforworld/coach/internal/domain/dedupe"
	"github.com/startupforworld/coach/internal/domain/prompt"
	"github.com/startupforworld/coach/internal/domain/recommend"
	"github.com/startupforworld/coach/internal/domain/referral"
	"github.com/startupforworld/coach/pkg/logger"
	"github.com/startupforworld/coach/pkg/metrics"
)

// CatalogProvider returns the product catalog to recommend from.
type CatalogProvider interface {
	Catalog(ctx context.Context) recommend.Catalog
}

// Extractor turns lab report text into structured clinical data.
type Extractor interface {
	Extract(ctx context.Context, report string) (genai.Extraction, error)
}

// Service implements the API dependencies for the coach backend.
type Service struct {
	mu sync.RWMutex

	// Core components
	resolver   *referral.Resolver
	engine     *recommend.Engine
	orderLinks recommend.OrderLinks
	catalog    CatalogProvider
	extractor  Extractor
	sessions   session.Store
	store      repository.Store
	deduper    dedupe.Deduper
	jobs       *jobqueue.InMemoryQueue
	workerPool *workerpool.Pool
	persona    prompt.Persona

	// Configuration
	workerCount   int
	queueSize     int
	dedupeSize    int
	retryAttempts int
	retryBackoff  time.Duration
	sessionTTL    time.Duration
	now           func() time.Time

	// State
	started bool
	cancel  context.CancelFunc

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration. Every adapter
// defaults to its in-memory form.
func New(opts ...Option) *Service {
	s := &Service{
		resolver:      referral.NewResolver(),
		engine:        recommend.NewEngine(),
		orderLinks:    recommend.NewOrderLinks("", ""),
		workerCount:   4,
		queueSize:     10_000,
		dedupeSize:    50_000,
		retryAttempts: 3,
		retryBackoff:  200 * time.Millisecond,
		sessionTTL:    session.DefaultTTL,
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	if s.sessions == nil {
		s.sessions = session.NewMemoryStore()
	}
	if s.catalog == nil {
		s.catalog = catalog.NewCached(catalog.Static(recommend.FallbackCatalog()))
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	return s
}

// Start migrates the store and starts the persistence workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting coach service...")

	if err := s.store.Migrate(ctx); err != nil {
		s.logger.Error(ctx, "store migration failed", logger.Error(err))
		return err
	}

	s.jobs = jobqueue.NewInMemoryQueue(jobqueue.WithCapacity(s.queueSize))
	s.workerPool = workerpool.NewPool(s.workerCount, s.jobs, s.store,
		workerpool.WithLogger(s.logger),
		workerpool.WithRetry(s.retryAttempts, s.retryBackoff),
	)
	// Workers outlive the caller's context so Stop can drain accepted jobs.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.workerPool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "coach service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop drains the persistence queue and closes the adapters.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping coach service...")

	if err := s.workerPool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool did not drain", logger.Error(err))
	}
	s.cancel()
	if err := s.store.Close(); err != nil {
		s.logger.Warn(ctx, "error closing store", logger.Error(err))
	}
	if closer, ok := s.sessions.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			s.logger.Warn(ctx, "error closing session store", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(ctx, "coach service stopped")
}

// enqueue submits a persistence job.
func (s *Service) enqueue(ctx context.Context, j jobqueue.Job) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return ErrNotStarted
	}
	if !s.jobs.Enqueue(ctx, j) {
		return ErrQueueFull
	}
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":      s.started,
		"workerCount":  s.workerCount,
		"queueSize":    s.queueSize,
		"dedupeSize":   s.dedupeSize,
		"dedupeLength": s.deduper.Size(),
	}

	if s.started {
		queueLen := s.jobs.Len(context.Background())
		stats["queueLength"] = queueLen
		stats["jobsProcessed"] = s.workerPool.Processed()
		stats["jobsFailed"] = s.workerPool.Failed()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateWorkerCount(s.workerPool.Size())
	}

	if c, ok := s.catalog.(*catalog.Cached); ok {
		snap := c.Snapshot(context.Background())
		stats["catalogProducts"] = len(snap.Products)
		stats["catalogFallback"] = snap.Fallback
		stats["catalogExpiresAt"] = snap.ExpiresAt
	}

	return stats
}
