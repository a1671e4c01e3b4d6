package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/cors"

	"github.com/startupforworld/coach/internal/adapters/catalog"
	"github.com/startupforworld/coach/internal/adapters/genai"
	"github.com/startupforworld/coach/internal/adapters/http/api"
	"github.com/startupforworld/coach/internal/adapters/http/site"
	"github.com/startupforworld/coach/internal/adapters/http/swagger"
	"github.com/startupforworld/coach/internal/adapters/repository"
	"github.com/startupforworld/coach/internal/adapters/session"
	service "github.com/startupforworld/coach/internal/app"
	"github.com/startupforworld/coach/internal/config"
	"github.com/startupforworld/coach/internal/domain/recommend"
	"github.com/startupforworld/coach/internal/domain/referral"
	"github.com/startupforworld/coach/pkg/logger"
)

const corsMaxAge = 300

// openStore returns the repository selected by cfg.StoreDriver.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		store, err := repository.NewSQLite(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.DriverPostgres:
		store, err := repository.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.DriverMemory, "":
		return repository.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: unknown store_driver %q", config.ErrInvalidConfig, cfg.StoreDriver)
	}
}

// openSessions returns the session store selected by cfg.SessionDriver.
func openSessions(ctx context.Context, cfg *config.Config) (session.Store, error) {
	switch cfg.SessionDriver {
	case config.DriverRedis:
		store, err := session.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.DriverMemory, "":
		return session.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: unknown session_driver %q", config.ErrInvalidConfig, cfg.SessionDriver)
	}
}

// newCatalog returns the cached remote catalog, or the built-in one when no
// catalog URL is configured.
func newCatalog(cfg *config.Config, log logger.Logger) *catalog.Cached {
	ttl := time.Duration(cfg.CatalogTTLMinutes) * time.Minute
	if cfg.CatalogURL == "" {
		return catalog.NewCached(catalog.Static(recommend.FallbackCatalog()), catalog.WithTTL(ttl))
	}
	remote := catalog.NewRemote(
		catalog.WithBaseURL(cfg.CatalogURL),
		catalog.WithCategory(cfg.CatalogCategory),
		catalog.WithLocalization(cfg.CatalogLocalization),
		catalog.WithCredentials(cfg.CatalogUsername, cfg.CatalogPassword),
		catalog.WithRate(cfg.CatalogRatePerSecond),
		catalog.WithRemoteLogger(log.Named("catalog")),
	)
	return catalog.NewCached(remote, catalog.WithTTL(ttl), catalog.WithLogger(log.Named("catalog")))
}

// buildService assembles the service from cfg. The returned service is not
// started; on error every opened resource is released.
func buildService(ctx context.Context, cfg *config.Config, log logger.Logger) (*service.Service, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	sessions, err := openSessions(ctx, cfg)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("open sessions: %w", err)
	}

	opts := []service.Option{
		service.WithLogger(log),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithStore(store),
		service.WithSessionStore(sessions),
		service.WithSessionTTL(time.Duration(cfg.SessionTTLMinutes) * time.Minute),
		service.WithCatalog(newCatalog(cfg, log)),
		service.WithResolver(referral.NewResolver(
			referral.WithFounder(cfg.FounderID, cfg.FounderName),
			referral.WithShopBase(cfg.ShopBaseURL),
			referral.WithCommerceDomain(cfg.CommerceDomain),
		)),
		service.WithEngine(recommend.NewEngine(
			recommend.WithThresholds(cfg.CholesterolThreshold, cfg.GlycemiaThreshold),
		)),
		service.WithOrderLinks(recommend.NewOrderLinks(cfg.ShopBaseURL, cfg.OrderSource)),
	}

	if cfg.GenAIAPIKey != "" {
		client, err := genai.NewClient(ctx, cfg.GenAIAPIKey, cfg.GenAIModel)
		if err != nil {
			_ = store.Close()
			if c, ok := sessions.(io.Closer); ok {
				_ = c.Close()
			}
			return nil, fmt.Errorf("genai client: %w", err)
		}
		opts = append(opts, service.WithExtractor(genai.NewExtractor(client)))
	} else {
		log.Warn(ctx, "genai api key not set; report extraction disabled")
	}

	return service.New(opts...), nil
}

// newHandler registers every route on a fresh mux and wraps it in CORS.
func newHandler(ctx context.Context, cfg *config.Config, svc *service.Service) http.Handler {
	mux := http.NewServeMux()

	swagger.Register(ctx, mux)
	api.NewServer(svc, api.WithPublicOrigin(cfg.PublicOrigin)).Register(ctx, mux)
	site.Register(ctx, mux)

	return cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins(),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           corsMaxAge,
	})(mux)
}
