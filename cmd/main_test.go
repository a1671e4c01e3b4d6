package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"

	service "github.com/startupforworld/coach/internal/app"
	"github.com/startupforworld/coach/internal/config"
	"github.com/startupforworld/coach/pkg/logger"
	"github.com/startupforworld/coach/pkg/metrics"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

func TestMainConfiguration(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When configuration comes from the environment", func() {
			t.Setenv("COACH_ADDR", ":8080")
			t.Setenv("COACH_QUEUE_SIZE", "1000")
			t.Setenv("COACH_WORKER_COUNT", "4")

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 1000)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When the address is blanked", func() {
			t.Setenv("COACH_ADDR", "")

			convey.Convey("Then configuration loading should fail", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func TestBuildService(t *testing.T) {
	convey.Convey("Given default configuration", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)
		log := logger.NewNop()

		convey.Convey("When the memory drivers are selected", func() {
			svc, err := buildService(ctx, cfg, log)

			convey.Convey("Then the service starts and stops", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(svc.Start(ctx), convey.ShouldBeNil)
				convey.So(svc.GetStats()["started"], convey.ShouldEqual, true)
				svc.Stop()
			})
		})

		convey.Convey("When the sqlite driver is selected", func() {
			cfg.StoreDriver = config.DriverSQLite
			cfg.DatabaseURL = filepath.Join(t.TempDir(), "coach.db")
			svc, err := buildService(ctx, cfg, log)

			convey.Convey("Then the database is created on start", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(svc.Start(ctx), convey.ShouldBeNil)
				defer svc.Stop()
				_, statErr := os.Stat(cfg.DatabaseURL)
				convey.So(statErr, convey.ShouldBeNil)
			})
		})

		convey.Convey("When an unknown driver is selected", func() {
			cfg.StoreDriver = "mongo"
			_, err := buildService(ctx, cfg, log)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When an unknown session driver is selected", func() {
			cfg.SessionDriver = "memcached"
			_, err := buildService(ctx, cfg, log)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}

func TestNewHandler(t *testing.T) {
	convey.Convey("Given the assembled handler", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)
		cfg.CORSOrigins = "https://coach.example"
		svc, err := buildService(ctx, cfg, logger.NewNop())
		convey.So(err, convey.ShouldBeNil)
		h := newHandler(ctx, cfg, svc)

		get := func(target string, header ...string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
			for i := 0; i+1 < len(header); i += 2 {
				req.Header.Set(header[i], header[i+1])
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			return w
		}

		convey.Convey("Then the front end, docs and API are all mounted", func() {
			convey.So(get("/").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/api-docs").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/openapi.yaml").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/sponsor").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/dashboard").Code, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("Then allowed origins get CORS headers", func() {
			w := get("/sponsor", "Origin", "https://coach.example")
			convey.So(w.Header().Get("Access-Control-Allow-Origin"), convey.ShouldEqual, "https://coach.example")
		})

		convey.Convey("Then other origins do not", func() {
			w := get("/sponsor", "Origin", "https://evil.example")
			convey.So(w.Header().Get("Access-Control-Allow-Origin"), convey.ShouldBeEmpty)
		})

		convey.Convey("Then the sponsor endpoint sees the configured founder", func() {
			w := get("/sponsor")
			convey.So(strings.Contains(w.Body.String(), cfg.FounderID), convey.ShouldBeTrue)
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given the metrics updaters", t, func() {
		convey.Convey("When the system updater runs until its context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
		})

		convey.Convey("When the service updater runs until its context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.So(func() { startServiceMetricsUpdater(ctx, service.New()) }, convey.ShouldNotPanic)
		})

		convey.Convey("When single updates run", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
			convey.So(func() { updateServiceMetrics(service.New()) }, convey.ShouldNotPanic)
		})

		convey.Convey("When a manager is built on its own registry", func() {
			manager := metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry()))
			convey.So(manager, convey.ShouldNotBeNil)
		})
	})
}
