package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/startupforworld/coach/internal/config"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.FounderID, convey.ShouldEqual, "067-2922111")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("COACH_ADDR", ":8080")
			_ = os.Setenv("COACH_QUEUE_SIZE", "500")
			_ = os.Setenv("COACH_CHOLESTEROL_THRESHOLD", "5.5")
			_ = os.Setenv("COACH_FOUNDER_ID", "123-4567890")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 500)
				convey.So(cfg.CholesterolThreshold, convey.ShouldEqual, 5.5)
				convey.So(cfg.FounderID, convey.ShouldEqual, "123-4567890")
				convey.So(cfg.GlycemiaThreshold, convey.ShouldEqual, 6.1)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile(`
addr: ":9090"
worker_count: 3
store_driver: sqlite
database_url: /tmp/coach.db
catalog_url: https://api.example.test/v1
`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("COACH_CONFIG", tmpFile)
			_ = os.Setenv("COACH_ADDR", ":7070")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then env overrides the file and the file overrides defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 3)
				convey.So(cfg.StoreDriver, convey.ShouldEqual, config.DriverSQLite)
				convey.So(cfg.DatabaseURL, convey.ShouldEqual, "/tmp/coach.db")
				convey.So(cfg.CatalogURL, convey.ShouldEqual, "https://api.example.test/v1")
				convey.So(cfg.CatalogLocalization, convey.ShouldEqual, "fr-fr")
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("COACH_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("COACH_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("COACH_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("COACH_QUEUE_SIZE", "invalid")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When redis sessions are selected through env", func() {
			_ = os.Setenv("COACH_SESSION_DRIVER", "redis")
			_ = os.Setenv("COACH_REDIS_URL", "redis://localhost:6379/0")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then the config is accepted", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.SessionDriver, convey.ShouldEqual, config.DriverRedis)
				convey.So(cfg.RedisURL, convey.ShouldEqual, "redis://localhost:6379/0")
			})
		})
	})
}

func createTempConfigFile(content string) string {
	f, err := os.CreateTemp("", "coach-config-*.yaml")
	if err != nil {
		panic(err)
	}
	defer func() { _ = f.Close() }()
	if _, err := f.WriteString(content); err != nil {
		panic(err)
	}
	return f.Name()
}

func clearConfigEnvVars() {
	for _, k := range []string{
		"COACH_CONFIG",
		"COACH_ADDR",
		"COACH_QUEUE_SIZE",
		"COACH_WORKER_COUNT",
		"COACH_CHOLESTEROL_THRESHOLD",
		"COACH_FOUNDER_ID",
		"COACH_SESSION_DRIVER",
		"COACH_REDIS_URL",
	} {
		_ = os.Unsetenv(k)
	}
}
