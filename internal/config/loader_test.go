package config_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/okian/ech0client/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.BaseAPI, convey.ShouldEqual, "http://localhost:1314/api")
			convey.So(cfg.TimeoutMS, convey.ShouldEqual, 10_000)
			convey.So(cfg.Timeout(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.NotifyQueueSize, convey.ShouldEqual, 64)
			convey.So(cfg.IncludeCredentials, convey.ShouldBeFalse)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.BaseAPI, convey.ShouldEqual, "http://localhost:1314/api")
				convey.So(cfg.TimeoutMS, convey.ShouldEqual, 10_000)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("ECH0_BASE_API", "https://board.example.com/api")
			_ = os.Setenv("ECH0_TIMEOUT_MS", "2500")
			_ = os.Setenv("ECH0_INCLUDE_CREDENTIALS", "true")
			_ = os.Setenv("ECH0_LOG_LEVEL", "debug")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.BaseAPI, convey.ShouldEqual, "https://board.example.com/api")
				convey.So(cfg.TimeoutMS, convey.ShouldEqual, 2500)
				convey.So(cfg.IncludeCredentials, convey.ShouldBeTrue)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile(`
base_api: "http://file.example.com/api"
timeout_ms: 3000
session_file: "/tmp/ech0-session.yaml"
notify_queue_size: 8
`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("ECH0_CONFIG", tmpFile)
			_ = os.Setenv("ECH0_TIMEOUT_MS", "4000")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.BaseAPI, convey.ShouldEqual, "http://file.example.com/api")
				convey.So(cfg.TimeoutMS, convey.ShouldEqual, 4000)
				convey.So(cfg.SessionFile, convey.ShouldEqual, "/tmp/ech0-session.yaml")
				convey.So(cfg.NotifyQueueSize, convey.ShouldEqual, 8)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("ECH0_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("ECH0_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})

		convey.Convey("When the base URL is relative", func() {
			_ = os.Setenv("ECH0_BASE_API", "/api")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "absolute URL")
			})
		})

		convey.Convey("When the timeout is negative", func() {
			_ = os.Setenv("ECH0_TIMEOUT_MS", "-1")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the timeout is not a number", func() {
			_ = os.Setenv("ECH0_TIMEOUT_MS", "soon")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})
	})
}

func TestConfigValidate(t *testing.T) {
	convey.Convey("Given configs with broken fields", t, func() {
		cfg := config.New()
		cfg.BaseAPI = "  "
		convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)

		cfg = config.New()
		cfg.NotifyQueueSize = -3
		convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
	})
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "ech0-config-*.yaml")
	if err != nil {
		panic(err)
	}
	defer func() { _ = tmpFile.Close() }()

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}

func clearConfigEnvVars() {
	for _, key := range []string{
		"ECH0_CONFIG",
		"ECH0_LOG_LEVEL",
		"ECH0_BASE_API",
		"ECH0_TIMEOUT_MS",
		"ECH0_SESSION_FILE",
		"ECH0_NOTIFY_QUEUE_SIZE",
		"ECH0_INCLUDE_CREDENTIALS",
		"ECH0_METRICS_ADDR",
	} {
		_ = os.Unsetenv(key)
	}
}
