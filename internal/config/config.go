// Package config loads the service configuration from defaults, an optional
// YAML file, a .env file and UNDERWRITE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/opensource-finance/underwrite/internal/domain"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "UNDERWRITE_"

// Load builds the configuration. path names an optional YAML file; when
// empty, UNDERWRITE_CONFIG is used. Environment variables win over the file.
func Load(path string) (*domain.Config, error) {
	// .env is optional; existing variables are never overwritten
	_ = godotenv.Load()

	cfg := domain.DefaultConfig()
	if domain.Tier(getEnv("TIER", "")) == domain.TierPro {
		cfg = domain.ProConfig()
	}

	if path == "" {
		path = getEnv("CONFIG", "")
	}
	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *domain.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *domain.Config) error {
	var errs []error
	setInt := func(key string, dst *int) {
		if v := getEnv(key, ""); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	setString := func(key string, dst *string) {
		if v := getEnv(key, ""); v != "" {
			*dst = v
		}
	}

	setInt("PORT", &cfg.Server.Port)
	if v := getEnv("MAX_UPLOAD_MB", ""); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sMAX_UPLOAD_MB: %w", EnvPrefix, err))
		} else {
			cfg.Server.MaxUploadMB = n
		}
	}

	setString("DB_DRIVER", &cfg.Repository.Driver)
	setString("SQLITE_PATH", &cfg.Repository.SQLitePath)
	setString("PG_HOST", &cfg.Repository.PostgresHost)
	setInt("PG_PORT", &cfg.Repository.PostgresPort)
	setString("PG_USER", &cfg.Repository.PostgresUser)
	setString("PG_PASSWORD", &cfg.Repository.PostgresPassword)
	setString("PG_DB", &cfg.Repository.PostgresDB)
	setString("PG_SSLMODE", &cfg.Repository.PostgresSSLMode)

	setString("CACHE", &cfg.Cache.Type)
	setString("REDIS_ADDR", &cfg.Cache.RedisAddr)
	setString("REDIS_PASSWORD", &cfg.Cache.RedisPassword)
	setInt("MEMO_MAX_ENTRIES", &cfg.Cache.LocalMaxSize)

	setString("BUS", &cfg.EventBus.Type)
	setString("NATS_URL", &cfg.EventBus.NATSUrl)
	setString("NATS_TOKEN", &cfg.EventBus.NATSToken)

	setInt("WORKERS", &cfg.Scoring.WorkerPoolSize)

	setString("LOG_LEVEL", &cfg.Logging.Level)
	if strings.EqualFold(getEnv("DEBUG", ""), "true") {
		cfg.Logging.Level = "debug"
	}

	return errors.Join(errs...)
}

// Validate rejects configurations no backend can be built from.
func Validate(cfg *domain.Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", cfg.Server.Port)
	}
	if cfg.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("maxUploadMB must be positive, got %d", cfg.Server.MaxUploadMB)
	}

	switch cfg.Repository.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported repository driver %q", cfg.Repository.Driver)
	}

	switch cfg.Cache.Type {
	case "", "memory", "redis":
	default:
		return fmt.Errorf("unsupported cache type %q", cfg.Cache.Type)
	}

	switch cfg.EventBus.Type {
	case "", "channel", "nats":
	default:
		return fmt.Errorf("unsupported event bus type %q", cfg.EventBus.Type)
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		return value
	}
	return defaultValue
}
