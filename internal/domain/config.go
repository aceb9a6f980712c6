package domain

import "time"

// Config holds the complete underwriting service configuration.
type Config struct {
	// Server settings
	Server ServerConfig `yaml:"server" json:"server"`

	// Tier determines which backends are used
	Tier Tier `yaml:"tier" json:"tier"`

	// Scoring settings
	Scoring ScoringConfig `yaml:"scoring" json:"scoring"`

	// Component configurations
	Repository RepositoryConfig `yaml:"repository" json:"repository"`
	Cache      CacheConfig      `yaml:"cache" json:"cache"`
	EventBus   EventBusConfig   `yaml:"eventBus" json:"eventBus"`

	// Observability
	Logging LoggingConfig `yaml:"logging" json:"logging"`
	Tracing TracingConfig `yaml:"tracing" json:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `yaml:"host" json:"host"`
	Port         int    `yaml:"port" json:"port"`
	ReadTimeout  int    `yaml:"readTimeout" json:"readTimeout"`   // seconds
	WriteTimeout int    `yaml:"writeTimeout" json:"writeTimeout"` // seconds

	// MaxUploadMB caps each file of a multipart score upload.
	MaxUploadMB int64 `yaml:"maxUploadMB" json:"maxUploadMB"`
}

// ScoringConfig holds scorer settings.
type ScoringConfig struct {
	// MemoTTL bounds the lifetime of memoized extractor results.
	// Zero keeps them until the process exits.
	MemoTTL time.Duration `yaml:"memoTTL" json:"memoTTL"`

	// WorkerPoolSize is the number of async scoring workers.
	WorkerPoolSize int `yaml:"workerPoolSize" json:"workerPoolSize"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`   // debug, info, warn, error
	Format string `yaml:"format" json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled" json:"enabled"`
	ServiceName string `yaml:"serviceName" json:"serviceName"`
}

// Tier represents the deployment tier.
type Tier string

const (
	// TierCommunity runs on SQLite + channels + in-process LRU
	TierCommunity Tier = "community"

	// TierPro runs on PostgreSQL + NATS + Redis
	TierPro Tier = "pro"
)

// DefaultConfig returns a default configuration for Community tier.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         3001,
			ReadTimeout:  30,
			WriteTimeout: 30,
			MaxUploadMB:  10,
		},
		Tier: TierCommunity,
		Scoring: ScoringConfig{
			WorkerPoolSize: 4,
		},
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./scores.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 0, // unbounded
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "underwrite",
		},
	}
}

// ProConfig returns a configuration for Pro tier.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Repository = RepositoryConfig{
		Driver:          "postgres",
		PostgresHost:    "localhost",
		PostgresPort:    5432,
		PostgresDB:      "underwrite",
		PostgresSSLMode: "disable",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   10000,
		LocalTTL:       5 * time.Minute,
	}
	cfg.Scoring.MemoTTL = 24 * time.Hour
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Tracing.Enabled = true
	return cfg
}
