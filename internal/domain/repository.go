// Package domain defines the core interfaces and types for the underwriting service.
package domain

import (
	"context"
	"time"
)

// Repository defines the interface for score history persistence.
type Repository interface {
	// Score history
	SaveScore(ctx context.Context, result *ScoreResult, request *ScoreRequest) (*HistoryRecord, error)
	GetScore(ctx context.Context, id int64) (*HistoryRecord, error)
	ListScores(ctx context.Context) ([]*HistoryRecord, error)

	// Ladder overrides
	SaveLadderConfig(ctx context.Context, ladder *LadderConfig) error
	ListLadderConfigs(ctx context.Context) ([]*LadderConfig, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string `yaml:"driver" json:"driver"`

	// SQLite specific
	SQLitePath string `yaml:"sqlitePath" json:"sqlitePath"`

	// PostgreSQL specific
	PostgresHost     string `yaml:"postgresHost" json:"postgresHost"`
	PostgresPort     int    `yaml:"postgresPort" json:"postgresPort"`
	PostgresUser     string `yaml:"postgresUser" json:"postgresUser"`
	PostgresPassword string `yaml:"postgresPassword" json:"-"`
	PostgresDB       string `yaml:"postgresDB" json:"postgresDB"`
	PostgresSSLMode  string `yaml:"postgresSSLMode" json:"postgresSSLMode"`

	// Connection pool settings
	MaxOpenConns    int           `yaml:"maxOpenConns" json:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns" json:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime" json:"connMaxLifetime"`
}
