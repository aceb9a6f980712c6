// Package repository provides score history persistence.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/opensource-finance/underwrite/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
		now:    func() time.Time { return time.Now().UTC() },
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas(r.driver) {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveScore appends a score to the history and returns the stored record.
// The raw request is kept alongside for audit.
func (r *SQLRepository) SaveScore(ctx context.Context, result *domain.ScoreResult, request *domain.ScoreRequest) (*domain.HistoryRecord, error) {
	if result == nil {
		return nil, fmt.Errorf("%w: result is required", ErrInvalidInput)
	}

	emails, err := json.Marshal(nonNil(result.Emails))
	if err != nil {
		return nil, fmt.Errorf("failed to encode emails: %w", err)
	}
	phones, err := json.Marshal(nonNil(result.Phones))
	if err != nil {
		return nil, fmt.Errorf("failed to encode phones: %w", err)
	}
	details, err := json.Marshal(result.Details)
	if err != nil {
		return nil, fmt.Errorf("failed to encode details: %w", err)
	}
	requestData, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	now := r.now()

	query := `
		INSERT INTO score_history (
			created_at, core_score, bayesian_score, total_score,
			simple_monthly_income, name, emails, phones, details, request_data
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`

	var id int64
	err = r.db.QueryRowContext(ctx, r.rebind(query),
		now, result.CoreScore, result.BayesianScore, result.TotalScore,
		result.SimpleMonthlyIncome, result.Name,
		string(emails), string(phones), string(details), string(requestData),
	).Scan(&id)
	if err != nil {
		return nil, err
	}

	return &domain.HistoryRecord{
		ID:          id,
		Timestamp:   now,
		ScoreResult: *result,
	}, nil
}

// GetScore retrieves one history record by id.
func (r *SQLRepository) GetScore(ctx context.Context, id int64) (*domain.HistoryRecord, error) {
	query := `
		SELECT id, created_at, core_score, bayesian_score, total_score,
			   simple_monthly_income, name, emails, phones, details
		FROM score_history
		WHERE id = ?
	`

	rec, err := scanHistory(r.db.QueryRowContext(ctx, r.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListScores returns every history record, newest first.
func (r *SQLRepository) ListScores(ctx context.Context) ([]*domain.HistoryRecord, error) {
	query := `
		SELECT id, created_at, core_score, bayesian_score, total_score,
			   simple_monthly_income, name, emails, phones, details
		FROM score_history
		ORDER BY id DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []*domain.HistoryRecord{}
	for rows.Next() {
		rec, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHistory(row rowScanner) (*domain.HistoryRecord, error) {
	var rec domain.HistoryRecord
	var name sql.NullString
	var emails, phones, details string

	if err := row.Scan(
		&rec.ID, &rec.Timestamp, &rec.CoreScore, &rec.BayesianScore, &rec.TotalScore,
		&rec.SimpleMonthlyIncome, &name, &emails, &phones, &details,
	); err != nil {
		return nil, err
	}

	rec.Name = name.String
	if err := json.Unmarshal([]byte(emails), &rec.Emails); err != nil {
		return nil, fmt.Errorf("failed to parse emails for score %d: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(phones), &rec.Phones); err != nil {
		return nil, fmt.Errorf("failed to parse phones for score %d: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(details), &rec.Details); err != nil {
		return nil, fmt.Errorf("failed to parse details for score %d: %w", rec.ID, err)
	}
	rec.Emails = nonNil(rec.Emails)
	rec.Phones = nonNil(rec.Phones)
	rec.Timestamp = rec.Timestamp.UTC()

	return &rec, nil
}

// SaveLadderConfig stores or replaces a ladder override.
func (r *SQLRepository) SaveLadderConfig(ctx context.Context, ladder *domain.LadderConfig) error {
	if ladder == nil || ladder.ID == "" {
		return fmt.Errorf("%w: ladder id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(ladder.Expression) == "" {
		return fmt.Errorf("%w: ladder expression is required", ErrInvalidInput)
	}

	enabled := 0
	if ladder.Enabled {
		enabled = 1
	}

	now := r.now()

	query := `
		INSERT INTO ladder_configs (
			id, name, description, version, grp, expression, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			version = excluded.version,
			grp = excluded.grp,
			expression = excluded.expression,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		ladder.ID, ladder.Name, ladder.Description, ladder.Version,
		ladder.Group, ladder.Expression, enabled, now, now,
	)
	return err
}

// ListLadderConfigs retrieves all enabled ladder overrides.
func (r *SQLRepository) ListLadderConfigs(ctx context.Context) ([]*domain.LadderConfig, error) {
	query := `
		SELECT id, name, description, version, grp, expression, enabled
		FROM ladder_configs
		WHERE enabled = 1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []*domain.LadderConfig
	for rows.Next() {
		var cfg domain.LadderConfig
		var description sql.NullString
		var enabled int

		if err := rows.Scan(
			&cfg.ID, &cfg.Name, &description, &cfg.Version,
			&cfg.Group, &cfg.Expression, &enabled,
		); err != nil {
			return nil, err
		}

		cfg.Description = description.String
		cfg.Enabled = enabled == 1
		configs = append(configs, &cfg)
	}

	return configs, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var b strings.Builder
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			n++
		} else {
			b.WriteByte(query[i])
		}
	}
	return b.String()
}

func nonNil(v []any) []any {
	if v == nil {
		return []any{}
	}
	return v
}
